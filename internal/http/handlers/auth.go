package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (user.User, error)
}

type TokenIssuer interface {
	Issue(u user.User) (auth.IssuedToken, error)
}

// LoginObserver counts login outcomes: ok, invalid_credentials or error. May be nil.
type LoginObserver interface {
	ObserveLogin(result string)
}

type AuthHandler struct {
	verifier CredentialVerifier
	tokens   TokenIssuer
	obs      LoginObserver
	log      *slog.Logger
}

func NewAuthHandler(verifier CredentialVerifier, tokens TokenIssuer, obs LoginObserver, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		verifier: verifier,
		tokens:   tokens,
		obs:      obs,
		log:      log,
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for the store lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.verifier.Verify(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			reason := "wrong_password"
			if errors.Is(err, auth.ErrUnknownEmail) {
				reason = "unknown_email"
			}
			// the metric is readable without a token, so only the log line carries the reason
			h.observe("invalid_credentials")
			h.log.InfoContext(ctx.Request.Context(), "login rejected",
				"reason", reason,
				"request_id", requestIDFrom(ctx),
			)

			// same answer for both reasons so callers cannot enumerate accounts
			RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		h.observe("error")
		RespondInternal(ctx, err, "Could not log in")
		return
	}

	issued, err := h.tokens.Issue(u)
	if err != nil {
		h.observe("error")
		RespondInternal(ctx, err, "Could not generate access token")
		return
	}

	h.observe("ok")
	ctx.JSON(http.StatusOK, issued)
}

func (h *AuthHandler) observe(result string) {
	if h.obs != nil {
		h.obs.ObserveLogin(result)
	}
}
