package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	users UsersStore
	log   *slog.Logger
	hash  func(plain string) (string, error)
}

func NewUsersHandler(users UsersStore, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}

	return &UsersHandler{
		users: users,
		log:   log,
		hash:  security.HashPassword,
	}
}

type userURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

func bindUserID(ctx *gin.Context) (string, bool) {
	var uri userURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		RespondBadRequest(ctx, "Invalid user id", gin.H{"id": "must be a uuid"})
		return "", false
	}
	return uri.ID, true
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, err, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id, ok := bindUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		h.respondStoreError(ctx, err, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

// CreateUser runs validate, hash, persist in that order. Nothing is stored unless the
// request validated and the password hashed.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, ok := h.hashPassword(ctx, req.Password, "Could not create user")
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, req.ToNewUser(hash))
	if err != nil {
		h.respondStoreError(ctx, err, "Could not create user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user created", "user_id", u.ID, "role", string(u.Role))

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := bindUserID(ctx)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	// a new password is stored hashed, never as given
	var passwordHash *string
	if req.Password != nil {
		hash, ok := h.hashPassword(ctx, *req.Password, "Could not update user")
		if !ok {
			return
		}
		passwordHash = &hash
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	patch := req.ToPatch(passwordHash)

	if _, err := h.users.Update(cctx, id, patch); err != nil {
		h.respondStoreError(ctx, err, "Could not update user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user updated",
		"user_id", id,
		"fields", changedFields(patch),
	)

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := bindUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		h.respondStoreError(ctx, err, "Could not delete user")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user deleted", "user_id", id)

	ctx.Status(http.StatusNoContent)
}

// hashPassword answers 400 for a password the hasher refuses on length and 500 otherwise.
func (h *UsersHandler) hashPassword(ctx *gin.Context, plain, internalMsg string) (string, bool) {
	hash, err := h.hash(plain)
	if err == nil {
		return hash, true
	}

	if errors.Is(err, security.ErrPasswordTooShort) || errors.Is(err, security.ErrPasswordTooLong) {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "password", Rule: "length", Message: err.Error()}},
		})
		return "", false
	}

	RespondInternal(ctx, err, internalMsg)
	return "", false
}

func (h *UsersHandler) respondStoreError(ctx *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
	default:
		RespondInternal(ctx, err, internalMsg)
	}
}

// field names only, values may be sensitive
func changedFields(p user.Patch) []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.Email != nil {
		out = append(out, "email")
	}
	if p.Role != nil {
		out = append(out, "role")
	}
	if p.PasswordHash != nil {
		out = append(out, "password")
	}
	return out
}
