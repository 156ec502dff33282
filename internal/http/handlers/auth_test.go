package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
)

type fakeVerifier struct {
	fn func(ctx context.Context, email, password string) (user.User, error)
}

func (f fakeVerifier) Verify(ctx context.Context, email, password string) (user.User, error) {
	return f.fn(ctx, email, password)
}

type countingObserver struct {
	results map[string]int
}

func (c *countingObserver) ObserveLogin(result string) {
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func newLoginRouter(v handlers.CredentialVerifier, tokens handlers.TokenIssuer, obs handlers.LoginObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewAuthHandler(v, tokens, obs, discardLogger())

	r := gin.New()
	r.POST("/auth/login", h.Login)
	return r
}

func seedAnn(t *testing.T, store *memory.UsersRepo) user.User {
	t.Helper()

	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := store.Create(context.Background(), user.NewUser{Name: "Ann", Email: "ann@x.com", Role: user.RoleAdmin, PasswordHash: hash})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLogin_Success(t *testing.T) {
	store := memory.NewUsersRepo()
	ann := seedAnn(t, store)

	tokens := auth.NewManager("test-secret", 15*time.Minute)
	obs := &countingObserver{}
	r := newLoginRouter(auth.NewCredentialVerifier(store), tokens, obs)

	w := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"ann@x.com","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	var got auth.IssuedToken
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Subject != ann.ID || got.Name != "Ann" {
		t.Fatalf("unexpected token response: %+v", got)
	}
	if got.ExpiresAt-got.IssuedAt != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("exp-iat: got %d", got.ExpiresAt-got.IssuedAt)
	}

	claims, err := tokens.VerifyAccessToken(got.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != ann.ID || claims.User.PasswordHash != "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if obs.results["ok"] != 1 {
		t.Fatalf("observer: %v", obs.results)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	store := memory.NewUsersRepo()
	seedAnn(t, store)

	obs := &countingObserver{}
	r := newLoginRouter(auth.NewCredentialVerifier(store), auth.NewManager("test-secret", time.Minute), obs)

	wrongPw := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"ann@x.com","password":"nope-nope"}`)
	unknown := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"ghost@x.com","password":"secret1"}`)

	if wrongPw.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("got %d and %d, want 401", wrongPw.Code, unknown.Code)
	}

	a, b := decodeError(t, wrongPw), decodeError(t, unknown)
	if a.Code != "invalid_credentials" || a.Code != b.Code || a.Message != b.Message {
		t.Fatalf("responses differ: %+v vs %+v", a, b)
	}
	if obs.results["invalid_credentials"] != 2 || len(obs.results) != 1 {
		t.Fatalf("observer: %v", obs.results)
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	called := false
	v := fakeVerifier{fn: func(context.Context, string, string) (user.User, error) {
		called = true
		return user.User{}, nil
	}}
	r := newLoginRouter(v, auth.NewManager("s", time.Minute), nil)

	for _, body := range []string{`{"email":"ann@x.com"}`, `{"password":"x"}`, `not json`} {
		w := doJSON(t, r, http.MethodPost, "/auth/login", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: got %d", body, w.Code)
		}
	}
	if called {
		t.Fatal("verifier must not run for malformed input")
	}
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	v := fakeVerifier{fn: func(context.Context, string, string) (user.User, error) {
		return user.User{}, errors.New("lookup user by email: db down")
	}}
	r := newLoginRouter(v, auth.NewManager("s", time.Minute), nil)

	w := doJSON(t, r, http.MethodPost, "/auth/login", `{"email":"ann@x.com","password":"secret1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != "internal_error" {
		t.Fatalf("code: %q", e.Code)
	}
}
