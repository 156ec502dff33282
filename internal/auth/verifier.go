package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidCredentials is the only failure callers outside this package should branch on.
// ErrUnknownEmail and ErrWrongPassword both wrap it and exist for logs and tests.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownEmail       = fmt.Errorf("%w: email not registered", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
)

type UserByEmail interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type CredentialVerifier struct {
	users  UserByEmail
	tracer trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(users UserByEmail) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		tracer: otel.Tracer("github.com/geocoder89/userhub/internal/auth"),
	}
}

// Verify looks the user up by exact email and checks the password against the stored hash.
// It never writes to the store.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (user.User, error) {
	ctx, span := v.tracer.Start(ctx, "auth.VerifyCredentials")
	defer span.End()

	u, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn a comparable amount of time so response latency does not reveal the miss
			_ = security.CheckPassword(v.placeholderHash(), password)
			span.SetAttributes(attribute.String("auth.result", "unknown_email"))
			return user.User{}, ErrUnknownEmail
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return user.User{}, fmt.Errorf("lookup user by email: %w", err)
	}

	err = security.CheckPassword(u.PasswordHash, password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			span.SetAttributes(attribute.String("auth.result", "wrong_password"))
			return user.User{}, ErrWrongPassword
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "password comparison failed")
		return user.User{}, fmt.Errorf("compare password for user %s: %w", u.ID, err)
	}

	span.SetAttributes(attribute.String("auth.result", "ok"), attribute.String("user.id", u.ID))
	return u, nil
}

func (v *CredentialVerifier) placeholderHash() string {
	v.dummyOnce.Do(func() {
		h, err := security.HashPassword("placeholder-password")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
