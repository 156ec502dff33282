package user

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes, so longer passwords are rejected outright.
	MaxPasswordBytes = 72
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := ParseRole(fl.Field().String())
		return ok
	})

	// min/max count runes; bcrypt's limit is in bytes
	_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})

	return v
}

// ValidationError wraps the field errors reported for a request body.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid user: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type CreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Role     string `json:"role" validate:"required,role"`
	Password string `json:"password" validate:"required,min=6,pwbytes"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

// Validate checks field presence and shape. It never touches a store.
func (r CreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func (r CreateRequest) ToNewUser(passwordHash string) NewUser {
	role, _ := ParseRole(r.Role)

	return NewUser{
		Name:         r.Name,
		Email:        r.Email,
		Role:         role,
		PasswordHash: passwordHash,
	}
}

// UpdateRequest is a partial update; absent fields stay as they are.
type UpdateRequest struct {
	Name     *string `json:"name" validate:"omitnil,min=2,max=100"`
	Email    *string `json:"email" validate:"omitnil,email,max=254"`
	Role     *string `json:"role" validate:"omitnil,role"`
	Password *string `json:"password" validate:"omitnil,min=6,pwbytes"`
}

func (r *UpdateRequest) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(r.Name)
	trim(r.Email)
	trim(r.Role)
}

func (r UpdateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ToPatch builds the store patch. passwordHash must be set whenever r.Password is.
func (r UpdateRequest) ToPatch(passwordHash *string) Patch {
	p := Patch{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: passwordHash,
	}

	if r.Role != nil {
		role, _ := ParseRole(*r.Role)
		p.Role = &role
	}

	return p
}

// LoginRequest is the body of POST /auth/login. Only presence is checked here; whether the
// pair matches a user is decided by the credential verifier.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r LoginRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
