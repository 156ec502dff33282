package security

import (
	"errors"
	"fmt"

	"github.com/geocoder89/userhub/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", user.MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", user.MaxPasswordBytes)
	ErrPasswordMismatch = errors.New("password does not match")
)

// Cost is the bcrypt work factor. Tests lower it to keep hashing fast.
var Cost = bcrypt.DefaultCost

// HashPassword enforces the length policy, then hashes with a fresh bcrypt salt.
func HashPassword(plain string) (string, error) {
	if len([]rune(plain)) < user.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(plain) > user.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password. A mismatch is reported as
// ErrPasswordMismatch; malformed hashes come back as other errors.
func CheckPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
