package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// HashVersionBcrypt tags stored credentials with the algorithm
	// that produced them, so a future algorithm change can migrate
	// rows lazily on next login.
	HashVersionBcrypt = "bcrypt"

	minPasswordLength = 8
)

var ErrPasswordTooShort = errors.New("password too short")

// HashPassword derives the stored form of a plaintext password and
// reports which hash version produced it.
func HashPassword(password string) (string, string, error) {
	if len(password) < minPasswordLength {
		return "", "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}

	return string(hash), HashVersionBcrypt, nil
}

// VerifyPassword checks a plaintext password against its stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
