package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 8
	// MaxPasswordLength caps input at bcrypt's 72-byte limit, beyond which
	// bcrypt silently truncates
	MaxPasswordLength = 72
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = bcrypt.DefaultCost
)

// HashPassword hashes a plain text password with bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a stored hash against a plain text password
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// IsPasswordValid checks a password against the length bounds
func IsPasswordValid(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
