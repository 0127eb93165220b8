package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes an operator secret (such as the admin key) using bcrypt.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecret compares a presented secret with its bcrypt hash. An empty
// hash never matches.
func CheckSecret(plain, hashed string) bool {
	if hashed == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
