package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt hashes start with a $2x$ version marker
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashOrRead accepts either a plaintext password or a precomputed bcrypt
// hash (the usual shape of an ADMIN_PASSWORD secret) and returns the hash.
func HashOrRead(password string) ([]byte, error) {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(password, prefix) {
			return []byte(password), nil
		}
	}
	return bcrypt.GenerateFromPassword([]byte(password), 10)
}
