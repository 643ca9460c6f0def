package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Default hasher used when the service consumer does not provide one
var DefaultHasher = BcryptHasher{}

// Bcrypt password hasher
// Passwords are pre-hashed with sha256 to lift bcrypt's 72 byte input cap.
// Every Hash call salts freshly, so equal inputs produce different digests.
type BcryptHasher struct{}

func (h BcryptHasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}

// Compare reports any mismatch as an error, including empty or truncated
// stored hashes. It never panics on malformed input.
func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
