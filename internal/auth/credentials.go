package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	credentialSaltLength = 16
	credentialKeyLength  = 32
	credentialIterations = 120000
)

// CredentialVerifier reports whether a login credential pair is valid. The
// verification strategy is pluggable so the session layer never learns how
// credentials are stored.
type CredentialVerifier interface {
	Verify(email, password string) bool
}

// StaticCredentials verifies logins against a single operator credential
// pair. The password is hashed at construction time and never retained in
// plain text.
type StaticCredentials struct {
	email []byte
	salt  []byte
	hash  []byte
}

// NewStaticCredentials derives the stored password hash for the single
// operator account.
func NewStaticCredentials(email, password string) (*StaticCredentials, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("static credentials: email and password are required")
	}
	salt := make([]byte, credentialSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("static credentials: generate salt: %w", err)
	}
	return &StaticCredentials{
		email: []byte(email),
		salt:  salt,
		hash:  pbkdf2.Key([]byte(password), salt, credentialIterations, credentialKeyLength, sha256.New),
	}, nil
}

// Verify compares both fields in constant time so a mismatching email costs
// the same as a mismatching password.
func (c *StaticCredentials) Verify(email, password string) bool {
	emailMatch := subtle.ConstantTimeCompare(c.email, []byte(email))
	derived := pbkdf2.Key([]byte(password), c.salt, credentialIterations, credentialKeyLength, sha256.New)
	passwordMatch := subtle.ConstantTimeCompare(c.hash, derived)
	return emailMatch&passwordMatch == 1
}
