package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
)

const (
	// TokenLength is the number of random bytes drawn for a session token.
	// 20 bytes (160 bits) is well beyond brute-force reach.
	TokenLength = 20

	// CodeLength is the number of characters in a verification code.
	CodeLength = 6
)

// base32 with a lowercase alphabet and no padding: case-insensitive,
// alphanumeric only, and more compact than hex.
var tokenEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// codeAlphabet excludes lowercase so codes survive case-insensitive entry.
// 32 characters, so indexing a random byte mod 32 introduces no bias.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// GenerateToken returns a new opaque bearer token. Tokens are drawn from
// crypto/rand, never from math/rand or from UUIDs, which are not required
// by the RFC to come from a secure source.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(bytes), nil
}

// HashToken derives the storage identifier for a token. SHA-256 is one-way,
// so a leaked database does not yield usable bearer tokens.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// VerifyToken compares a presented token against a stored hash in
// constant time.
func VerifyToken(token, storedHash string) bool {
	tokenHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(storedHash)) == 1
}

// GenerateCode returns a short human-typeable verification code.
func GenerateCode() (string, error) {
	bytes := make([]byte, CodeLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	code := make([]byte, CodeLength)
	for i, b := range bytes {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
