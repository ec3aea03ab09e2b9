// Package cryptox holds the digest primitives behind document protection.
//
// SaltedDigest reproduces the legacy verification scheme: one SHA-256 over
// password+salt with a salt shared by every document. Identical passwords
// therefore produce identical digests across documents, and the hash is
// fast to brute-force. It is kept only so previously protected files keep
// unlocking. DeriveKey is the Argon2id alternative used when hardened
// hashing is switched on.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for hardened digests.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	// SaltSize is the per-document salt length for DeriveKey, in bytes.
	SaltSize = 16
)

// SaltedDigest returns hex(SHA-256(password + salt)) in lowercase.
func SaltedDigest(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// DeriveKey stretches password with Argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// DeriveKeyHex is DeriveKey with a hex-encoded result.
func DeriveKeyHex(password string, salt []byte) string {
	return hex.EncodeToString(DeriveKey([]byte(password), salt))
}

// EqualHex compares two hex digests in constant time. Case matters: both
// sides are expected in lowercase.
func EqualHex(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
