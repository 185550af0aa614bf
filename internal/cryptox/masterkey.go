package cryptox

import (
	"crypto/sha256"
	"os"

	"golang.org/x/crypto/argon2"
)

// DeriveMasterKey derives the 32-byte account master key from a password and
// a per-user salt using argon2id. The master key never leaves the client;
// only the verifier is sent to the server.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the value stored server-side to check a login
// attempt: a SHA-256 of the master key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// EncryptFile reads path and encrypts its contents with the codec's binary
// format, ready for upload to object storage.
func EncryptFile(path string, password string) ([]byte, error) {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return EncryptBytes(plaintext, password)
}
