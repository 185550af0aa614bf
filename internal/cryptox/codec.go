// Package cryptox implements the authenticated-encryption codec used for
// locked notes and encrypted attachments, plus master-key derivation for
// account auth.
//
// The codec key is a single SHA-256 of the password, with no per-record salt
// or stretching. This is a known weakness kept for compatibility with blobs
// written by earlier versions; account-level keys use argon2id instead (see
// masterkey.go). New formats should not copy this scheme.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// binaryMagic prefixes encrypted binary blobs so attachment files can be told
// apart from plaintext ones. Legacy and plaintext files never start with it.
var binaryMagic = []byte("NKE1")

func codecKey(password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrInvalidArgument)
	}
	key := sha256.Sum256([]byte(password))
	return key[:], nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal returns nonce ‖ ciphertext ‖ tag for the given plaintext.
func seal(plaintext []byte, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal. The blob must be at least NonceSize+TagSize bytes;
// shorter input is rejected before any cryptographic work.
func open(blob []byte, key []byte) ([]byte, error) {
	if len(blob) < NonceSize+TagSize {
		return nil, common.ErrDecryptionFailed
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

// legacyXOR applies the byte-wise XOR stream cipher used by older versions
// (key = SHA-256 of the password, repeated). XOR is its own inverse.
func legacyXOR(data []byte, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// EncryptString encrypts plaintext with a password-derived key and returns
// base64(nonce ‖ ciphertext ‖ tag).
func EncryptString(plaintext, password string) (string, error) {
	key, err := codecKey(password)
	if err != nil {
		return "", err
	}
	blob, err := seal([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptString reverses EncryptString. It first attempts the AEAD format;
// on authentication failure it falls back to the legacy XOR decode and
// accepts the result only if it is valid UTF-8. If both fail it returns
// common.ErrDecryptionFailed (wrong password or corrupted data).
func DecryptString(encoded, password string) (string, error) {
	key, err := codecKey(password)
	if err != nil {
		return "", err
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	if len(blob) < NonceSize+TagSize {
		return "", common.ErrDecryptionFailed
	}

	if plaintext, err := open(blob, key); err == nil {
		return string(plaintext), nil
	}

	// Legacy blobs carry no authentication tag, so the only wrong-password
	// signal available is the decoded text itself.
	legacy := legacyXOR(blob, key)
	if utf8.Valid(legacy) {
		return string(legacy), nil
	}

	return "", common.ErrDecryptionFailed
}

// EncryptBytes encrypts a binary blob and prefixes the result with the
// 4-byte magic header so encrypted attachment files are distinguishable
// from plaintext ones.
func EncryptBytes(plaintext []byte, password string) ([]byte, error) {
	key, err := codecKey(password)
	if err != nil {
		return nil, err
	}
	blob, err := seal(plaintext, key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(binaryMagic)+len(blob))
	out = append(out, binaryMagic...)
	out = append(out, blob...)
	return out, nil
}

// DecryptBytes reverses EncryptBytes. Blobs carrying the magic header must
// authenticate under the AEAD; blobs without it are decoded with the legacy
// XOR scheme (older versions wrote attachments without a header).
func DecryptBytes(blob []byte, password string) ([]byte, error) {
	key, err := codecKey(password)
	if err != nil {
		return nil, err
	}

	if IsEncrypted(blob) {
		return open(blob[len(binaryMagic):], key)
	}

	if len(blob) < NonceSize+TagSize {
		return nil, common.ErrDecryptionFailed
	}
	return legacyXOR(blob, key), nil
}

// IsEncrypted reports whether a binary blob was written by EncryptBytes.
func IsEncrypted(blob []byte) bool {
	if len(blob) < len(binaryMagic) {
		return false
	}
	for i, b := range binaryMagic {
		if blob[i] != b {
			return false
		}
	}
	return true
}
