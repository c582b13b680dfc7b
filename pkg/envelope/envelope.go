// Package envelope seals a single journal record under a password.
//
// A token is the URL-safe base64 encoding of
//
//	salt(16) ‖ nonce(12) ‖ ciphertext ‖ tag(16)
//
// where the AES-256-GCM key is derived from the password and salt with
// PBKDF2-HMAC-SHA256 (100 000 iterations). Each token carries its own salt,
// so tokens sealed under the same password never share a key stream.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/entrhq/moodjournal/pkg/record"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100_000

	// Field is the single key of an encrypted line on disk.
	Field = "enc"
)

// ErrDecrypt is returned for any token that cannot be opened: bad encoding,
// truncated data, wrong password or a payload that is not a JSON object.
var ErrDecrypt = errors.New("envelope: cannot decrypt")

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// Encrypt serializes rec and seals it under password.
func Encrypt(rec record.Record, password string) (string, error) {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("envelope: marshal record: %w", err)
	}

	buf := make([]byte, saltSize+nonceSize, saltSize+nonceSize+len(plaintext)+16)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return "", fmt.Errorf("envelope: read random: %w", err)
	}
	salt, nonce := buf[:saltSize], buf[saltSize:]

	aead, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("envelope: init cipher: %w", err)
	}

	sealed := aead.Seal(buf, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Every failure wraps ErrDecrypt.
func Decrypt(token, password string) (record.Record, error) {
	blob, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrDecrypt, err)
	}
	if len(blob) < saltSize+nonceSize+16 {
		return nil, fmt.Errorf("%w: token too short", ErrDecrypt)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: init cipher: %v", ErrDecrypt, err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	var rec record.Record
	if err := json.Unmarshal(plaintext, &rec); err != nil || rec == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrDecrypt)
	}
	return rec, nil
}

// Wrap builds the on-disk line object for token.
func Wrap(token string) map[string]string {
	return map[string]string{Field: token}
}

// Unwrap reports whether a decoded line is an envelope and returns its token.
// Any object carrying "enc" is an envelope, whatever else it holds; plaintext
// fields next to it are never trusted. A non-string "enc" yields an empty
// token, which does not decrypt.
func Unwrap(line map[string]any) (string, bool) {
	v, ok := line[Field]
	if !ok {
		return "", false
	}
	token, _ := v.(string)
	return token, true
}
