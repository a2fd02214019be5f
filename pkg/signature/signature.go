package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// defaultKeyMaterial is used when no key component is registered.
// It is public knowledge and provides no authenticity at all.
var defaultKeyMaterial = []byte("this is the default signature key")

// ErrEmptyKey is returned when signing with an empty key.
var ErrEmptyKey = errors.New("signature key is empty")

// Key is the shared secret used to sign session cookies.
type Key struct {
	material []byte
}

// NewKey copies the given secret into a Key.
func NewKey(secret []byte) Key {
	return Key{material: bytes.Clone(secret)}
}

// DefaultKey returns the built-in fallback key.
func DefaultKey() Key {
	return NewKey(defaultKeyMaterial)
}

// Bytes returns the raw key material.
func (k Key) Bytes() []byte {
	return k.material
}

// IsDefault reports whether k is the built-in fallback key.
func (k Key) IsDefault() bool {
	return bytes.Equal(k.material, defaultKeyMaterial)
}

// IsZero reports whether the key holds no material.
func (k Key) IsZero() bool {
	return len(k.material) == 0
}

// Sign computes the HMAC-SHA256 signature of payload, encoded as unpadded base64url.
// The same payload and key always produce the same signature.
func Sign(payload string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	sig, err := jwt.SigningMethodHS256.Sign(payload, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify reports whether sig is the signature of payload under key.
// The comparison runs in constant time.
func Verify(payload, sig string, key []byte) bool {
	if len(key) == 0 || sig == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return jwt.SigningMethodHS256.Verify(payload, raw, key) == nil
}
