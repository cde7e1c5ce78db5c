package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing them only affects newly hashed passwords;
// verification reads the key length from the stored hash.
const (
	hashScheme         = "argon2id"
	hashSaltLen        = 16
	hashTime    uint32 = 1
	hashMemory  uint32 = 64 * 1024
	hashThreads uint8  = 4
	hashKeyLen  uint32 = 32
)

// ErrHashFormat indicates a stored password hash that cannot be parsed.
var ErrHashFormat = errors.New("security: malformed password hash")

// HashPassword derives an Argon2id hash of the password, encoded as
// "argon2id$<salt>$<key>" with base64 components.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("security: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)

	return strings.Join([]string{
		hashScheme,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// VerifyPassword reports whether password matches the stored hash. The
// comparison is constant time; a mismatch is not an error.
func VerifyPassword(password, stored string) (bool, error) {
	if password == "" || stored == "" {
		return false, nil
	}

	salt, key, err := decodeHash(stored)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func decodeHash(stored string) (salt, key []byte, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != hashScheme {
		return nil, nil, ErrHashFormat
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: salt: %v", ErrHashFormat, err)
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: key: %v", ErrHashFormat, err)
	}

	return salt, key, nil
}
