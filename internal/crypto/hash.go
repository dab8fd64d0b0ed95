package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrEmptyAuthKey is returned when there is nothing to hash
var ErrEmptyAuthKey = errors.New("auth key cannot be empty")

// HashAuthKey returns the hex SHA256 of the derived auth key
func HashAuthKey(authKey []byte) (string, error) {
	if len(authKey) == 0 {
		return "", ErrEmptyAuthKey
	}
	sum := sha256.Sum256(authKey)
	return hex.EncodeToString(sum[:]), nil
}

// EqualHashes сравнивает два hex-хеша за постоянное время
func EqualHashes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
