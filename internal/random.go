package internal

import (
	"strings"

	"github.com/google/uuid"
)

// NewTokenID returns a random jti for a freshly signed token.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewSessionContext returns an opaque server-generated client context. It
// contains no ':' so it is safe inside a store key.
func NewSessionContext() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
