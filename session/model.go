package session

import (
	"errors"
	"strings"

	"github.com/MrEthical07/goToken/jwt"
)

// ErrInvalidKey is returned for keys with an empty or unsafe component.
var ErrInvalidKey = errors.New("invalid session key")

const keySeparator = ":"

// Key addresses a single session entry.
type Key struct {
	Kind          jwt.Kind
	Subject       string
	ClientContext string
}

// Validate checks that the key can be rendered unambiguously. The client
// context must not contain the separator so that subject scans cannot reach
// into another subject's keys.
func (k Key) Validate() error {
	switch {
	case !k.Kind.Valid():
		return ErrInvalidKey
	case k.Subject == "":
		return ErrInvalidKey
	case k.ClientContext == "" || strings.Contains(k.ClientContext, keySeparator):
		return ErrInvalidKey
	}
	return nil
}

// String renders the key without a namespace prefix.
func (k Key) String() string {
	return string(k.Kind) + keySeparator + k.Subject + keySeparator + k.ClientContext
}

// PairKeys returns the access and refresh keys sharing subject and context.
func PairKeys(subject, clientContext string) (Key, Key) {
	return Key{Kind: jwt.KindAccess, Subject: subject, ClientContext: clientContext},
		Key{Kind: jwt.KindRefresh, Subject: subject, ClientContext: clientContext}
}
