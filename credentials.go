package goToken

import (
	"context"
	"errors"

	"github.com/MrEthical07/goToken/password"
)

// Argon2Verifier is the default [CredentialVerifier]. It checks the secret
// against Principal.PasswordHash, an Argon2id PHC string.
type Argon2Verifier struct {
	hasher *password.Argon2
}

// NewArgon2Verifier returns a verifier whose Hash uses cfg's parameters.
// Verification always uses the parameters encoded in the stored hash.
func NewArgon2Verifier(cfg PasswordConfig) (*Argon2Verifier, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	return &Argon2Verifier{hasher: hasher}, nil
}

// VerifyCredential reports whether secret matches principal's hash. A
// principal without a hash never matches, nor does an oversized secret.
func (v *Argon2Verifier) VerifyCredential(_ context.Context, principal *Principal, secret string) (bool, error) {
	if principal == nil || principal.PasswordHash == "" {
		return false, nil
	}
	ok, err := v.hasher.Verify(secret, principal.PasswordHash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return false, nil
	}
	return ok, err
}

// NeedsRehash reports whether principal's hash was made with weaker
// parameters than the verifier's, so the host can store Hash(secret) after a
// successful Login.
func (v *Argon2Verifier) NeedsRehash(principal *Principal) bool {
	if principal == nil || principal.PasswordHash == "" {
		return false
	}
	upgrade, err := v.hasher.NeedsUpgrade(principal.PasswordHash)
	return err == nil && upgrade
}

// Hash produces a PHC string suitable for Principal.PasswordHash.
func (v *Argon2Verifier) Hash(secret string) (string, error) {
	return v.hasher.Hash(secret)
}
