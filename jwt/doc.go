// Package jwt encodes and decodes the signed claim sets carried by access and
// refresh tokens.
//
// The codec is symmetric (HS256/HS384/HS512): the same secret signs and
// verifies. A token that decodes cleanly is only self-consistent; whether it
// is still the live token for its subject and client context is decided by
// the session store, never by this package.
package jwt
