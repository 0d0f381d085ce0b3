package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveClientContext digests the request attributes that identify a device.
// The result is a bucketing key, not a secret: anyone who knows both inputs
// can reproduce it.
func DeriveClientContext(userAgent, remoteAddress string) string {
	sum := sha256.Sum256([]byte(userAgent + "-" + remoteAddress))
	return hex.EncodeToString(sum[:])
}
