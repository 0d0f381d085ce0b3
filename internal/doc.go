// Package internal contains helpers that are private to goToken: client
// context derivation and random identifiers.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - obs: zap logger construction for binaries
package internal
