// Package password hashes and verifies secrets with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads its parameters from the stored hash, so raising the
// configured cost never breaks existing hashes; [Argon2.NeedsUpgrade] tells
// the caller when to re-hash after a successful check.
package password
