// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The string is self-describing: verification reads cost parameters and salt
// from it, so changing [Config] never invalidates stored credentials.
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # Errors
//
// A wrong password is (false, nil). A hash that cannot be parsed returns
// [ErrMalformedHash]; callers treat it as a server fault.
//
// This package owns hashing only. Password policy (minimum length, username
// rules) is enforced by the Engine. It never stores or logs plaintext.
package password
