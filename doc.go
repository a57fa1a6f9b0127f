// Package nuggetauth provides password login and IP-bound opaque sessions
// backed by Redis.
//
// An [Engine] is assembled with [Builder]. It hashes credentials with
// Argon2id, issues 24 hour session tokens on login and validates them on
// every request. Engine methods are safe to call from multiple goroutines
// after [Builder.Build].
//
// # Sessions
//
// A session token is 32 random bytes, base64url encoded. The server stores
// the owning user id and the client address the session was issued to, with
// a fixed expiry and no sliding renewal. Validation from any other address
// revokes the session under strict binding, or succeeds with
// [Identity.IPChanged] set under advisory binding.
//
// # Errors
//
// Every rejected token surfaces as [ErrUnauthorized] regardless of cause.
// Transport layers should map errors through [Classify] rather than matching
// individual sentinels.
package nuggetauth
