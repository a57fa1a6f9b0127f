// Package session provides opaque, IP-bound session tokens over a pluggable
// key-value [Store].
//
// # Stores
//
// [RedisStore] keeps records under "<prefix>:<token>" with SET ... EX and never
// refreshes the TTL on read. [MemoryStore] is an in-process equivalent for
// single-node deployments and tests. Records are encoded in a compact
// versioned binary form; [Decode] also reads the JSON records written by
// earlier releases.
//
// # Manager
//
// [Manager] is stateless policy over a Store: a fixed TTL and an [IPBinding]
// mode. Rejections carry an internal [RejectReason] for diagnostics. Callers
// exposing results to clients must collapse every rejection into a single
// "unauthorized" outcome.
//
// This package does not hash passwords, look up users or speak HTTP.
package session
