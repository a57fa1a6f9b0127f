// Package rate implements the Redis-backed login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:login:user:<username> counts failed logins per (lower-cased) username
//   - rl:login:ip:<addr> counts failed logins per client address
//
// A username is throttled once it reaches MaxLoginAttempts failures inside the
// window; the window starts at the first failure and is not extended.
package rate
