package session

import "time"

// Record is the server-side state bound to a session token. It is written once
// at issuance and never updated; an IP change invalidates it instead.
type Record struct {
	UserID int64
	// IP is the canonical client address observed when the session was issued.
	IP string

	IssuedAt  int64
	ExpiresAt int64
}

// expired reports whether the record's own deadline has passed. Legacy records
// carry no deadline and rely on the backend TTL alone.
func (r Record) expired(now time.Time) bool {
	return r.ExpiresAt != 0 && now.Unix() >= r.ExpiresAt
}
