package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nuggetsync/nuggetauth/internal"
)

// DefaultTTL is the fixed lifetime of an issued session.
const DefaultTTL = 24 * time.Hour

// IPBinding selects what Validate does when the presenting address differs
// from the address recorded at issuance.
type IPBinding string

const (
	// IPBindingStrict revokes the session and rejects the request.
	IPBindingStrict IPBinding = "strict"
	// IPBindingAdvisory accepts the request and flags the change.
	IPBindingAdvisory IPBinding = "advisory"
)

// Valid reports whether b is a known binding mode.
func (b IPBinding) Valid() bool {
	return b == IPBindingStrict || b == IPBindingAdvisory
}

// Policy is the session policy applied by a Manager.
type Policy struct {
	TTL       time.Duration
	IPBinding IPBinding
}

// RejectReason is the internal diagnosis for a rejected token. It must not be
// shown to clients.
type RejectReason string

const (
	ReasonNoSession  RejectReason = "no-session"
	ReasonIPMismatch RejectReason = "ip-mismatch"
)

// ErrRejected matches every *Rejection via errors.Is.
var ErrRejected = errors.New("session rejected")

// Rejection is returned by Validate for a token that does not authenticate.
// RevokeErr is set when a strict-mode revocation could not be written; the
// request is rejected regardless.
type Rejection struct {
	Reason RejectReason
	// UserID is the session owner when the record was found, for diagnostics.
	UserID    int64
	RevokeErr error
}

func (r *Rejection) Error() string {
	if r.RevokeErr != nil {
		return fmt.Sprintf("session rejected: %s (revoke failed: %v)", r.Reason, r.RevokeErr)
	}
	return "session rejected: " + string(r.Reason)
}

func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

// Validation is the result of a successful Validate.
type Validation struct {
	UserID int64
	// IPChanged is only ever true under IPBindingAdvisory.
	IPChanged bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and validates sessions. It holds no session state of its own;
// every decision is made against the injected Store, so a single Manager is
// safe for concurrent use.
type Manager struct {
	store    Store
	policy   Policy
	now      func() time.Time
	newToken func() (string, error)
}

// NewManager returns a Manager over store. A zero TTL selects DefaultTTL and an
// empty binding selects IPBindingStrict.
func NewManager(store Store, policy Policy) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	if policy.TTL == 0 {
		policy.TTL = DefaultTTL
	}
	if policy.TTL < 0 {
		return nil, ErrInvalidTTL
	}
	if policy.IPBinding == "" {
		policy.IPBinding = IPBindingStrict
	}
	if !policy.IPBinding.Valid() {
		return nil, fmt.Errorf("unknown ip binding %q", policy.IPBinding)
	}

	return &Manager{
		store:    store,
		policy:   policy,
		now:      time.Now,
		newToken: internal.NewSessionToken,
	}, nil
}

// Policy returns the effective policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Issue creates a session for userID bound to clientIP and returns its token.
// Errors are either an entropy failure or a store failure.
func (m *Manager) Issue(ctx context.Context, userID int64, clientIP string) (string, error) {
	token, err := m.newToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	rec := Record{
		UserID:    userID,
		IP:        internal.CanonicalIP(clientIP),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(m.policy.TTL).Unix(),
	}
	if err := m.store.Put(ctx, token, rec, m.policy.TTL); err != nil {
		return "", err
	}

	return token, nil
}

// Validate resolves token for a request arriving from presentingIP.
//
// Unknown, expired and revoked tokens all yield a *Rejection with
// ReasonNoSession. An address mismatch yields ReasonIPMismatch and, under
// IPBindingStrict, deletes the record first so the token can never validate
// again. Store failures are returned as is.
func (m *Manager) Validate(ctx context.Context, token, presentingIP string) (Validation, error) {
	if !internal.ValidTokenShape(token) {
		return Validation{}, &Rejection{Reason: ReasonNoSession}
	}

	rec, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return Validation{}, err
	}
	if !ok {
		return Validation{}, &Rejection{Reason: ReasonNoSession}
	}

	out := Validation{
		UserID:    rec.UserID,
		IssuedAt:  time.Unix(rec.IssuedAt, 0),
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}

	presenting := internal.CanonicalIP(presentingIP)
	if presenting != "" && presenting == rec.IP {
		return out, nil
	}

	if m.policy.IPBinding == IPBindingAdvisory {
		out.IPChanged = true
		return out, nil
	}

	// The revocation must land even if the caller has gone away.
	revokeErr := m.store.Delete(context.WithoutCancel(ctx), token)
	return Validation{}, &Rejection{Reason: ReasonIPMismatch, UserID: rec.UserID, RevokeErr: revokeErr}
}

// Revoke deletes the session for token. Revoking an unknown token succeeds.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if !internal.ValidTokenShape(token) {
		return nil
	}
	return m.store.Delete(ctx, token)
}
