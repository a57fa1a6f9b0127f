package nuggetauth

import (
	"errors"

	"github.com/nuggetsync/nuggetauth/password"
	"github.com/nuggetsync/nuggetauth/session"
)

var (
	// ErrUnauthorized is the single client-facing rejection for a token. It
	// does not say whether the token expired, was revoked or never existed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by a UserProvider for a missing username.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by Register and UserProvider.CreateUser for a taken username.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidUsername is returned by Register for a username outside the allowed shape.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrPasswordPolicy is returned by Register for a password outside the length policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrLoginRateLimited is returned by Login while the throttle window is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrMalformedStoredHash means a stored credential hash could not be parsed.
	ErrMalformedStoredHash = errors.New("malformed stored credential hash")
	// ErrSessionBackendUnavailable wraps session store and throttle outages.
	ErrSessionBackendUnavailable = errors.New("session backend unavailable")
	// ErrSessionRecordCorrupt means a stored session record could not be decoded.
	ErrSessionRecordCorrupt = errors.New("session record corrupt")
	// ErrUserStoreUnavailable wraps user repository failures.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrEngineNotReady is returned when an Engine was not built through Builder.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Outcome is the closed set of result kinds exposed to callers. Transport
// layers map outcomes, not individual errors, to status codes.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeInvalidCredential covers wrong passwords, missing or malformed
	// credentials and every session rejection.
	OutcomeInvalidCredential
	// OutcomeUnavailable is a temporary infrastructure fault; the caller may retry.
	OutcomeUnavailable
	// OutcomeServerFault is corrupt data or an unexpected error.
	OutcomeServerFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCredential:
		return "invalid_credential"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "server_fault"
	}
}

// Classify maps an error returned by the Engine onto an Outcome. A nil error
// is OutcomeSuccess; anything unrecognised is OutcomeServerFault.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, session.ErrRejected):
		return OutcomeInvalidCredential
	case errors.Is(err, ErrMalformedStoredHash),
		errors.Is(err, password.ErrMalformedHash),
		errors.Is(err, ErrSessionRecordCorrupt),
		errors.Is(err, session.ErrRecordCorrupt):
		return OutcomeServerFault
	case errors.Is(err, ErrSessionBackendUnavailable),
		errors.Is(err, session.ErrStoreUnavailable),
		errors.Is(err, ErrUserStoreUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeServerFault
	}
}
