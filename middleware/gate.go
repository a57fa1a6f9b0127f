package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/internal"
)

// ErrNoPeerAddress means the transport did not expose a usable peer address.
// It classifies as a server fault.
var ErrNoPeerAddress = errors.New("request has no peer address")

// Validator is the part of [nuggetauth.Engine] the gate needs.
type Validator interface {
	Validate(ctx context.Context, token, clientIP string) (nuggetauth.Identity, error)
}

// Authorize authenticates one request. authHeader is the raw Authorization
// header and remoteAddr the transport peer ("host:port"). Forwarding headers
// are never consulted.
//
// A missing or malformed header returns [nuggetauth.ErrUnauthorized] without
// touching the session store.
func Authorize(ctx context.Context, v Validator, authHeader, remoteAddr string) (nuggetauth.Identity, error) {
	if v == nil {
		return nuggetauth.Identity{}, nuggetauth.ErrEngineNotReady
	}
	token, ok := BearerToken(authHeader)
	if !ok {
		return nuggetauth.Identity{}, nuggetauth.ErrUnauthorized
	}
	ip, ok := internal.PeerIP(remoteAddr)
	if !ok {
		return nuggetauth.Identity{}, ErrNoPeerAddress
	}
	return v.Validate(ctx, token, ip)
}

// StatusFor maps an Authorize or Engine error to an HTTP status.
func StatusFor(err error) int {
	switch nuggetauth.Classify(err) {
	case nuggetauth.OutcomeSuccess:
		return http.StatusOK
	case nuggetauth.OutcomeInvalidCredential:
		return http.StatusUnauthorized
	case nuggetauth.OutcomeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the status for err with a body that does not reveal why
// a credential was rejected.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="nuggetauth"`)
		http.Error(w, "unauthorized", status)
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		http.Error(w, "service unavailable", status)
	default:
		http.Error(w, "internal server error", status)
	}
}

// BearerToken extracts the credential from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}
