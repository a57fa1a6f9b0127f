// Package middleware is the authorization gate in front of protected
// handlers.
//
// [Authorize] extracts a bearer token from the Authorization header, takes
// the client address from the transport peer and asks the engine to
// validate. [Guard] wraps it for net/http and [GinGuard] for gin. Errors are
// mapped to 401, 503 or 500 through [StatusFor]; a 401 body never says why
// the credential was rejected.
package middleware
