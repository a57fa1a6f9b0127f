package middleware

import (
	"context"
	"net/http"

	"github.com/nuggetsync/nuggetauth"
	"go.uber.org/zap"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Guard].
func IdentityFromContext(ctx context.Context) (nuggetauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(nuggetauth.Identity)
	return id, ok
}

// Guard rejects requests without a valid session and stores the caller's
// identity in the request context.
func Guard(v Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authorize(r.Context(), v, r.Header.Get("Authorization"), r.RemoteAddr)
			if err != nil {
				logFailure(logger, r.URL.Path, err)
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logFailure(logger *zap.Logger, path string, err error) {
	switch nuggetauth.Classify(err) {
	case nuggetauth.OutcomeInvalidCredential:
		return
	case nuggetauth.OutcomeUnavailable:
		logger.Warn("session check unavailable", zap.String("path", path), zap.Error(err))
	default:
		logger.Error("session check failed", zap.String("path", path), zap.Error(err))
	}
}
