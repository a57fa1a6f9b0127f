package nuggetauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nuggetsync/nuggetauth/internal"
	"github.com/nuggetsync/nuggetauth/internal/rate"
	"github.com/nuggetsync/nuggetauth/password"
	"github.com/nuggetsync/nuggetauth/session"
	"go.uber.org/zap"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
)

// Engine orchestrates registration, login and session validation. Engine
// methods are safe for concurrent use once built.
type Engine struct {
	config       Config
	sessions     *session.Manager
	store        session.Store
	rateLimiter  *rate.Limiter
	passwordHash *password.Argon2
	dummyHash    string
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
	logger       *zap.Logger
}

// Close drains pending audit events. It does not close the session backend.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// SessionPolicy returns the session policy in force.
func (e *Engine) SessionPolicy() session.Policy {
	return e.sessions.Policy()
}

// Register creates an account. The password is hashed before it reaches the
// UserProvider and the returned User carries no credential fields.
func (e *Engine) Register(ctx context.Context, username, pass string) (User, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return User{}, ErrEngineNotReady
	}
	if err := validateUsername(username); err != nil {
		return User{}, err
	}
	if len(pass) < e.config.Password.MinLength || len(pass) > e.config.Password.MaxLength {
		return User{}, ErrPasswordPolicy
	}

	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrPasswordEmpty) || errors.Is(err, password.ErrPasswordTooLong) {
			return User{}, ErrPasswordPolicy
		}
		return User{}, err
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, 0, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"username": username}
			})
			return User{}, ErrAccountExists
		}
		return User{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.UserID, "", "", nil, nil)
	return publicUser(user), nil
}

// Login verifies a username and password and issues a session bound to
// clientIP. Unknown usernames and wrong passwords both return
// ErrInvalidCredentials after comparable work. A stored hash that cannot be
// parsed returns ErrMalformedStoredHash.
func (e *Engine) Login(ctx context.Context, username, pass, clientIP string) (LoginResult, error) {
	if e == nil || e.passwordHash == nil || e.sessions == nil || e.userProvider == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	ip := internal.CanonicalIP(clientIP)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return LoginResult{}, e.loginRateLimited(ctx, username, ip, 0)
			}
			e.metricInc(MetricStoreUnavailable)
			return LoginResult{}, fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, err)
		}
	}

	user, err := e.userProvider.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
		}
		// Same Argon2 cost as a real account.
		_, _ = e.passwordHash.Verify(pass, e.dummyHash)
		return LoginResult{}, e.loginFailed(ctx, username, ip, 0, "user_not_found")
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.logger.Error("stored credential hash is malformed", zap.Int64("user_id", user.UserID), zap.Error(err))
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", ip, ErrMalformedStoredHash, func() map[string]string {
			return map[string]string{"reason": "malformed_hash"}
		})
		return LoginResult{}, fmt.Errorf("%w: user %d", ErrMalformedStoredHash, user.UserID)
	}
	if !ok {
		return LoginResult{}, e.loginFailed(ctx, username, ip, user.UserID, "password_mismatch")
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, username); err != nil {
			e.logger.Warn("login throttle reset failed", zap.Error(err))
		}
	}
	e.maybeUpgradeHash(ctx, user, pass)

	token, err := e.sessions.Issue(ctx, user.UserID, ip)
	if err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			e.metricInc(MetricStoreUnavailable)
			return LoginResult{}, fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, err)
		}
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, "", ip, nil, nil)
	e.emitAudit(ctx, auditEventSessionIssued, true, user.UserID, token, ip, nil, nil)

	return LoginResult{Token: token, User: publicUser(user)}, nil
}

func (e *Engine) loginFailed(ctx context.Context, username, ip string, userID int64, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, username, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return e.loginRateLimited(ctx, username, ip, userID)
			}
			e.logger.Warn("login throttle increment failed", zap.Error(err))
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ip, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"username": username,
			"reason":   reason,
		}
	})
	return ErrInvalidCredentials
}

func (e *Engine) loginRateLimited(ctx context.Context, username, ip string, userID int64) error {
	e.metricInc(MetricLoginRateLimited)
	e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ip, ErrLoginRateLimited, func() map[string]string {
		return map[string]string{"username": username}
	})
	return ErrLoginRateLimited
}

func (e *Engine) maybeUpgradeHash(ctx context.Context, user UserRecord, pass string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	updater, ok := e.userProvider.(PasswordUpdater)
	if !ok {
		return
	}
	needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := e.passwordHash.Hash(pass)
	if err != nil {
		e.logger.Warn("password hash upgrade generation failed", zap.Int64("user_id", user.UserID))
		return
	}
	// Best-effort; never blocks a successful login.
	if err := updater.UpdatePasswordHash(ctx, user.UserID, upgraded); err != nil {
		e.logger.Warn("password hash upgrade update failed", zap.Int64("user_id", user.UserID), zap.Error(err))
	}
}

// Validate authenticates a presented session token for a request observed
// from clientIP. Every rejection is returned as ErrUnauthorized; the specific
// reason is recorded only in metrics, audit and logs.
func (e *Engine) Validate(ctx context.Context, token, clientIP string) (Identity, error) {
	if e == nil || e.sessions == nil {
		return Identity{}, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	v, err := e.sessions.Validate(ctx, token, clientIP)
	if err != nil {
		return Identity{}, e.validateFailed(ctx, token, clientIP, err)
	}

	if v.IPChanged {
		e.metricInc(MetricValidateIPChangedAdvisory)
		e.emitAudit(ctx, auditEventSessionIPChanged, true, v.UserID, token, clientIP, nil, nil)
	}
	e.metricInc(MetricValidateSuccess)

	return Identity{
		UserID:    v.UserID,
		IPChanged: v.IPChanged,
		ExpiresAt: v.ExpiresAt,
	}, nil
}

func (e *Engine) validateFailed(ctx context.Context, token, ip string, err error) error {
	var rej *session.Rejection
	switch {
	case errors.As(err, &rej):
		if rej.Reason == session.ReasonIPMismatch {
			e.metricInc(MetricValidateRejectIPMismatch)
			e.emitAudit(ctx, auditEventSessionRevokedIPMismatch, false, rej.UserID, token, ip, rej, nil)
			if rej.RevokeErr != nil {
				e.metricInc(MetricSessionRevokeFailed)
				e.logger.Warn("session revoke after ip mismatch failed",
					zap.String("session", internal.Fingerprint(token)),
					zap.Int64("user_id", rej.UserID),
					zap.Error(rej.RevokeErr),
				)
			}
		} else {
			e.metricInc(MetricValidateRejectNoSession)
			e.emitAudit(ctx, auditEventSessionRejected, false, 0, token, ip, rej, nil)
		}
		return ErrUnauthorized
	case errors.Is(err, session.ErrRecordCorrupt):
		e.logger.Error("session record corrupt", zap.String("session", internal.Fingerprint(token)), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSessionRecordCorrupt, err)
	case errors.Is(err, session.ErrStoreUnavailable):
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, err)
	default:
		return err
	}
}

// Logout revokes the session for token. Unknown tokens succeed.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if err := e.sessions.Revoke(ctx, token); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, 0, token, "", nil, nil)
	return nil
}

// Ping reports session backend health. Backends without health checks
// always succeed.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	p, ok := e.store.(session.Pinger)
	if !ok {
		return 0, nil
	}
	d, err := p.Ping(ctx)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrSessionBackendUnavailable, err)
	}
	return d, nil
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	for i := 0; i < len(username); i++ {
		c := username[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}
