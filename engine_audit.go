package nuggetauth

import (
	"context"
	"errors"
	"time"

	"github.com/nuggetsync/nuggetauth/internal"
	"github.com/nuggetsync/nuggetauth/password"
	"github.com/nuggetsync/nuggetauth/session"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventRegisterSuccess          = "register_success"
	auditEventRegisterDuplicate        = "register_duplicate"
	auditEventSessionIssued            = "session_issued"
	auditEventSessionRejected          = "session_rejected"
	auditEventSessionRevokedIPMismatch = "session_revoked_ip_mismatch"
	auditEventSessionIPChanged         = "session_ip_changed"
	auditEventLogout                   = "logout"
)

// AuditErrorCode is the coarse error label recorded on audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrIPMismatch         AuditErrorCode = "ip_mismatch"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInvalidUsername    AuditErrorCode = "invalid_username"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrMalformedHash      AuditErrorCode = "malformed_hash"
	auditErrCorruptRecord      AuditErrorCode = "corrupt_record"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	token string,
	ip string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ip,
		Success:   success,
		Metadata:  metadata,
	}
	if token != "" {
		event.Session = internal.Fingerprint(token)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var rej *session.Rejection
	if errors.As(err, &rej) {
		if rej.Reason == session.ReasonIPMismatch {
			return auditErrIPMismatch
		}
		return auditErrSessionNotFound
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrInvalidUsername):
		return auditErrInvalidUsername
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrMalformedStoredHash),
		errors.Is(err, password.ErrMalformedHash):
		return auditErrMalformedHash
	case errors.Is(err, ErrSessionRecordCorrupt),
		errors.Is(err, session.ErrRecordCorrupt):
		return auditErrCorruptRecord
	case errors.Is(err, ErrSessionBackendUnavailable),
		errors.Is(err, ErrUserStoreUnavailable),
		errors.Is(err, session.ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
