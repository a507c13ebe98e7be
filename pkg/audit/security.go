// Package audit provides security audit logging for SIEM consumption.
// It logs portal authentication events in structured JSON format for easy
// parsing and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mananjary-mi/family-portal/pkg/apperrors"
	"github.com/mananjary-mi/family-portal/pkg/logging"
	"github.com/mananjary-mi/family-portal/pkg/middleware"
	"github.com/mananjary-mi/family-portal/pkg/session"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventLoginSucceeded is logged when a session is opened.
	EventLoginSucceeded SecurityEventType = "login_succeeded"
	// EventLoginFailed is logged when the backend rejects the credentials.
	EventLoginFailed SecurityEventType = "login_failed"
	// EventLoginRejected is logged when valid credentials belong to an account
	// that may not log in yet (pending validation, rejected).
	EventLoginRejected SecurityEventType = "login_rejected"
	// EventLogout is logged when a session is closed.
	EventLogout SecurityEventType = "logout"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	UserID    int64             `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"` // always redacted
	ClientIP  string            `json:"client_ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   any               `json:"details,omitempty"`
	Severity  string            `json:"severity"` // info, warning
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogLoginSucceeded records a successful login.
func (a *SecurityAuditor) LogLoginSucceeded(ctx context.Context, sess *session.Session, remoteAddr string) {
	a.emit(zap.InfoLevel, "Login succeeded", SecurityEvent{
		EventType: EventLoginSucceeded,
		SessionID: sess.ID.String(),
		UserID:    sess.UserID,
		Email:     logging.RedactEmail(sess.Email),
		ClientIP:  clientIP(remoteAddr),
		RequestID: middleware.RequestID(ctx),
		Details:   map[string]string{"user_type": sess.UserType},
		Severity:  "info",
	})
}

// LogLoginFailed records a refused login. Errors other than bad credentials
// or a refused account (backend outage, session store failure) are not
// security events and are ignored.
func (a *SecurityAuditor) LogLoginFailed(ctx context.Context, email string, err error, remoteAddr string) {
	eventType := EventLoginFailed
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
	case errors.Is(err, apperrors.ErrForbidden):
		eventType = EventLoginRejected
	default:
		return
	}

	a.emit(zap.WarnLevel, "Login refused", SecurityEvent{
		EventType: eventType,
		Email:     logging.RedactEmail(email),
		ClientIP:  clientIP(remoteAddr),
		RequestID: middleware.RequestID(ctx),
		Details:   map[string]string{"reason": logging.SanitizeError(err)},
		Severity:  "warning",
	})
}

// LogLogout records a closed session. The session is taken from ctx.
func (a *SecurityAuditor) LogLogout(ctx context.Context, remoteAddr string) {
	event := SecurityEvent{
		EventType: EventLogout,
		ClientIP:  clientIP(remoteAddr),
		RequestID: middleware.RequestID(ctx),
		Severity:  "info",
	}
	if sess, ok := session.FromContext(ctx); ok {
		event.SessionID = sess.ID.String()
		event.UserID = sess.UserID
		event.Email = logging.RedactEmail(sess.Email)
	}
	a.emit(zap.InfoLevel, "Logout", event)
}

func (a *SecurityAuditor) emit(level zapcore.Level, msg string, event SecurityEvent) {
	event.Timestamp = time.Now().UTC()

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Log(level, msg,
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.Int64("user_id", event.UserID),
		zap.String("client_ip", event.ClientIP),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// clientIP strips the port from an http.Request RemoteAddr.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
