// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/eatandearn/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (signup, login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Ledger controls logging for credit events (earn, redeem, assignment, completion).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Ledger string
}

// EventStore persists audit events. *audit.Store satisfies it.
type EventStore interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via an EventStore) and structured logs (via zap).
type Logger struct {
	store  EventStore
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store EventStore, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.ActorRole != "" {
		fields = append(fields, zap.String("actor_role", event.ActorRole))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryLedger:
		setting = l.config.Ledger
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// Signup logs a new self-registered account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignup,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// OrgEnrolled logs a newly enrolled organization.
func (l *Logger) OrgEnrolled(ctx context.Context, r *http.Request, orgID, orgName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventOrgEnrolled,
		UserID:    orgID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"org_name": orgName},
	})
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, role, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"role":  role,
			"email": email,
		},
	})
}

// LoginFailedUserNotFound logs a failed login due to an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        userID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Ledger Events ---

// Actor identifies who asked for a ledger change.
type Actor struct {
	ID   string
	Role string
}

// CreditsEarned logs an applied earn.
func (l *Logger) CreditsEarned(ctx context.Context, actor Actor, userID, creditType string, amount, balance int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventCreditsEarned,
		UserID:    userID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"credit_type": creditType,
			"amount":      int64ToString(amount),
			"balance":     int64ToString(balance),
		},
	})
}

// CreditsRedeemed logs an applied redeem.
func (l *Logger) CreditsRedeemed(ctx context.Context, actor Actor, userID, creditType string, amount, balance int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventCreditsRedeemed,
		UserID:    userID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"credit_type": creditType,
			"amount":      int64ToString(amount),
			"balance":     int64ToString(balance),
		},
	})
}

// EventAssigned logs a homeless person taking a position at an event.
func (l *Logger) EventAssigned(ctx context.Context, actor Actor, homelessID, orgID string, eventIndex int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventEventAssigned,
		UserID:    homelessID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"org_id":      orgID,
			"event_index": strconv.Itoa(eventIndex),
		},
	})
}

// EventCompleted logs a completed event and the resulting balances.
func (l *Logger) EventCompleted(ctx context.Context, actor Actor, homelessID, orgID string, eventIndex int, shelter, food int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventEventCompleted,
		UserID:    homelessID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"org_id":          orgID,
			"event_index":     strconv.Itoa(eventIndex),
			"shelter_credits": int64ToString(shelter),
			"food_credits":    int64ToString(food),
		},
	})
}

// ProviderRedemption logs credits spent at a provider.
func (l *Logger) ProviderRedemption(ctx context.Context, actor Actor, homelessID, providerID string, amount, balance, quota int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventProviderRedemption,
		UserID:    homelessID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"provider_id": providerID,
			"amount":      int64ToString(amount),
			"balance":     int64ToString(balance),
			"quota":       int64ToString(quota),
		},
	})
}

// HomelessRegistered logs an NGO registering a homeless person.
func (l *Logger) HomelessRegistered(ctx context.Context, actor Actor, homelessID string, shelter, food int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventHomelessRegistered,
		UserID:    homelessID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"shelter_credits": int64ToString(shelter),
			"food_credits":    int64ToString(food),
		},
	})
}

// EventPosted logs an organization posting an event.
func (l *Logger) EventPosted(ctx context.Context, actor Actor, eventIndex int, eventName string, positions int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLedger,
		EventType: audit.EventEventPosted,
		UserID:    actor.ID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Success:   true,
		Details: map[string]string{
			"event_index": strconv.Itoa(eventIndex),
			"event_name":  eventName,
			"positions":   strconv.Itoa(positions),
		},
	})
}

// LedgerFailure logs a rejected ledger command with the failure code.
func (l *Logger) LedgerFailure(ctx context.Context, eventType string, actor Actor, userID, code string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryLedger,
		EventType:     eventType,
		UserID:        userID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Success:       false,
		FailureReason: code,
	})
}

func int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}
