package audit

import (
	"context"
	"time"

	id "vatfiler/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance, such as
	// account creation.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers auth failures, revocations and throttling.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity like session creation.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventAccountCreated    AuditEvent = "account_created"
	EventSessionCreated    AuditEvent = "session_created"
	EventSessionRevoked    AuditEvent = "session_revoked"
	EventAuthFailed        AuditEvent = "auth_failed"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountCreated:    CategoryCompliance,
	EventAuthFailed:        CategorySecurity,
	EventSessionRevoked:    CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,
	EventSessionCreated:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. AccountID is
// zero for events with no known account, such as a failed login.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    AuditEvent
	AccountID id.AccountID
	Email     string
	Reason    string
	RequestID string
	ClientIP  string
}

// Store persists audit events. It is append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
