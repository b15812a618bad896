package domain

import (
	"github.com/google/uuid"

	dErrors "vatfiler/pkg/domain-errors"
)

// Typed identifiers keep flow and account IDs from being mixed up at
// compile time.
type (
	FlowID    uuid.UUID
	AccountID uuid.UUID
)

// NewFlowID returns a fresh random flow ID.
func NewFlowID() FlowID { return FlowID(uuid.New()) }

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

func (id FlowID) String() string    { return uuid.UUID(id).String() }
func (id AccountID) String() string { return uuid.UUID(id).String() }

func (id FlowID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id FlowID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *FlowID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AccountID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *AccountID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseFlowID parses a flow ID from untrusted input such as a cookie.
func ParseFlowID(s string) (FlowID, error) {
	u, err := parseUUID(s, "flow id")
	return FlowID(u), err
}

// ParseAccountID parses an account ID from untrusted input.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	return AccountID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
