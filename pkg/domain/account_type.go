package domain

import dErrors "vatfiler/pkg/domain-errors"

// AccountType identifies who an account is for. It drives the registration
// form copy and becomes the account role once registered.
// Invariant: the value must be one of the supported account types.
//
// Usage: construct via ParseAccountType at trust boundaries; direct casting
// bypasses validation.
type AccountType string

const (
	AccountTypeTaxpayer AccountType = "taxpayer"
	AccountTypeAgent    AccountType = "agent"
)

var validAccountTypes = map[AccountType]bool{
	AccountTypeTaxpayer: true,
	AccountTypeAgent:    true,
}

// ParseAccountType constructs an AccountType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseAccountType(s string) (AccountType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account type cannot be empty")
	}
	t := AccountType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid account type")
	}
	return t, nil
}

// IsValid checks if the account type is one of the supported values.
func (t AccountType) IsValid() bool {
	return validAccountTypes[t]
}

func (t AccountType) String() string {
	return string(t)
}
