package models

import (
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
)

// Stage selects which top-level view the flow renders.
type Stage string

const (
	StageLanding  Stage = "landing"
	StageChoosing Stage = "choosing"
	StageForm     Stage = "form"
)

var validStages = map[Stage]bool{
	StageLanding:  true,
	StageChoosing: true,
	StageForm:     true,
}

// IsValid reports whether s is one of the three stages.
func (s Stage) IsValid() bool {
	return validStages[s]
}

func (s Stage) String() string {
	return string(s)
}

// Mode is the account type the form is labelled for. It survives stage
// transitions; only choose_account and select_mode change it.
type Mode = id.AccountType

const (
	ModeTaxpayer = id.AccountTypeTaxpayer
	ModeAgent    = id.AccountTypeAgent
)

// ParseMode validates a mode coming from a request.
func ParseMode(s string) (Mode, error) {
	m, err := id.ParseAccountType(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid mode")
	}
	return m, nil
}
