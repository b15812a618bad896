package models

import (
	"errors"
	"fmt"
	"time"

	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	"vatfiler/pkg/platform/sentinel"
)

// ErrRegisterDisabled is returned for register while the terms are not
// accepted. It also matches sentinel.ErrInvalidState.
var ErrRegisterDisabled = errors.New("register is disabled until the terms are accepted")

// State is the whole registration view state. It is a plain value: Apply
// returns a new State and never mutates its receiver.
//
// Invariants:
//   - Stage is one of landing, choosing, form
//   - the chooser can only be visible while Stage is choosing
//   - Mode is kept across stage transitions
//   - Register is actionable only in form with Agreement set
type State struct {
	Stage Stage `json:"stage"`
	Mode  Mode  `json:"mode"`
	// ChooserDismissed records that the chooser was closed without a choice.
	// It only has meaning while Stage is choosing and is cleared whenever the
	// chooser opens.
	ChooserDismissed bool   `json:"chooser_dismissed,omitempty"`
	Fields           Fields `json:"fields"`
}

// NewState returns the state a fresh flow starts in.
func NewState() State {
	return State{Stage: StageLanding, Mode: ModeTaxpayer}
}

// ModalVisible reports whether the account-type chooser overlay is shown.
func (s State) ModalVisible() bool {
	return s.Stage == StageChoosing && !s.ChooserDismissed
}

// RegisterEnabled reports whether the Register control is actionable.
func (s State) RegisterEnabled() bool {
	return s.Stage == StageForm && s.Fields.Agreement
}

// Validate checks a state loaded from outside (a store, a client).
func (s State) Validate() error {
	if !s.Stage.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown stage")
	}
	if !s.Mode.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown mode")
	}
	if s.ChooserDismissed && s.Stage != StageChoosing {
		return dErrors.New(dErrors.CodeInvariantViolation, "chooser dismissed outside choosing stage")
	}
	return nil
}

// Apply returns the state after e. When e is not allowed in the current
// stage the receiver is returned unchanged with a CodeInvalidTransition
// error wrapping sentinel.ErrInvalidState. Malformed events yield
// CodeInvalidInput.
func (s State) Apply(e Event) (State, error) {
	if err := e.Validate(); err != nil {
		return s, err
	}

	switch e.Kind {
	case EventOpenChooser:
		// The hero and its call to action stay on screen after the chooser
		// is dismissed, so a dismissed chooser may be reopened.
		if s.Stage != StageLanding && !(s.Stage == StageChoosing && s.ChooserDismissed) {
			return s, invalidTransition(e.Kind, s.Stage)
		}
		s.Stage = StageChoosing
		s.ChooserDismissed = false
		return s, nil

	case EventChooseAccount:
		if s.Stage != StageChoosing {
			return s, invalidTransition(e.Kind, s.Stage)
		}
		s.Mode = e.Mode
		s.Stage = StageForm
		s.ChooserDismissed = false
		return s, nil

	case EventCloseChooser:
		// Hides the overlay but does not leave the choosing stage.
		if s.Stage != StageChoosing {
			return s, invalidTransition(e.Kind, s.Stage)
		}
		s.ChooserDismissed = true
		return s, nil
	}

	// Everything else needs the form.
	if s.Stage != StageForm {
		return s, invalidTransition(e.Kind, s.Stage)
	}

	switch e.Kind {
	case EventSelectMode:
		s.Mode = e.Mode
	case EventToggleAgreement:
		s.Fields.Agreement = !s.Fields.Agreement
	case EventToggleSoftwareVAT:
		s.Fields.SoftwareVAT = !s.Fields.SoftwareVAT
	case EventToggleSoftwareITSA:
		s.Fields.SoftwareITSA = !s.Fields.SoftwareITSA
	case EventSetField:
		s.Fields = s.Fields.with(e.Field, e.Value)
	case EventRegister:
		if !s.Fields.Agreement {
			return s, dErrors.Wrap(
				fmt.Errorf("%w: %w", ErrRegisterDisabled, sentinel.ErrInvalidState),
				dErrors.CodeInvalidTransition, ErrRegisterDisabled.Error())
		}
	}
	return s, nil
}

// ApplyAll folds events over s, stopping at the first error.
func (s State) ApplyAll(events ...Event) (State, error) {
	var err error
	for _, e := range events {
		if s, err = s.Apply(e); err != nil {
			return s, err
		}
	}
	return s, nil
}

func invalidTransition(kind EventKind, stage Stage) error {
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidTransition,
		fmt.Sprintf("%s is not allowed in the %s stage", kind, stage))
}

// Submission is the payload handed to the account service on register.
type Submission struct {
	Mode            Mode   `json:"mode"`
	Email           string `json:"email"`
	ConfirmEmail    string `json:"confirm_email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ContactName     string `json:"contact_name"`
	BusinessName    string `json:"business_name"`
	Phone           string `json:"phone"`
	SoftwareVAT     bool   `json:"software_vat"`
	SoftwareITSA    bool   `json:"software_itsa"`
	Agreement       bool   `json:"agreement"`
}

// Submission collects the form values and mode for the register call.
func (s State) Submission() Submission {
	f := s.Fields
	return Submission{
		Mode:            s.Mode,
		Email:           f.Email,
		ConfirmEmail:    f.ConfirmEmail,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
		ContactName:     f.ContactName,
		BusinessName:    f.BusinessName,
		Phone:           f.Phone,
		SoftwareVAT:     f.SoftwareVAT,
		SoftwareITSA:    f.SoftwareITSA,
		Agreement:       f.Agreement,
	}
}

// Redacted returns a copy safe to hand back to a client: secrets are blanked.
func (s State) Redacted() State {
	s.Fields.Password = ""
	s.Fields.ConfirmPassword = ""
	return s
}

// RegisteredAccount is what the account service reports back on register.
type RegisteredAccount struct {
	ID        id.AccountID `json:"id"`
	Email     string       `json:"email"`
	Mode      Mode         `json:"mode"`
	CreatedAt time.Time    `json:"created_at"`
}
