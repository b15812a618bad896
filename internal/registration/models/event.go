package models

import (
	dErrors "vatfiler/pkg/domain-errors"
)

// EventKind tags an Event.
type EventKind string

const (
	EventOpenChooser        EventKind = "open_chooser"
	EventChooseAccount      EventKind = "choose_account"
	EventCloseChooser       EventKind = "close_chooser"
	EventSelectMode         EventKind = "select_mode"
	EventToggleAgreement    EventKind = "toggle_agreement"
	EventToggleSoftwareVAT  EventKind = "toggle_software_vat"
	EventToggleSoftwareITSA EventKind = "toggle_software_itsa"
	EventSetField           EventKind = "set_field"
	EventRegister           EventKind = "register"
)

var validEventKinds = map[EventKind]bool{
	EventOpenChooser:        true,
	EventChooseAccount:      true,
	EventCloseChooser:       true,
	EventSelectMode:         true,
	EventToggleAgreement:    true,
	EventToggleSoftwareVAT:  true,
	EventToggleSoftwareITSA: true,
	EventSetField:           true,
	EventRegister:           true,
}

// IsValid reports whether k is a known event kind.
func (k EventKind) IsValid() bool {
	return validEventKinds[k]
}

// Event is one user interaction. Mode is read by choose_account and
// select_mode; Field and Value by set_field.
type Event struct {
	Kind  EventKind `json:"kind"`
	Mode  Mode      `json:"mode,omitempty"`
	Field FieldName `json:"field,omitempty"`
	Value string    `json:"value,omitempty"`
}

// Validate checks that the event carries the payload its kind needs.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown event kind")
	}
	switch e.Kind {
	case EventChooseAccount, EventSelectMode:
		if !e.Mode.IsValid() {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid mode")
		}
	case EventSetField:
		if _, err := ParseFieldName(string(e.Field)); err != nil {
			return err
		}
	}
	return nil
}

// Convenience constructors.

func OpenChooser() Event { return Event{Kind: EventOpenChooser} }
func CloseChooser() Event { return Event{Kind: EventCloseChooser} }
func ChooseAccount(m Mode) Event { return Event{Kind: EventChooseAccount, Mode: m} }
func SelectMode(m Mode) Event { return Event{Kind: EventSelectMode, Mode: m} }
func ToggleAgreement() Event { return Event{Kind: EventToggleAgreement} }
func ToggleSoftwareVAT() Event { return Event{Kind: EventToggleSoftwareVAT} }
func ToggleSoftwareITSA() Event { return Event{Kind: EventToggleSoftwareITSA} }
func Register() Event { return Event{Kind: EventRegister} }
func SetField(f FieldName, v string) Event {
	return Event{Kind: EventSetField, Field: f, Value: v}
}
