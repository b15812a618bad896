package tui

import "vatfiler/internal/registration/models"

// Replay returns the events that take a fresh flow to sub and register it.
// A server replays them as one batch, so the register sees the secrets.
func Replay(sub models.Submission) []models.Event {
	events := []models.Event{
		models.OpenChooser(),
		models.ChooseAccount(sub.Mode),
	}
	values := map[models.FieldName]string{
		models.FieldEmail:           sub.Email,
		models.FieldConfirmEmail:    sub.ConfirmEmail,
		models.FieldPassword:        sub.Password,
		models.FieldConfirmPassword: sub.ConfirmPassword,
		models.FieldContactName:     sub.ContactName,
		models.FieldBusinessName:    sub.BusinessName,
		models.FieldPhone:           sub.Phone,
	}
	for _, f := range models.TextFields {
		if v := values[f]; v != "" {
			events = append(events, models.SetField(f, v))
		}
	}
	if sub.SoftwareVAT {
		events = append(events, models.ToggleSoftwareVAT())
	}
	if sub.SoftwareITSA {
		events = append(events, models.ToggleSoftwareITSA())
	}
	if sub.Agreement {
		events = append(events, models.ToggleAgreement())
	}
	return append(events, models.Register())
}
