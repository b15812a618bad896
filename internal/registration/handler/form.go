package handler

import (
	"net/url"

	"vatfiler/internal/registration/models"
	"vatfiler/internal/registration/view"
	dErrors "vatfiler/pkg/domain-errors"
)

// eventsFromForm turns one HTML form post into an event batch.
//
// Every form names its button in "action", except the mode pills which post
// select_mode=<mode>. The fields form also carries form_fields=1 and all of
// its inputs: changed text values become set_field events and checkboxes
// that differ from current become toggles, all ahead of the action so that
// register and select_mode see them. Secrets are never part of current, so
// a non-empty one is always sent. A fields post with nothing changed is an
// empty batch.
func eventsFromForm(form url.Values, current models.State) ([]models.Event, error) {
	var events []models.Event

	fieldsPost := isFieldsPost(form)
	if fieldsPost {
		for _, name := range models.TextFields {
			values, present := form[string(name)]
			if !present {
				continue
			}
			value := values[0]
			if name.IsSecret() {
				if value != "" {
					events = append(events, models.SetField(name, value))
				}
				continue
			}
			if value != current.Fields.Get(name) {
				events = append(events, models.SetField(name, value))
			}
		}
		checkboxes := []struct {
			name    string
			current bool
			toggle  models.Event
		}{
			{view.CheckboxSoftwareVAT, current.Fields.SoftwareVAT, models.ToggleSoftwareVAT()},
			{view.CheckboxSoftwareITSA, current.Fields.SoftwareITSA, models.ToggleSoftwareITSA()},
			{view.CheckboxAgreement, current.Fields.Agreement, models.ToggleAgreement()},
		}
		for _, cb := range checkboxes {
			if form.Has(cb.name) != cb.current {
				events = append(events, cb.toggle)
			}
		}
	}

	action, err := actionEvent(form)
	if err != nil {
		return nil, err
	}
	if action != nil {
		events = append(events, *action)
	}

	if len(events) == 0 && !fieldsPost {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "nothing to do")
	}
	return events, nil
}

// isFieldsPost reports whether form came from the registration fields form.
func isFieldsPost(form url.Values) bool {
	return form.Get("form_fields") == "1"
}

// submittedSecrets returns the non-empty secret inputs of a fields post.
func submittedSecrets(form url.Values) map[models.FieldName]string {
	if !isFieldsPost(form) {
		return nil
	}
	var secrets map[models.FieldName]string
	for _, name := range models.TextFields {
		if !name.IsSecret() {
			continue
		}
		if v := form.Get(string(name)); v != "" {
			if secrets == nil {
				secrets = make(map[models.FieldName]string)
			}
			secrets[name] = v
		}
	}
	return secrets
}

func actionEvent(form url.Values) (*models.Event, error) {
	kind := models.EventKind(form.Get("action"))
	modeValue := form.Get("mode")
	if kind == "" && form.Has(view.ButtonSelectMode) {
		kind = models.EventSelectMode
		modeValue = form.Get(view.ButtonSelectMode)
	}
	if kind == "" {
		return nil, nil
	}

	var e models.Event
	switch kind {
	case models.EventChooseAccount, models.EventSelectMode:
		mode, err := models.ParseMode(modeValue)
		if err != nil {
			return nil, err
		}
		e = models.Event{Kind: kind, Mode: mode}
	case models.EventOpenChooser, models.EventCloseChooser, models.EventRegister,
		models.EventToggleAgreement, models.EventToggleSoftwareVAT, models.EventToggleSoftwareITSA:
		e = models.Event{Kind: kind}
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown action")
	}
	return &e, nil
}
