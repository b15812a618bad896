package models

import (
	dErrors "vatfiler/pkg/domain-errors"
)

// FieldName names one of the text inputs on the registration form.
type FieldName string

const (
	FieldEmail           FieldName = "email"
	FieldConfirmEmail    FieldName = "confirm_email"
	FieldPassword        FieldName = "password"
	FieldConfirmPassword FieldName = "confirm_password"
	FieldContactName     FieldName = "contact_name"
	FieldBusinessName    FieldName = "business_name"
	FieldPhone           FieldName = "phone"
)

// TextFields lists the text inputs in form order. Both modes share it.
var TextFields = []FieldName{
	FieldEmail,
	FieldConfirmEmail,
	FieldPassword,
	FieldConfirmPassword,
	FieldContactName,
	FieldBusinessName,
	FieldPhone,
}

// ParseFieldName validates a field name coming from a request.
func ParseFieldName(s string) (FieldName, error) {
	for _, f := range TextFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown field")
}

// IsSecret reports whether the field value must never be saved with the
// flow or rendered from it.
func (f FieldName) IsSecret() bool {
	return f == FieldPassword || f == FieldConfirmPassword
}

// Fields holds the form values. Nothing here is validated; the values only
// travel with the flow until register hands them to the account service.
type Fields struct {
	Email           string `json:"email"`
	ConfirmEmail    string `json:"confirm_email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ContactName     string `json:"contact_name"`
	BusinessName    string `json:"business_name"`
	Phone           string `json:"phone"`

	SoftwareVAT  bool `json:"software_vat"`
	SoftwareITSA bool `json:"software_itsa"`
	Agreement    bool `json:"agreement"`
}

// Get returns the value of a text field.
func (f Fields) Get(name FieldName) string {
	switch name {
	case FieldEmail:
		return f.Email
	case FieldConfirmEmail:
		return f.ConfirmEmail
	case FieldPassword:
		return f.Password
	case FieldConfirmPassword:
		return f.ConfirmPassword
	case FieldContactName:
		return f.ContactName
	case FieldBusinessName:
		return f.BusinessName
	case FieldPhone:
		return f.Phone
	}
	return ""
}

// with returns a copy of f with one text field replaced.
func (f Fields) with(name FieldName, value string) Fields {
	switch name {
	case FieldEmail:
		f.Email = value
	case FieldConfirmEmail:
		f.ConfirmEmail = value
	case FieldPassword:
		f.Password = value
	case FieldConfirmPassword:
		f.ConfirmPassword = value
	case FieldContactName:
		f.ContactName = value
	case FieldBusinessName:
		f.BusinessName = value
	case FieldPhone:
		f.Phone = value
	}
	return f
}
