package models

import (
	"strings"
	"time"

	id "vatfiler/pkg/domain"
)

// Account is a registered user. Email is stored normalised and is unique.
type Account struct {
	ID           id.AccountID   `json:"id"`
	Email        string         `json:"email"`
	Role         id.AccountType `json:"role"`
	PasswordHash string         `json:"-"`
	ContactName  string         `json:"contact_name"`
	BusinessName string         `json:"business_name,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	SoftwareVAT  bool           `json:"software_vat"`
	SoftwareITSA bool           `json:"software_itsa"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RegistrationRequest is the input to Register, from the flow or the JSON API.
type RegistrationRequest struct {
	Role            id.AccountType `json:"role"`
	Email           string         `json:"email"`
	ConfirmEmail    string         `json:"confirm_email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirm_password"`
	ContactName     string         `json:"contact_name"`
	BusinessName    string         `json:"business_name"`
	Phone           string         `json:"phone"`
	SoftwareVAT     bool           `json:"software_vat"`
	SoftwareITSA    bool           `json:"software_itsa"`
	Agreement       bool           `json:"agreement"`
}

// Normalize trims the free-text fields and lower-cases both emails.
// Passwords are left alone.
func (r *RegistrationRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.ConfirmEmail = NormalizeEmail(r.ConfirmEmail)
	r.ContactName = strings.TrimSpace(r.ContactName)
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.Phone = strings.TrimSpace(r.Phone)
}

// LoginRequest is the JSON body of POST /api/sessions.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
