package accounts

import (
	"log/slog"

	"vatfiler/internal/accounts/handler"
	"vatfiler/internal/accounts/service"
)

// Service exposes account registration and login.
type Service = service.Service

// Handler wires HTTP endpoints to the accounts service.
type Handler = handler.Handler

// NewService constructs the accounts service with required dependencies.
func NewService(accounts service.AccountStore, sessions service.SessionStore, opts ...service.Option) *Service {
	return service.New(accounts, sessions, opts...)
}

// NewHandler constructs the HTTP handler for the account API and login page.
func NewHandler(s *Service, pages handler.LoginPage, logger *slog.Logger, cfg handler.Config) *Handler {
	return handler.New(s, pages, logger, cfg)
}
