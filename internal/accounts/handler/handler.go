package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vatfiler/internal/accounts/models"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	audit "vatfiler/pkg/platform/audit"
	"vatfiler/pkg/platform/httputil"
	"vatfiler/pkg/requestcontext"
)

// SessionCookie carries the login session token.
const SessionCookie = "vatfiler_session"

// Service defines the account operations the handler needs.
type Service interface {
	Register(ctx context.Context, req models.RegistrationRequest) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*models.Session, *models.Account, error)
	Session(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
	Activity(ctx context.Context, token string) ([]audit.Event, error)
}

// LoginPage renders the HTML login form.
type LoginPage interface {
	Login(w io.Writer, email, errMsg string, registered bool) error
}

// Config holds the handler's deployment settings.
type Config struct {
	SecureCookies bool
	// HomePath is where a successful HTML login lands.
	HomePath string
}

// Handler serves the account JSON API and the login page.
type Handler struct {
	service Service
	pages   LoginPage
	logger  *slog.Logger
	cfg     Config
}

// New creates an accounts Handler.
func New(service Service, pages LoginPage, logger *slog.Logger, cfg Config) *Handler {
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	return &Handler{service: service, pages: pages, logger: logger, cfg: cfg}
}

// Register wires the account routes onto r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/accounts", h.handleCreateAccount)
	r.Post("/api/sessions", h.handleCreateSession)
	r.Get("/api/sessions/current", h.handleGetSession)
	r.Delete("/api/sessions/current", h.handleDeleteSession)
	r.Get("/api/sessions/current/activity", h.handleGetActivity)

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLoginForm)
	r.Get("/logout", h.handleLogout)
}

type accountResponse struct {
	ID        id.AccountID   `json:"id"`
	Email     string         `json:"email"`
	Role      id.AccountType `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Role: a.Role, CreatedAt: a.CreatedAt}
}

type sessionResponse struct {
	AccountID id.AccountID   `json:"account_id"`
	Email     string         `json:"email"`
	Role      id.AccountType `json:"role"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{AccountID: s.AccountID, Email: s.Email, Role: s.Role, ExpiresAt: s.ExpiresAt}
}

type activityEvent struct {
	Action    audit.AuditEvent    `json:"action"`
	Category  audit.EventCategory `json:"category"`
	Timestamp time.Time           `json:"timestamp"`
	Reason    string              `json:"reason,omitempty"`
	ClientIP  string              `json:"client_ip,omitempty"`
}

type activityResponse struct {
	Events []activityEvent `json:"events"`
}

func toActivityResponse(events []audit.Event) activityResponse {
	out := make([]activityEvent, 0, len(events))
	for _, e := range events {
		out = append(out, activityEvent{
			Action:    e.Action,
			Category:  e.Category,
			Timestamp: e.Timestamp,
			Reason:    e.Reason,
			ClientIP:  e.ClientIP,
		})
	}
	return activityResponse{Events: out}
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.RegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	account, err := h.service.Register(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "register failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess, _, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(ctx, w, err, "login failed")
		return
	}
	h.setSessionCookie(w, sess)
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), sessionToken(r))
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "session lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Activity(r.Context(), sessionToken(r))
	if err != nil {
		h.writeServiceError(r.Context(), w, err, "activity lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toActivityResponse(events))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), sessionToken(r)); err != nil {
		h.writeServiceError(r.Context(), w, err, "logout failed")
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	registered := r.URL.Query().Get("registered") == "1"
	h.renderLogin(w, r, http.StatusOK, r.URL.Query().Get("email"), "", registered)
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, "", "The form could not be read.", false)
		return
	}
	email := r.PostForm.Get("email")

	sess, _, err := h.service.Login(ctx, email, r.PostForm.Get("password"))
	if err != nil {
		status := httputil.StatusFor(dErrors.CodeInternal)
		msg := "Something went wrong. Please try again."
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			status = http.StatusUnauthorized
			msg = "Invalid credentials."
		} else {
			h.logger.ErrorContext(ctx, "login failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		h.renderLogin(w, r, status, email, msg, false)
		return
	}
	h.setSessionCookie(w, sess)
	http.Redirect(w, r, h.cfg.HomePath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), sessionToken(r)); err != nil {
		h.logger.WarnContext(r.Context(), "logout failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, errMsg string, registered bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Login(w, email, errMsg, registered); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render login page",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
