package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"vatfiler/internal/registration/models"
	"vatfiler/internal/registration/service"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	"vatfiler/pkg/platform/httputil"
	"vatfiler/pkg/requestcontext"
)

// FlowCookie carries the flow ID between requests.
const FlowCookie = "vatfiler_flow"

// Service defines the flow operations the handler needs.
type Service interface {
	Start(ctx context.Context) (id.FlowID, models.State, error)
	Get(ctx context.Context, flowID id.FlowID) (models.State, error)
	Dispatch(ctx context.Context, flowID id.FlowID, events ...models.Event) (*service.Result, error)
	Reset(ctx context.Context, flowID id.FlowID) error
}

// Renderer writes the HTML views.
type Renderer interface {
	Page(w io.Writer, st models.State, secrets map[models.FieldName]string, errMsg string) error
	Terms(w io.Writer) error
}

// Config holds the handler's deployment settings.
type Config struct {
	// BasePath is where the flow pages are mounted. It starts and ends with /.
	BasePath string
	// StaticDir holds a prebuilt front-end bundle; its assets/ directory is
	// served under {BasePath}assets/ when it exists.
	StaticDir     string
	SecureCookies bool
	// LoginPath is where a completed registration lands.
	LoginPath string
}

// Handler serves the registration flow as HTML pages and as a JSON API.
type Handler struct {
	service  Service
	renderer Renderer
	logger   *slog.Logger
	cfg      Config
}

// New creates a registration Handler.
func New(service Service, renderer Renderer, logger *slog.Logger, cfg Config) *Handler {
	if cfg.BasePath == "" {
		cfg.BasePath = "/"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	return &Handler{service: service, renderer: renderer, logger: logger, cfg: cfg}
}

// Register wires the flow routes onto r.
func (h *Handler) Register(r chi.Router) {
	base := h.cfg.BasePath

	r.Group(func(r chi.Router) {
		r.Use(h.flowFromCookie)

		r.Get(base, h.handlePage)
		r.Post(base+"events", h.handlePageEvents)

		r.Get("/api/flows/current", h.handleGetFlow)
		r.Post("/api/flows/current/events", h.handleFlowEvents)
		r.Delete("/api/flows/current", h.handleResetFlow)
	})

	r.Get(base+"terms", h.handleTerms)
	if trimmed := strings.TrimSuffix(base, "/"); trimmed != "" {
		r.Get(trimmed, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, base, http.StatusMovedPermanently)
		})
	}

	if h.cfg.StaticDir != "" {
		assets := filepath.Join(h.cfg.StaticDir, "assets")
		if info, err := os.Stat(assets); err == nil && info.IsDir() {
			prefix := base + "assets/"
			r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(assets))))
		}
	}
}

// flowFromCookie binds a well-formed flow cookie to the request context.
// Whether the flow still exists is the service's business.
func (h *Handler) flowFromCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(FlowCookie); err == nil {
			if flowID, err := id.ParseFlowID(c.Value); err == nil {
				r = r.WithContext(requestcontext.WithFlowID(r.Context(), flowID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// currentFlow loads the caller's flow, starting a fresh one when there is
// none or it has expired.
func (h *Handler) currentFlow(w http.ResponseWriter, r *http.Request) (id.FlowID, models.State, error) {
	ctx := r.Context()
	if flowID, ok := requestcontext.FlowID(ctx); ok {
		st, err := h.service.Get(ctx, flowID)
		if err == nil {
			return flowID, st, nil
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.FlowID{}, models.State{}, err
		}
	}

	flowID, st, err := h.service.Start(ctx)
	if err != nil {
		return id.FlowID{}, models.State{}, err
	}
	h.setFlowCookie(w, flowID)
	return flowID, st, nil
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	_, st, err := h.currentFlow(w, r)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, st, nil, "")
}

// handlePageEvents applies one form post. The fields form carries every
// input, so its text values and checkbox diffs travel in the same batch as
// the button that was pressed.
//
// Passwords are never saved with the flow. A fields post that does not end
// in register is therefore answered in place, with the posted passwords
// echoed back, instead of redirecting to a page that would render them
// empty. Other posts redirect back to the flow.
func (h *Handler) handlePageEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flowID, ok := requestcontext.FlowID(ctx)
	if !ok {
		http.Redirect(w, r, h.cfg.BasePath, http.StatusSeeOther)
		return
	}
	current, err := h.service.Get(ctx, flowID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			http.Redirect(w, r, h.cfg.BasePath, http.StatusSeeOther)
			return
		}
		h.renderFailure(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, current, nil, "The form could not be read.")
		return
	}
	secrets := submittedSecrets(r.PostForm)
	events, err := eventsFromForm(r.PostForm, current)
	if err != nil {
		h.renderPage(w, r, httputil.StatusFor(dErrors.CodeInvalidInput), current, secrets, userMessage(err))
		return
	}
	if len(events) == 0 {
		h.renderPage(w, r, http.StatusOK, current, secrets, "")
		return
	}

	res, err := h.service.Dispatch(ctx, flowID, events...)
	if err != nil {
		h.rerenderAfterError(w, r, flowID, current, secrets, err)
		return
	}
	if res.Completed() {
		h.clearFlowCookie(w)
		q := url.Values{"registered": {"1"}, "email": {res.Account.Email}}
		http.Redirect(w, r, h.cfg.LoginPath+"?"+q.Encode(), http.StatusSeeOther)
		return
	}
	if isFieldsPost(r.PostForm) {
		h.renderPage(w, r, http.StatusOK, res.State, secrets, "")
		return
	}
	http.Redirect(w, r, h.cfg.BasePath, http.StatusSeeOther)
}

// rerenderAfterError shows the flow as it now stands with the error above
// it. A refused register has already saved the form values.
func (h *Handler) rerenderAfterError(w http.ResponseWriter, r *http.Request, flowID id.FlowID, fallback models.State, secrets map[models.FieldName]string, err error) {
	ctx := r.Context()
	de, ok := dErrors.As(err)
	if !ok || de.Code == dErrors.CodeInternal {
		h.renderFailure(w, r, err)
		return
	}
	if de.Code == dErrors.CodeNotFound {
		http.Redirect(w, r, h.cfg.BasePath, http.StatusSeeOther)
		return
	}
	st := fallback
	if latest, getErr := h.service.Get(ctx, flowID); getErr == nil {
		st = latest
	}
	h.logger.InfoContext(ctx, "flow event refused",
		"request_id", requestcontext.RequestID(ctx),
		"code", de.Code,
	)
	h.renderPage(w, r, httputil.StatusFor(de.Code), st, secrets, userMessage(err))
}

func (h *Handler) handleTerms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Terms(w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render terms",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

// renderPage writes the flow page for st. secrets, when set, are values the
// current request posted and go back into the password inputs.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, st models.State, secrets map[models.FieldName]string, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.renderer.Page(w, st.Redacted(), secrets, errMsg); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"request_id", requestcontext.RequestID(r.Context()),
			"stage", st.Stage,
			"error", err,
		)
	}
}

func (h *Handler) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "registration flow failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
	http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
}

// userMessage is the text shown above the page for a refused event.
func userMessage(err error) string {
	de, ok := dErrors.As(err)
	if !ok || de.Code == dErrors.CodeInternal {
		return "Something went wrong. Please try again."
	}
	msg := de.Message
	if msg == "" {
		return string(de.Code)
	}
	first, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(first)) + msg[size:] + "."
}

func (h *Handler) setFlowCookie(w http.ResponseWriter, flowID id.FlowID) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookie,
		Value:    flowID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearFlowCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
