package handler

import (
	"net/http"

	"vatfiler/internal/registration/models"
	dErrors "vatfiler/pkg/domain-errors"
	"vatfiler/pkg/platform/httputil"
	"vatfiler/pkg/requestcontext"
)

// flowResponse is the JSON view of a flow. Secrets are never included.
type flowResponse struct {
	Stage           models.Stage              `json:"stage"`
	Mode            models.Mode               `json:"mode"`
	ModalVisible    bool                      `json:"modal_visible"`
	RegisterEnabled bool                      `json:"register_enabled"`
	Fields          models.Fields             `json:"fields"`
	Completed       bool                      `json:"completed"`
	Account         *models.RegisteredAccount `json:"account,omitempty"`
}

func toFlowResponse(st models.State) flowResponse {
	st = st.Redacted()
	return flowResponse{
		Stage:           st.Stage,
		Mode:            st.Mode,
		ModalVisible:    st.ModalVisible(),
		RegisterEnabled: st.RegisterEnabled(),
		Fields:          st.Fields,
	}
}

// eventsRequest accepts either a single event object or {"events": [...]}.
type eventsRequest struct {
	models.Event
	Events []models.Event `json:"events,omitempty"`
}

func (req eventsRequest) batch() ([]models.Event, error) {
	switch {
	case len(req.Events) > 0 && req.Kind != "":
		return nil, dErrors.New(dErrors.CodeBadRequest, "send either one event or an events list")
	case len(req.Events) > 0:
		return req.Events, nil
	case req.Kind != "":
		return []models.Event{req.Event}, nil
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one event is required")
	}
}

func (h *Handler) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	_, st, err := h.currentFlow(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFlowResponse(st))
}

func (h *Handler) handleFlowEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flowID, ok := requestcontext.FlowID(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration flow not found or expired"))
		return
	}

	var req eventsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := req.batch()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Dispatch(ctx, flowID, events...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := toFlowResponse(res.State)
	if res.Completed() {
		h.clearFlowCookie(w)
		resp.Completed = true
		resp.Account = res.Account
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResetFlow(w http.ResponseWriter, r *http.Request) {
	if flowID, ok := requestcontext.FlowID(r.Context()); ok {
		if err := h.service.Reset(r.Context(), flowID); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.clearFlowCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if de, ok := dErrors.As(err); !ok || de.Code == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "registration flow failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
