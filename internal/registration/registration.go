package registration

import (
	"log/slog"

	"vatfiler/internal/registration/handler"
	"vatfiler/internal/registration/service"
	"vatfiler/internal/registration/view"
)

// Service drives registration flows.
type Service = service.Service

// Handler wires the flow pages and JSON API to the service.
type Handler = handler.Handler

// Renderer writes the flow's HTML views.
type Renderer = view.Renderer

// NewService constructs the flow service with required dependencies.
func NewService(flows service.FlowStore, registrar service.Registrar, opts ...service.Option) *Service {
	return service.New(flows, registrar, opts...)
}

// NewRenderer loads the embedded copy catalog and prepares the templates.
func NewRenderer(basePath string) (*Renderer, error) {
	c, err := view.DefaultCopy()
	if err != nil {
		return nil, err
	}
	return view.NewRenderer(c, basePath)
}

// NewHandler constructs the HTTP handler for the flow.
func NewHandler(s *Service, r *Renderer, logger *slog.Logger, cfg handler.Config) *Handler {
	return handler.New(s, r, logger, cfg)
}
