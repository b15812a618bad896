package service

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vatfiler/internal/registration/metrics"
	"vatfiler/internal/registration/models"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	"vatfiler/pkg/platform/sentinel"
	"vatfiler/pkg/requestcontext"
)

// FlowStore persists flow state between requests.
//
// Update reads a flow, passes it to apply and writes what apply returns,
// failing rather than overwriting a concurrent write. An error from apply
// is returned unchanged and nothing is written. apply may run more than
// once.
type FlowStore interface {
	Create(ctx context.Context, flowID id.FlowID, st models.State) error
	Find(ctx context.Context, flowID id.FlowID) (models.State, error)
	Update(ctx context.Context, flowID id.FlowID, apply func(models.State) (models.State, error)) error
	Delete(ctx context.Context, flowID id.FlowID) error
}

// Registrar is the backend collaborator that turns a submission into an
// account.
type Registrar interface {
	Register(ctx context.Context, sub models.Submission) (*models.RegisteredAccount, error)
}

// Result is the outcome of a Dispatch.
type Result struct {
	State models.State
	// Account is set when the batch ended in a successful register. The flow
	// is finished and has been discarded.
	Account *models.RegisteredAccount
}

// Completed reports whether the batch created an account.
func (r *Result) Completed() bool {
	return r.Account != nil
}

const lockStripes = 64

// Service drives registration flows: it loads a flow, applies events to it
// and saves the result. Steps for one flow never interleave within a
// process.
type Service struct {
	flows     FlowStore
	registrar Registrar
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	locks     [lockStripes]sync.Mutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(flows FlowStore, registrar Registrar, opts ...Option) *Service {
	s := &Service{
		flows:     flows,
		registrar: registrar,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer("vatfiler/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a new flow in its initial state.
func (s *Service) Start(ctx context.Context) (id.FlowID, models.State, error) {
	flowID := id.NewFlowID()
	st := models.NewState()
	if err := s.flows.Create(ctx, flowID, st); err != nil {
		return id.FlowID{}, models.State{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create flow")
	}
	if s.metrics != nil {
		s.metrics.IncrementFlowsStarted()
	}
	s.logger.DebugContext(ctx, "registration flow started",
		"flow_id", flowID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return flowID, st, nil
}

// Get returns the current state of a flow.
func (s *Service) Get(ctx context.Context, flowID id.FlowID) (models.State, error) {
	st, err := s.flows.Find(ctx, flowID)
	if err != nil {
		return models.State{}, translateStoreErr(err, "failed to load flow")
	}
	return st, nil
}

// Dispatch applies a batch of events to a flow as one interaction. The batch
// is atomic: if any event is rejected nothing is saved. Register may only be
// the last event; when it succeeds the submission goes to the Registrar and
// the flow is discarded.
//
// Passwords are never stored with the flow, so they must travel in the same
// batch as the register event that uses them.
func (s *Service) Dispatch(ctx context.Context, flowID id.FlowID, events ...models.Event) (*Result, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveDispatch(start)
	}
	ctx, span := s.tracer.Start(ctx, "registration.Dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("flow.id", flowID.String()),
			attribute.Int("flow.events", len(events)),
		))
	defer span.End()

	res, err := s.dispatch(ctx, flowID, events)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (s *Service) dispatch(ctx context.Context, flowID id.FlowID, events []models.Event) (*Result, error) {
	if err := validateBatch(events); err != nil {
		s.recordEvents(events, "invalid")
		return nil, err
	}

	// The stripe lock keeps this process from racing itself; the store's
	// Update refuses writes that raced another process.
	mu := s.lockFor(flowID)
	mu.Lock()
	defer mu.Unlock()

	var (
		next     models.State
		rejected error
		stage    models.Stage
	)
	err := s.flows.Update(ctx, flowID, func(current models.State) (models.State, error) {
		applied, err := current.ApplyAll(events...)
		if err != nil {
			rejected, stage = err, current.Stage
			return models.State{}, err
		}
		rejected, next = nil, applied
		return applied.Redacted(), nil
	})
	if rejected != nil {
		result := "rejected"
		if dErrors.HasCode(rejected, dErrors.CodeInvalidInput) {
			result = "invalid"
		}
		s.recordEvents(events, result)
		s.logger.InfoContext(ctx, "flow event rejected",
			"flow_id", flowID,
			"stage", stage,
			"error", rejected,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, rejected
	}
	if err != nil {
		return nil, translateStoreErr(err, "failed to save flow")
	}
	s.recordEvents(events, "applied")

	res := &Result{State: next.Redacted()}
	if events[len(events)-1].Kind != models.EventRegister {
		return res, nil
	}

	account, err := s.register(ctx, flowID, next)
	if err != nil {
		return nil, err
	}
	res.Account = account
	return res, nil
}

func (s *Service) register(ctx context.Context, flowID id.FlowID, st models.State) (*models.RegisteredAccount, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Register",
		trace.WithAttributes(attribute.String("account.mode", st.Mode.String())))
	defer span.End()

	account, err := s.registrar.Register(ctx, st.Submission())
	if err != nil {
		span.RecordError(err)
		s.logger.InfoContext(ctx, "registration refused",
			"flow_id", flowID,
			"mode", st.Mode,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	if err := s.flows.Delete(ctx, flowID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		// The account exists; a stale flow only lingers until its TTL.
		s.logger.WarnContext(ctx, "failed to discard completed flow",
			"flow_id", flowID,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementRegistrations(st.Mode.String())
	}
	s.logger.InfoContext(ctx, "account registered",
		"flow_id", flowID,
		"account_id", account.ID,
		"mode", account.Mode,
		"request_id", requestcontext.RequestID(ctx),
	)
	return account, nil
}

// Reset discards a flow. Missing flows are not an error.
func (s *Service) Reset(ctx context.Context, flowID id.FlowID) error {
	mu := s.lockFor(flowID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.flows.Delete(ctx, flowID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset flow")
	}
	return nil
}

func validateBatch(events []models.Event) error {
	if len(events) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one event is required")
	}
	for i, e := range events {
		if e.Kind == models.EventRegister && i != len(events)-1 {
			return dErrors.New(dErrors.CodeInvalidInput, "register must be the last event")
		}
	}
	return nil
}

func (s *Service) recordEvents(events []models.Event, result string) {
	if s.metrics == nil {
		return
	}
	for _, e := range events {
		kind := string(e.Kind)
		if !e.Kind.IsValid() {
			kind = "unknown"
		}
		s.metrics.RecordEvent(kind, result)
	}
}

func (s *Service) lockFor(flowID id.FlowID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write(flowID[:])
	return &s.locks[h.Sum32()%lockStripes]
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration flow not found or expired")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "registration flow is being changed elsewhere, try again")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeInternal, msg+": store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
