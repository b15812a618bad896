package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"

	"vatfiler/internal/accounts/metrics"
	"vatfiler/internal/accounts/models"
	"vatfiler/internal/accounts/secrets"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	audit "vatfiler/pkg/platform/audit"
	"vatfiler/pkg/platform/sentinel"
	"vatfiler/pkg/requestcontext"
)

const (
	minPasswordLength  = 8
	defaultSessionTTL  = 12 * time.Hour
	maxContactNameSize = 200
)

type AccountStore interface {
	CreateIfEmailAvailable(ctx context.Context, a *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
}

type SessionStore interface {
	Create(ctx context.Context, sess *models.Session) error
	Find(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
	List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error)
}

// Service registers accounts and logs them in.
type Service struct {
	accounts       AccountStore
	sessions       SessionStore
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	sessionTTL     time.Duration
	now            func() time.Time
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

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(accounts AccountStore, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		accounts:   accounts,
		sessions:   sessions,
		logger:     slog.New(slog.DiscardHandler),
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates req and creates the account. The role is the account
// type the user registered as.
func (s *Service) Register(ctx context.Context, req models.RegistrationRequest) (*models.Account, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveRegister(start)
	}

	req.Normalize()
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account := &models.Account{
		ID:           id.NewAccountID(),
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: hash,
		ContactName:  req.ContactName,
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		SoftwareVAT:  req.SoftwareVAT,
		SoftwareITSA: req.SoftwareITSA,
		CreatedAt:    s.clock(ctx),
	}
	if err := s.accounts.CreateIfEmailAvailable(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	if s.metrics != nil {
		s.metrics.IncrementAccountsCreated(account.Role.String())
	}
	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID,
		"role", account.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.EventAccountCreated, account.ID, account.Email, "")
	return account, nil
}

func validateRegistration(req models.RegistrationRequest) error {
	if !req.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid account type")
	}
	if !govalidator.StringLength(req.Email, "3", "254") || !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if req.ConfirmEmail != req.Email {
		return dErrors.New(dErrors.CodeValidation, "email addresses do not match")
	}
	if len(req.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if req.ConfirmPassword != req.Password {
		return dErrors.New(dErrors.CodeValidation, "passwords do not match")
	}
	if req.ContactName == "" {
		return dErrors.New(dErrors.CodeValidation, "contact name is required")
	}
	if len(req.ContactName) > maxContactNameSize {
		return dErrors.New(dErrors.CodeValidation, "contact name is too long")
	}
	if req.Phone != "" && !govalidator.Matches(req.Phone, `^\+?[0-9 ()-]{6,20}$`) {
		return dErrors.New(dErrors.CodeValidation, "invalid phone number")
	}
	if !req.Agreement {
		return dErrors.New(dErrors.CodeValidation, "the terms and conditions must be accepted")
	}
	return nil
}

// dummyHash is compared against when the email is unknown, so a miss costs
// the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, _ := secrets.HashPassword("vatfiler-dummy-password")
	return h
})

// Authenticate checks email and password. Any mismatch is CodeUnauthorized
// with the same message.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	hash := dummyHash()
	if account != nil {
		hash = account.PasswordHash
	}
	verifyErr := secrets.VerifyPassword(password, hash)
	if account == nil || verifyErr != nil {
		s.recordLogin(false)
		reason := "invalid_password"
		if account == nil {
			reason = "unknown_email"
		}
		s.emitAudit(ctx, audit.EventAuthFailed, id.AccountID{}, models.NormalizeEmail(email), reason)
		if verifyErr != nil && !dErrors.HasCode(verifyErr, dErrors.CodeUnauthorized) {
			return nil, dErrors.Wrap(verifyErr, dErrors.CodeInternal, "failed to verify password")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	s.recordLogin(true)
	return account, nil
}

// Login authenticates and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, *models.Account, error) {
	account, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.InfoContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
		)
		return nil, nil, err
	}

	token, err := secrets.Generate()
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	now := s.clock(ctx)
	sess := &models.Session{
		Token:     token,
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	s.logger.InfoContext(ctx, "login succeeded",
		"account_id", account.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.EventSessionCreated, account.ID, account.Email, "")
	return sess, account, nil
}

// Session resolves a session token.
func (s *Service) Session(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing session")
	}
	sess, err := s.sessions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired or unknown")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return sess, nil
}

// Activity returns the audit trail of the account behind a session token,
// oldest first. Without an audit publisher the trail is empty.
func (s *Service) Activity(ctx context.Context, token string) ([]audit.Event, error) {
	sess, err := s.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.auditPublisher == nil {
		return nil, nil
	}
	events, err := s.auditPublisher.List(ctx, sess.AccountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}
	return events, nil
}

// Logout ends a session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, findErr := s.sessions.Find(ctx, token)
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	if findErr == nil {
		s.emitAudit(ctx, audit.EventSessionRevoked, sess.AccountID, sess.Email, "logout")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, accountID id.AccountID, email, reason string) {
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:    action,
		AccountID: accountID,
		Email:     email,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Timestamp: s.clock(ctx),
	})
}

// clock prefers an injected clock, then the request's pinned time.
func (s *Service) clock(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(success)
	}
}
