package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"vatfiler/internal/accounts/metrics"
	"vatfiler/internal/accounts/models"
	"vatfiler/internal/accounts/store/account"
	"vatfiler/internal/accounts/store/session"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	audit "vatfiler/pkg/platform/audit"
	"vatfiler/pkg/platform/audit/publisher"
	auditmemory "vatfiler/pkg/platform/audit/store/memory"
)

type AccountServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	accounts *account.InMemory
	sessions *session.InMemory
	metrics  *metrics.Metrics
	audit    *auditmemory.InMemoryStore
	service  *Service
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.accounts = account.NewInMemory()
	s.sessions = session.NewInMemory(session.WithClock(clock))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.audit = auditmemory.NewInMemoryStore()
	s.service = New(s.accounts, s.sessions,
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithClock(clock),
		WithSessionTTL(time.Hour),
	)
}

func validRequest() models.RegistrationRequest {
	return models.RegistrationRequest{
		Role:            id.AccountTypeAgent,
		Email:           "  Agent@Example.com ",
		ConfirmEmail:    "agent@example.com",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
		ContactName:     "Ada Agent",
		BusinessName:    "Agent & Co",
		Phone:           "+44 20 7946 0000",
		SoftwareVAT:     true,
		Agreement:       true,
	}
}

func (s *AccountServiceSuite) TestRegister() {
	s.Run("creates the account with a hashed password", func() {
		a, err := s.service.Register(s.ctx, validRequest())
		s.Require().NoError(err)
		s.Equal("agent@example.com", a.Email)
		s.Equal(id.AccountTypeAgent, a.Role)
		s.Equal(s.now, a.CreatedAt)
		s.NotEqual("s3cret-pass", a.PasswordHash)
		s.True(a.SoftwareVAT)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AccountsCreated.WithLabelValues("agent")))
	})

	s.Run("duplicate email is a conflict", func() {
		req := validRequest()
		req.Email = "AGENT@example.com"
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "user already exists")
	})
}

func (s *AccountServiceSuite) TestRegisterValidation() {
	cases := []struct {
		name   string
		mutate func(r *models.RegistrationRequest)
	}{
		{"unknown role", func(r *models.RegistrationRequest) { r.Role = "admin" }},
		{"malformed email", func(r *models.RegistrationRequest) { r.Email, r.ConfirmEmail = "nope", "nope" }},
		{"emails differ", func(r *models.RegistrationRequest) { r.ConfirmEmail = "other@example.com" }},
		{"short password", func(r *models.RegistrationRequest) { r.Password, r.ConfirmPassword = "short", "short" }},
		{"passwords differ", func(r *models.RegistrationRequest) { r.ConfirmPassword = "different-pass" }},
		{"missing contact name", func(r *models.RegistrationRequest) { r.ContactName = "   " }},
		{"bad phone", func(r *models.RegistrationRequest) { r.Phone = "call me" }},
		{"terms not accepted", func(r *models.RegistrationRequest) { r.Agreement = false }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := validRequest()
			tc.mutate(&req)
			_, err := s.service.Register(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}

	n, err := s.accounts.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *AccountServiceSuite) TestLogin() {
	_, err := s.service.Register(s.ctx, validRequest())
	s.Require().NoError(err)

	s.Run("valid credentials open a session", func() {
		sess, a, err := s.service.Login(s.ctx, "agent@example.com", "s3cret-pass")
		s.Require().NoError(err)
		s.NotEmpty(sess.Token)
		s.Equal(a.ID, sess.AccountID)
		s.Equal(s.now.Add(time.Hour), sess.ExpiresAt)

		found, err := s.service.Session(s.ctx, sess.Token)
		s.Require().NoError(err)
		s.Equal(a.ID, found.AccountID)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, _, errPass := s.service.Login(s.ctx, "agent@example.com", "wrong-pass")
		_, _, errUser := s.service.Login(s.ctx, "ghost@example.com", "s3cret-pass")
		s.True(dErrors.HasCode(errPass, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(errUser, dErrors.CodeUnauthorized))
		s.Equal(errPass.Error(), errUser.Error())
		s.Equal(2.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues("failure")))
	})

	s.Run("sessions expire", func() {
		sess, _, err := s.service.Login(s.ctx, "agent@example.com", "s3cret-pass")
		s.Require().NoError(err)
		s.now = s.now.Add(2 * time.Hour)
		_, err = s.service.Session(s.ctx, sess.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("logout ends the session", func() {
		sess, _, err := s.service.Login(s.ctx, "agent@example.com", "s3cret-pass")
		s.Require().NoError(err)
		s.Require().NoError(s.service.Logout(s.ctx, sess.Token))
		_, err = s.service.Session(s.ctx, sess.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.NoError(s.service.Logout(s.ctx, sess.Token))
	})
}

func (s *AccountServiceSuite) TestAuditTrail() {
	a, err := s.service.Register(s.ctx, validRequest())
	s.Require().NoError(err)

	_, err = s.service.Authenticate(s.ctx, "agent@example.com", "wrong-password")
	s.Require().Error(err)
	_, err = s.service.Authenticate(s.ctx, "nobody@example.com", "whatever1")
	s.Require().Error(err)

	sess, _, err := s.service.Login(s.ctx, "agent@example.com", "s3cret-pass")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Logout(s.ctx, sess.Token))

	mine, err := s.audit.ListByAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(mine, 3)
	s.Equal(audit.EventAccountCreated, mine[0].Action)
	s.Equal(audit.CategoryCompliance, mine[0].Category)
	s.Equal(audit.EventSessionCreated, mine[1].Action)
	s.Equal(audit.EventSessionRevoked, mine[2].Action)

	recent, err := s.audit.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	var failures []string
	for _, e := range recent {
		if e.Action == audit.EventAuthFailed {
			failures = append(failures, e.Reason)
			s.True(e.AccountID.IsNil())
		}
	}
	s.ElementsMatch([]string{"invalid_password", "unknown_email"}, failures)
}

func (s *AccountServiceSuite) TestActivity() {
	_, err := s.service.Register(s.ctx, validRequest())
	s.Require().NoError(err)
	sess, _, err := s.service.Login(s.ctx, "agent@example.com", "s3cret-pass")
	s.Require().NoError(err)

	s.Run("lists the session owner's events oldest first", func() {
		events, err := s.service.Activity(s.ctx, sess.Token)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.EventAccountCreated, events[0].Action)
		s.Equal(audit.EventSessionCreated, events[1].Action)
	})

	s.Run("unknown token is unauthorized", func() {
		_, err := s.service.Activity(s.ctx, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("no publisher means no events", func() {
		bare := New(s.accounts, s.sessions, WithClock(func() time.Time { return s.now }))
		events, err := bare.Activity(s.ctx, sess.Token)
		s.Require().NoError(err)
		s.Empty(events)
	})
}
