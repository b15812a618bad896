package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vatfiler/internal/accounts/handler/mocks"
	"vatfiler/internal/accounts/models"
	"vatfiler/internal/platform/logger"
	id "vatfiler/pkg/domain"
	dErrors "vatfiler/pkg/domain-errors"
	audit "vatfiler/pkg/platform/audit"
	"vatfiler/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,LoginPage
type AccountsHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	pages   *mocks.MockLoginPage
	router  chi.Router
}

func TestAccountsHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountsHandlerSuite))
}

func (s *AccountsHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.pages = mocks.NewMockLoginPage(ctrl)
	s.router = chi.NewRouter()
	New(s.service, s.pages, logger.Discard(), Config{HomePath: "/app/"}).Register(s.router)
}

func testSession() *models.Session {
	return &models.Session{
		Token:     "tok-123",
		AccountID: id.NewAccountID(),
		Email:     "a@example.com",
		Role:      id.AccountTypeTaxpayer,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (s *AccountsHandlerSuite) TestCreateAccount() {
	s.Run("created", func() {
		account := &models.Account{ID: id.NewAccountID(), Email: "a@example.com", Role: id.AccountTypeAgent}
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.RegistrationRequest) (*models.Account, error) {
				s.Equal(id.AccountTypeAgent, req.Role)
				s.True(req.Agreement)
				return account, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/accounts", map[string]any{
			"role": "agent", "email": "a@example.com", "confirm_email": "a@example.com",
			"password": "longenough", "confirm_password": "longenough",
			"contact_name": "A", "agreement": true,
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "email", "a@example.com")
		testutil.AssertJSONContains(s.T(), rr, "role", "agent")
	})

	s.Run("duplicate is 409", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "user already exists"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/accounts", map[string]any{"email": "a@example.com"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("unknown fields are rejected", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/accounts", `{"admin":true}`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *AccountsHandlerSuite) TestCreateSession() {
	s.Run("sets the session cookie", func() {
		sess := testSession()
		s.service.EXPECT().Login(gomock.Any(), "a@example.com", "pw-123456").Return(sess, nil, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/sessions",
			models.LoginRequest{Email: "a@example.com", Password: "pw-123456"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		cookie := testutil.FindCookie(rr.Result(), SessionCookie)
		s.Require().NotNil(cookie)
		s.Equal("tok-123", cookie.Value)
		s.True(cookie.HttpOnly)
		testutil.AssertJSONContains(s.T(), rr, "email", "a@example.com")
	})

	s.Run("bad credentials are 401", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/sessions",
			models.LoginRequest{Email: "a@example.com", Password: "nope"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
		s.Nil(testutil.FindCookie(rr.Result(), SessionCookie))
	})
}

func (s *AccountsHandlerSuite) TestCurrentSession() {
	s.Run("reads the cookie", func() {
		s.service.EXPECT().Session(gomock.Any(), "tok-123").Return(testSession(), nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/sessions/current")
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("logout clears the cookie", func() {
		s.service.EXPECT().Logout(gomock.Any(), "tok-123").Return(nil)

		req := testutil.NewRequest(s.T(), http.MethodDelete, "/api/sessions/current")
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
		cookie := testutil.FindCookie(rr.Result(), SessionCookie)
		s.Require().NotNil(cookie)
		s.Less(cookie.MaxAge, 0)
	})
}

func (s *AccountsHandlerSuite) TestActivity() {
	s.Run("lists the account's events", func() {
		at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		s.service.EXPECT().Activity(gomock.Any(), "tok-123").Return([]audit.Event{
			{Action: audit.EventAccountCreated, Category: audit.CategoryCompliance, Timestamp: at, Email: "a@example.com"},
			{Action: audit.EventSessionCreated, Category: audit.CategorySecurity, Timestamp: at, ClientIP: "10.0.0.1"},
		}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/sessions/current/activity")
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		var body struct {
			Events []map[string]any `json:"events"`
		}
		s.Require().NoError(json.Unmarshal(testutil.ReadBody(s.T(), rr), &body))
		s.Require().Len(body.Events, 2)
		s.Equal(string(audit.EventAccountCreated), body.Events[0]["action"])
		s.NotContains(body.Events[0], "email")
		s.Equal("10.0.0.1", body.Events[1]["client_ip"])
	})

	s.Run("empty trail is an empty list", func() {
		s.service.EXPECT().Activity(gomock.Any(), "tok-123").Return(nil, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/api/sessions/current/activity")
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"events":[]}`, rr.Body.String())
	})

	s.Run("no session is 401", func() {
		s.service.EXPECT().Activity(gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "session not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/sessions/current/activity"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *AccountsHandlerSuite) TestLoginPage() {
	s.Run("shows the registered notice", func() {
		s.pages.EXPECT().Login(gomock.Any(), "a@example.com", "", true).DoAndReturn(
			func(w io.Writer, _, _ string, _ bool) error {
				_, err := io.WriteString(w, "<h1>Log in</h1>")
				return err
			})

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/login?registered=1&email=a@example.com", nil))
		testutil.AssertStatusOK(s.T(), rr)
		s.Contains(rr.Body.String(), "Log in")
	})

	s.Run("form login redirects home", func() {
		s.service.EXPECT().Login(gomock.Any(), "a@example.com", "pw-123456").Return(testSession(), nil, nil)

		rr := testutil.DoRequest(s.router, formRequest("/login", url.Values{
			"email": {"a@example.com"}, "password": {"pw-123456"},
		}))
		s.Equal(http.StatusSeeOther, rr.Code)
		s.Equal("/app/", rr.Header().Get("Location"))
		s.NotNil(testutil.FindCookie(rr.Result(), SessionCookie))
	})

	s.Run("form login failure re-renders with 401", func() {
		s.service.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		s.pages.EXPECT().Login(gomock.Any(), "a@example.com", "Invalid credentials.", false).Return(nil)

		rr := testutil.DoRequest(s.router, formRequest("/login", url.Values{
			"email": {"a@example.com"}, "password": {"wrong"},
		}))
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("logout redirects to login", func() {
		s.service.EXPECT().Logout(gomock.Any(), "").Return(nil)

		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/logout", nil))
		s.Equal(http.StatusSeeOther, rr.Code)
		s.Equal("/login", rr.Header().Get("Location"))
	})
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
