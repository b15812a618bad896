package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertionsShareOneBody(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"conflict","email":"a@example.com","role":"agent"}`))
	})
	rr := DoRequest(h, NewRequest(t, http.MethodGet, "/"))

	AssertJSONContains(t, rr, "email", "a@example.com")
	AssertJSONContains(t, rr, "role", "agent")
	AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	assert.NotEmpty(t, ReadBody(t, rr))
}
