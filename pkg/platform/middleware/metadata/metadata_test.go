package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"vatfiler/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain takes first", map[string]string{"X-Forwarded-For": "203.0.113.10, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.10"},
		{"real ip header", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.2:1234", "198.51.100.7"},
		{"ipv4 remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote addr", nil, "[::1]:5555", "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadataPopulatesContext(t *testing.T) {
	var gotIP, gotUA, gotReqID string
	h := chimw.RequestID(ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
		gotReqID = requestcontext.RequestID(r.Context())
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	r.Header.Set("User-Agent", "vatfiler-test")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.1", gotIP)
	assert.Equal(t, "vatfiler-test", gotUA)
	assert.NotEmpty(t, gotReqID)
}
