package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonno85/bin-relay/internal/domain"
)

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "caller-id", seen)
}

func TestRecoverer(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		value       any
		wantMessage string
	}{
		{name: "production string panic", value: "boom", wantMessage: "boom"},
		{name: "development error panic", development: true, value: errors.New("nil map"), wantMessage: "An error occurred while processing the file: nil map"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Recoverer(tt.development)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/process-bin", nil))

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			var env domain.RelayEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, domain.KindInternal, env.ErrorKind)
			assert.Equal(t, tt.wantMessage, env.Error)
			if tt.development {
				assert.NotEmpty(t, env.Stack)
				assert.NotEmpty(t, env.Name)
			} else {
				assert.Empty(t, env.Stack)
			}
		})
	}
}
