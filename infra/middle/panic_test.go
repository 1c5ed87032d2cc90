package middle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mstgnz/signpay/infra/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		shouldPanic    bool
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "panic with string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("test panic")
			},
			expectedStatus: http.StatusInternalServerError,
			shouldPanic:    true,
		},
		{
			name: "panic with error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]int
				m["boom"] = 1
			},
			expectedStatus: http.StatusInternalServerError,
			shouldPanic:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := PanicRecoveryMiddleware("https://shop.example.com/")(tt.handler)

			req := httptest.NewRequest(http.MethodPost, "/v1/checkout/identity", nil)
			req.Header.Set("Accept", "application/json")
			req = req.WithContext(WithSessionID(req.Context(), "sess-1"))
			rr := httptest.NewRecorder()

			assert.NotPanics(t, func() { handler.ServeHTTP(rr, req) })
			assert.Equal(t, tt.expectedStatus, rr.Code)

			if tt.shouldPanic {
				assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))

				var resp response.Response
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				assert.Equal(t, "Internal server error", resp.Message)
				assert.NotContains(t, resp.Error, "test panic")
			}
		})
	}
}

func TestPanicRecoveryMiddleware_NavigationRedirects(t *testing.T) {
	handler := PanicRecoveryMiddleware("https://shop.example.com/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("finalize exploded")
	}))

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"fetch metadata navigate", map[string]string{"Sec-Fetch-Mode": "navigate"}, http.StatusFound},
		{"fetch metadata cors", map[string]string{"Sec-Fetch-Mode": "cors", "Accept": "text/html"}, http.StatusInternalServerError},
		{"html accept", map[string]string{"Accept": "text/html,application/xhtml+xml"}, http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/checkout/success?quote_id=7", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusFound {
				assert.Equal(t, "https://shop.example.com/", rr.Header().Get("Location"))
			}
		})
	}
}

func TestPanicRecoveryMiddleware_NoHomeURL(t *testing.T) {
	handler := PanicRecoveryMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/checkout/sign", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestPanicRecoveryMiddleware_AfterWrite(t *testing.T) {
	handler := PanicRecoveryMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() { handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestPanicRecoveryMiddleware_AbortHandler(t *testing.T) {
	handler := PanicRecoveryMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
