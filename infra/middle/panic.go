package middle

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/response"
)

// PanicRecoveryMiddleware turns a panic into a logged 500. Browser
// navigations (the signing callbacks) are sent to homeURL instead of a JSON
// body when homeURL is set. http.ErrAbortHandler is re-raised for net/http.
func PanicRecoveryMiddleware(homeURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("Panic recovered", fmt.Errorf("%v", rec), logger.LogContext{
					SessionID: GetSessionID(r.Context()),
					RequestID: middleware.GetReqID(r.Context()),
					Fields: map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
						"stack":  string(debug.Stack()),
					},
				})

				// nothing sensible can follow a partly written response
				if ww.Status() != 0 {
					return
				}

				w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
				if homeURL != "" && isNavigation(r) {
					http.Redirect(w, r, homeURL, http.StatusFound)
					return
				}
				response.Error(w, http.StatusInternalServerError, "Internal server error", errors.New("an unexpected error occurred"))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// isNavigation reports whether a browser is loading a page, as opposed to a
// script calling the API
func isNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
