package middle

import (
	"mime"
	"net/http"
	"net/netip"
	"strings"

	"github.com/mstgnz/signpay/infra/logger"
	"github.com/mstgnz/signpay/infra/response"
)

// maxRequestBytes is far above any checkout request
const maxRequestBytes = 1 << 20

// SecurityHeadersMiddleware adds browser hardening headers. HSTS is only sent
// over TLS, directly or behind a proxy, so local http checkouts keep working.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPWhitelistMiddleware restricts access to the listed addresses and CIDR
// ranges. An empty list allows everyone; unparsable entries are skipped.
func IPWhitelistMiddleware(entries []string) func(http.Handler) http.Handler {
	var allowed []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := parseAllowed(entry)
		if err != nil {
			logger.Warn("Ignoring invalid IP whitelist entry", logger.LogContext{
				Fields: map[string]any{"entry": entry, "error": err.Error()},
			})
			continue
		}
		allowed = append(allowed, prefix)
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr, err := netip.ParseAddr(GetClientIP(r))
			if err != nil || !containsAddr(allowed, addr.Unmap()) {
				response.Error(w, http.StatusForbidden, "IP not whitelisted", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseAllowed(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		return netip.ParsePrefix(entry)
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RequestValidationMiddleware checks the content type and size of request
// bodies. The signed callback is posted by the provider and may be form
// encoded or empty; every other body must be JSON.
func RequestValidationMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestBytes {
				response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
				return
			}

			if hasBody(r.Method) {
				if status, message := checkContentType(r); status != 0 {
					response.Error(w, status, message, nil)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func checkContentType(r *http.Request) (int, string) {
	raw := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(raw)

	if strings.HasSuffix(strings.TrimRight(r.URL.Path, "/"), "/checkout/signed") {
		switch {
		case raw == "", mediaType == "application/json", mediaType == "application/x-www-form-urlencoded":
			return 0, ""
		default:
			return http.StatusUnsupportedMediaType, "Content-Type must be application/json or application/x-www-form-urlencoded"
		}
	}

	switch {
	case raw == "" && r.ContentLength == 0:
		return 0, ""
	case raw == "":
		return http.StatusBadRequest, "Content-Type header is required"
	case mediaType != "application/json":
		return http.StatusUnsupportedMediaType, "Content-Type must be application/json"
	}
	return 0, ""
}
