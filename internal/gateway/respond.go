package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/flemzord/phrasecue/internal/quota"
)

type errorResponse struct {
	Error string `json:"error"`
}

type rateLimitResponse struct {
	Error               string `json:"error"`
	RetryAfterSeconds   int    `json:"retryAfterSeconds"`
	RetryAfterFormatted string `json:"retryAfterFormatted"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeRateLimited emits the denial body with retry hints. The generic
// throttle uses 429; the paywall uses 403.
func writeRateLimited(w http.ResponseWriter, code int, msg string, d quota.Decision) {
	secs := int(d.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, code, rateLimitResponse{
		Error:               msg,
		RetryAfterSeconds:   secs,
		RetryAfterFormatted: quota.FormatRetryAfter(d.RetryAfter),
	})
}

// paywallHeaders attaches the quota headers to every gated response.
func paywallHeaders(w http.ResponseWriter, d quota.Decision) {
	limit := strconv.Itoa(d.Limit)
	if d.HasSubscription {
		limit = "unlimited"
	}
	w.Header().Set("X-Paywall-Requests-Used", strconv.Itoa(d.Used))
	w.Header().Set("X-Paywall-Requests-Limit", limit)
	w.Header().Set("X-Paywall-Has-Subscription", strconv.FormatBool(d.HasSubscription))
}

// clientIP extracts the caller address for throttling. middleware.RealIP
// has already folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
