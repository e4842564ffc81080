package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apnisec/issuetracker/pkg/contextkeys"
	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/apnisec/issuetracker/pkg/ratelimit"
)

// UnknownClient is the key shared by requests that carry no client address header.
const UnknownClient = "unknown"

// RateLimitMiddleware admits requests per client key through a Limiter.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := m.Admit(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Admit runs one admission check for handlers that validate input before
// spending quota. On Throttled it writes the 429 and returns false; otherwise
// it returns r carrying the client key.
func (m *RateLimitMiddleware) Admit(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	key := ClientKey(r)
	decision := m.limiter.Admit(key)
	remaining, resetAt := m.limiter.Status(key)

	m.metrics.RecordRateLimit(observability.RouteLabel(r), decision.String(), m.limiter.Len())
	m.setHeaders(w, remaining, resetAt)

	if decision == ratelimit.Throttled {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(resetAt, m.limiter.Now())))
		observability.FromContext(r.Context()).WithField("client_key", key).Warn("rate limit exceeded")
		httputil.WriteTooManyRequests(w, "too many requests")
		return r, false
	}

	return r.WithContext(contextkeys.WithClientKey(r.Context(), key)), true
}

func (m *RateLimitMiddleware) setHeaders(w http.ResponseWriter, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limiter.Config().Threshold))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// retryAfterSeconds rounds up and never returns less than one second.
func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// ClientKey derives the admission key: the first X-Forwarded-For entry,
// else X-Real-IP, else UnknownClient. Headers are trusted as sent.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
