package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DefaultRequestTimeout applies when Timeout is given a non-positive duration
const DefaultRequestTimeout = 30 * time.Second

// Timeout bounds each request. Deck requests that wait for an excuse block
// for up to the excuse timeout plus the thinking delay, so timeout must be
// larger than that (config.Config.RequestTimeout is). A request that runs out
// gets a 503 JSON envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	body := timeoutBody()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			// handlers that set their own content type override this
			w.Header().Set("Content-Type", "application/json")
			http.TimeoutHandler(next, timeout, body).ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func timeoutBody() string {
	data, _ := json.Marshal(ErrorResponse{
		Error:   "request_timeout",
		Message: "The request took too long, please retry",
	})
	return string(data)
}
