package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// DefaultMaxRequestSize fits the largest deck request, a drag with the
// maximum number of frames, with room to spare
const DefaultMaxRequestSize int64 = 64 << 10

// MaxRequestSize rejects bodies larger than maxBytes with a 413 JSON envelope.
// Bodies without a Content-Length are cut off by http.MaxBytesReader and the
// handler's decode fails instead.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "request_too_large",
					"Request body is too large", zap.NewNop())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
