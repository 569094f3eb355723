package security

import "net/http"

// BodyLimit caps request payload size for JSON endpoints. Requests that
// declare an oversized Content-Length are rejected up front; chunked bodies
// are capped at read time via MaxBytesReader, so a handler's decode fails
// instead of the server buffering an unbounded stream.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
