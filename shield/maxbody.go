package shield

import "net/http"

// MaxBody caps request bodies at maxBytes whatever their content type.
// Routes that accept larger bodies, such as uploads, are mounted outside it
// and set their own limit.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
