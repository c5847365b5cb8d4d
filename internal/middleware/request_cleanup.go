package middleware

import (
	"io"
	"net/http"
)

// maxDrainBytes bounds what is read from a body the handler left unread, past
// that the connection is not worth reusing.
const maxDrainBytes = 256 << 10

// DrainAndCloseRequest reads what is left of the request body once the handler
// returns and closes it, so keep-alive connections can be reused for the next
// workout write or dashboard read.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil || r.Body == http.NoBody {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}
