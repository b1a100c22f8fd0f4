package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// SessionHeader carries the shopper's session id in both directions.
const SessionHeader = "X-Session-ID"

// SessionCookie mirrors the header for browser round trips, such as the
// redirect back from the payment provider.
const SessionCookie = "sid"

const sessionContextKey = contextKey("session")

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// SessionMiddleware attaches the shopper's session id to the context. The
// header wins over the cookie; a new id is minted when neither holds a
// well-formed one.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if !sessionIDPattern.MatchString(id) {
			id = ""
			if c, err := r.Cookie(SessionCookie); err == nil && sessionIDPattern.MatchString(c.Value) {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(SessionHeader, id)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		ctx := context.WithValue(r.Context(), sessionContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the session id set by SessionMiddleware.
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionContextKey).(string)
	return id
}

// WithSessionID returns a copy of r carrying id, for handlers exercised
// without the middleware.
func WithSessionID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionContextKey, id))
}
