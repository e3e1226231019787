package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const SessionCookie = "sessionid"

type sessionKey struct{}

// Session gives every client a session key, kept in a cookie.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				key = c.Value
			}
		}
		if key == "" {
			key = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     SessionCookie,
				Value:    key,
				MaxAge:   60 * 60 * 24 * 365,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionKey returns the request's session key. ok is false when the
// Session middleware did not run.
func SessionKey(ctx context.Context) (key string, ok bool) {
	key, ok = ctx.Value(sessionKey{}).(string)
	return
}
