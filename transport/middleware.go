package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/tkahng/gamecore/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func generateUserID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// cors mirrors the teacher's blanket CORS policy but reads the allowed
// origin list from config instead of hardcoding localhost.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}

// identify resolves the caller's identity for the request: first by
// deferring to the configured auth.Authenticator, then falling back to the
// anonymous session cookie, minting a fresh one if it is missing. This is
// the Go counterpart of the teacher's PlayerID middleware, generalized to
// sit in front of an optional Authenticator instead of always generating an
// ID.
func identify(authenticator auth.Authenticator) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok, err := authenticator.Authenticate(r); err != nil {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			} else if ok {
				h.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
				return
			}

			var userID string
			if c, err := r.Cookie("gamecore_session"); err == nil && c.Value != "" {
				userID = c.Value
			} else {
				userID = generateUserID()
				http.SetCookie(w, &http.Cookie{
					Name:     "gamecore_session",
					Value:    userID,
					Expires:  time.Now().Add(24 * time.Hour),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			h.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}
