package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmca-notices/internal/application/session"
	"github.com/dmca-notices/internal/domain"
)

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// CurrentUser resolves the authenticated user from the JWT claims and opens
// the caller's session. It must run after Auth.
func CurrentUser(users userLookup, store session.Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u, err := users.Get(r.Context(), claims.UserID)
			if errors.Is(err, domain.ErrNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			if err != nil {
				slog.Error("failed to load current user", "user_id", claims.UserID, "err", err)
				writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, u)
			ctx = context.WithValue(ctx, SessionKey, session.New(claims.SessionID, store, ttl))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(UserKey).(*domain.User)
	return u, ok
}

func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*session.Session)
	return s, ok
}
