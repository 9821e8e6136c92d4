package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/adoptrack/internal/auth"

	"golang.org/x/crypto/bcrypt"
)

// StaffToken is a named bcrypt hash of a bearer token.
type StaffToken struct {
	Name string
	Hash []byte
}

// StaffAuth checks bearer tokens against bcrypt hashes. Failed attempts are
// counted per client IP; once a client reaches MaxFailures within Window it
// gets 429 until the window passes.
type StaffAuth struct {
	Tokens      []StaffToken
	Limiter     *RateLimiter
	MaxFailures int
	Window      time.Duration
	Logger      *slog.Logger
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	// Browsers cannot set headers on websocket upgrades.
	return r.URL.Query().Get("access_token")
}

func (a *StaffAuth) match(token string) (StaffToken, bool) {
	if token == "" {
		return StaffToken{}, false
	}
	for _, t := range a.Tokens {
		if bcrypt.CompareHashAndPassword(t.Hash, []byte(token)) == nil {
			return t, true
		}
	}
	return StaffToken{}, false
}

// Require rejects requests without a valid staff token and stores the
// matching staff member in the request context.
func (a *StaffAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)
		if a.Limiter.Exhausted(ip, a.MaxFailures) {
			http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
			return
		}

		staff, ok := a.match(bearerToken(r))
		if !ok {
			a.Limiter.Allow(ip, a.MaxFailures, a.Window)
			a.Logger.Warn("staff authentication failed", "remote", ip, "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="adoptrack"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := auth.WithStaff(r.Context(), auth.Staff{Name: staff.Name})
		noteStaff(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
