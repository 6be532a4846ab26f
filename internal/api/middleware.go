package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/kv"
)

// SessionMiddleware binds every request to a visitor namespace of the
// key-value store, keyed by an opaque cookie
type SessionMiddleware struct {
	store kv.Store
	cfg   config.SessionConfig
}

// NewSessionMiddleware creates session middleware over store
func NewSessionMiddleware(store kv.Store, cfg config.SessionConfig) *SessionMiddleware {
	return &SessionMiddleware{store: store, cfg: cfg}
}

// Attach reuses the session cookie when it carries a valid id and issues a
// fresh one otherwise
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r, m.cfg.CookieName)
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     m.cfg.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(m.cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   m.cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			slog.Debug("session issued", "session", maskID(id))
		}

		v := &Visitor{
			ID:    id,
			Store: kv.Namespace(m.store, "session:"+id+":"),
		}
		next.ServeHTTP(w, r.WithContext(ContextWithVisitor(r.Context(), v)))
	})
}

// sessionID returns the cookie value when it is a well-formed id
func sessionID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// maskID returns first 8 chars of an id for safe logging
func maskID(id string) string {
	if len(id) < 8 {
		return "***"
	}
	return id[:8] + "..."
}
