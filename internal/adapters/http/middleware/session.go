package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"trainingplan/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookieName holds the signed role flags.
const SessionCookieName = "plan_session"

// sessionMaxAge keeps a login for a month, close to how long browser storage lasts.
const sessionMaxAge = 30 * 24 * time.Hour

// CookieCodec signs and verifies the session cookie.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCookieCodec creates a codec signing with hashKey.
// PRE: hashKey is at least 32 bytes
func NewCookieCodec(hashKey []byte, secure bool) *CookieCodec {
	sc := securecookie.New(hashKey, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(sessionMaxAge.Seconds()))
	return &CookieCodec{sc: sc, secure: secure}
}

// decode returns the flags carried by r. A missing, expired or tampered cookie
// yields an empty map.
func (c *CookieCodec) decode(r *http.Request) map[string]string {
	values := map[string]string{}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return values
	}
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &values); err != nil {
		slog.Info("auth_event", "event", "session_cookie_rejected", "error", err.Error())
		return map[string]string{}
	}
	return values
}

// State returns the request's ambient flags. Writes go to w as Set-Cookie headers,
// so they must happen before the response body.
func (c *CookieCodec) State(w http.ResponseWriter, r *http.Request) *CookieState {
	return &CookieState{codec: c, w: w, values: c.decode(r)}
}

// CookieState is a session.State backed by the signed cookie of one request.
type CookieState struct {
	codec  *CookieCodec
	w      http.ResponseWriter
	values map[string]string
}

var _ session.State = (*CookieState)(nil)

// Get returns the value for key.
func (s *CookieState) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and rewrites the cookie.
func (s *CookieState) Set(key, value string) {
	s.values[key] = value
	s.write()
}

// Remove deletes key and rewrites the cookie.
func (s *CookieState) Remove(key string) {
	delete(s.values, key)
	s.write()
}

func (s *CookieState) write() {
	if len(s.values) == 0 {
		http.SetCookie(s.w, s.cookie("", -1))
		return
	}
	encoded, err := s.codec.sc.Encode(SessionCookieName, s.values)
	if err != nil {
		slog.Error("internal_error", "error", err.Error())
		return
	}
	http.SetCookie(s.w, s.cookie(encoded, int(sessionMaxAge.Seconds())))
}

func (s *CookieState) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		HttpOnly: true,
		Secure:   s.codec.secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   maxAge,
	}
}

// Auth returns middleware that resolves the session from the cookie and puts it in context.
// It does NOT block guests; use RequireAdmin for that.
func Auth(codec *CookieCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.Resolve(session.NewMemoryState(codec.decode(r)))
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}

// RequireAdmin returns middleware that blocks non-admin sessions with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
// Without one the guest session is returned with ok=false.
func GetSessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(session.Session)
	if !ok {
		return session.Guest(), false
	}
	return sess, true
}

// IsAdmin checks if the current session is an admin.
func IsAdmin(ctx context.Context) bool {
	sess, _ := GetSessionFromContext(ctx)
	return sess.IsAdmin()
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
