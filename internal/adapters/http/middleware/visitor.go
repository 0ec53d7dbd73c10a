package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const visitorContextKey contextKey = "visitor"

// VisitorCookieName holds the anonymous visitor id. Calendar state is scoped to it.
const VisitorCookieName = "kalender_visitor"

// visitorCookieMaxAge keeps a visitor's calendar reachable for about a year.
const visitorCookieMaxAge = 400 * 24 * 60 * 60

// SecureCookies controls the Secure flag on cookies. Set true in production.
var SecureCookies = false

// Visitor returns middleware that resolves the visitor id from its cookie.
// A missing or malformed cookie is replaced by a fresh random id.
// POST: VisitorID(r.Context()) is a valid UUID for every downstream handler
func Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(VisitorCookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			SetVisitorCookie(w, id)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithVisitor(r.Context(), id)))
	})
}

// VisitorID extracts the visitor id from the request context.
func VisitorID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorContextKey).(string)
	return id, ok && id != ""
}

// ContextWithVisitor returns a context carrying the given visitor id.
// Intended for use in tests.
func ContextWithVisitor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorContextKey, id)
}

// SetVisitorCookie sets the visitor cookie on the response.
func SetVisitorCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    id,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
	})
}
