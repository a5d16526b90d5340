// Package auth verifies operator sessions issued by the mill's login service.
// Sessions are "<operatorID>.<base64url(HMAC-SHA256(operatorID))>" cookies
// signed with a secret shared with that service. This package never issues
// sessions; Parse accepts exactly the value Sign would produce.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-spinning/httpx"
)

type ctxKey string

const (
	SessionCookieName = "session"
	operatorIDCtxKey  = ctxKey("operatorID")
)

// Sessions verifies signed session cookies.
type Sessions struct {
	secret []byte
}

// NewSessions returns a verifier for the given shared secret.
func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret)}
}

func (s *Sessions) signature(idStr string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(idStr))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns the cookie value for operatorID.
func (s *Sessions) Sign(operatorID uint) string {
	idStr := strconv.FormatUint(uint64(operatorID), 10)
	return idStr + "." + s.signature(idStr)
}

// Parse validates the session cookie and returns the operator id.
func (s *Sessions) Parse(r *http.Request) (uint, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	idStr, _, ok := strings.Cut(c.Value, ".")
	if !ok {
		return 0, false
	}
	id64, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	// Only the canonical form is accepted, so "007.<sig>" is rejected.
	if !hmac.Equal([]byte(c.Value), []byte(s.Sign(uint(id64)))) {
		return 0, false
	}
	return uint(id64), true
}

// Middleware attaches the operator id to the request context when a valid
// session is present. Requests without a session pass through untouched.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.Parse(r); ok {
			r = r.WithContext(WithOperatorID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without an operator in context with 401.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := OperatorIDFromContext(r.Context()); !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithOperatorID stores the operator id in ctx.
func WithOperatorID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, operatorIDCtxKey, id)
}

// OperatorIDFromContext extracts the operator id.
func OperatorIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(operatorIDCtxKey).(uint)
	return id, ok && id != 0
}

// OperatorPtr returns the operator id as a pointer, nil when anonymous.
func OperatorPtr(ctx context.Context) *uint {
	if id, ok := OperatorIDFromContext(ctx); ok {
		return &id
	}
	return nil
}
