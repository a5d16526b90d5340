package auth

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: s.Sign(7)})

	id, ok := s.Parse(req)
	if !ok || id != 7 {
		t.Fatalf("expected operator 7, got %d ok=%v", id, ok)
	}
}

func TestSessionCookieFormat(t *testing.T) {
	s := NewSessions("test-secret")
	v := s.Sign(42)
	if !regexp.MustCompile(`^[0-9]+\.[A-Za-z0-9_-]+$`).MatchString(v) {
		t.Fatalf("bad cookie format: %s", v)
	}
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	issuer := NewSessions("other-secret")
	s := NewSessions("test-secret")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: issuer.Sign(7)})
	if _, ok := s.Parse(req); ok {
		t.Fatalf("expected signature mismatch to be rejected")
	}

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "8." + s.Sign(7)[2:]})
	if _, ok := s.Parse(tampered); ok {
		t.Fatalf("expected tampered id to be rejected")
	}

	padded := httptest.NewRequest(http.MethodGet, "/", nil)
	padded.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "0" + s.Sign(7)})
	if _, ok := s.Parse(padded); ok {
		t.Fatalf("expected non-canonical id to be rejected")
	}
}

func TestRequire(t *testing.T) {
	s := NewSessions("test-secret")
	h := s.Middleware(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := OperatorIDFromContext(r.Context())
		if id != 3 {
			t.Errorf("operator = %d, want 3", id)
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	anon := httptest.NewRecorder()
	h.ServeHTTP(anon, httptest.NewRequest(http.MethodPost, "/api/entries", nil))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", anon.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: s.Sign(3)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}
}
