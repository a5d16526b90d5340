package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-spinning/auth"
	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/db"
	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, requireAuth bool) *httptest.Server {
	t.Helper()
	logger.SetOutput(io.Discard)
	conn, err := db.OpenSQLite("file:"+t.Name()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(conn))

	app := NewApp(conn, policy.NewRouterConfig(conn, requireAuth), auth.NewSessions(testSecret))
	srv := httptest.NewServer(app)
	t.Cleanup(func() {
		srv.Close()
		_ = sqlDB.Close()
	})
	return srv
}

func send(t *testing.T, srv *httptest.Server, method, path, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	for _, path := range []string{"/health", "/healthz"} {
		resp := send(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.NotEmpty(t, resp.Header.Get(httpx.RequestIDHeader))
	}
}

func TestWritesRequireSessionWhenEnabled(t *testing.T) {
	srv := newTestServer(t, true)
	machine := `{"unit":2,"machine_number":14,"yarn_type":"40s CVC","rated_production_100":250}`

	resp := send(t, srv, http.MethodPost, "/api/machines", machine, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged := &http.Cookie{Name: auth.SessionCookieName, Value: auth.NewSessions("other").Sign(7)}
	resp = send(t, srv, http.MethodPost, "/api/machines", machine, forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	session := &http.Cookie{Name: auth.SessionCookieName, Value: auth.NewSessions(testSecret).Sign(7)}
	resp = send(t, srv, http.MethodPost, "/api/machines", machine, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = send(t, srv, http.MethodPost, "/api/entries/pair",
		`{"unit":2,"machine_number":14,"date":"2024-03-04","day":{"actual_production":200,"worker_name":"R. Kumar"},"night":{"actual_production":225}}`, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pair struct {
		Day struct {
			RecordedBy *uint    `json:"recorded_by"`
			Efficiency *float64 `json:"efficiency"`
		} `json:"day"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	require.NotNil(t, pair.Day.RecordedBy)
	assert.Equal(t, uint(7), *pair.Day.RecordedBy)
	assert.Equal(t, 80.0, *pair.Day.Efficiency)

	// Reads stay public.
	resp = send(t, srv, http.MethodGet, "/api/stats?unit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum struct {
		TotalProduction float64 `json:"total_production"`
		Efficiency      float64 `json:"efficiency"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 425.0, sum.TotalProduction)
	assert.Equal(t, 85.29, sum.Efficiency)
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, false)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/machines", nil)
	require.NoError(t, err)
	req.Header.Set(httpx.RequestIDHeader, "abc-123")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(httpx.RequestIDHeader))
}

func TestRecovererReturnsJSON(t *testing.T) {
	logger.SetOutput(io.Discard)
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
}
