package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagewatch/internal/logbuffer"
)

func newTestServer(t *testing.T, messages ...string) *Server {
	t.Helper()
	buf := logbuffer.New(10)
	ts := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	for i, m := range messages {
		buf.Append(logbuffer.Entry{Timestamp: ts.Add(time.Duration(i) * time.Minute), Message: m})
	}
	return NewServer(buf, zap.NewNop())
}

func TestServer_ShowLogRendersEntries(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, "🔍 Monitoring HTML content.", "Initial hash recorded.")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := rec.Body.String()
	require.Contains(t, body, "<title>Monitor Log</title>")
	require.Contains(t, body, "background-color:black")
	require.Contains(t, body, "white-space:pre-wrap")
	require.Contains(t, body,
		"[March 05, 2024 at 14:07 GMT] 🔍 Monitoring HTML content.\n[March 05, 2024 at 14:08 GMT] Initial hash recorded.")
}

func TestServer_IndexAlias(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, "hello")
	root := httptest.NewRecorder()
	server.Handler().ServeHTTP(root, httptest.NewRequest(http.MethodGet, "/", nil))
	alias := httptest.NewRecorder()
	server.Handler().ServeHTTP(alias, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	require.Equal(t, http.StatusOK, alias.Code)
	require.Equal(t, root.Body.String(), alias.Body.String())
}

func TestServer_EscapesMessages(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, `<script>alert("x")</script>`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	require.False(t, strings.Contains(body, "<script>"))
	require.Contains(t, body, "&lt;script&gt;")
}

func TestServer_EmptyLog(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "white-space:pre-wrap;\"></body>")
}

func TestServer_NoOtherRoutes(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	for _, path := range []string{"/metrics", "/healthz", "/log"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
