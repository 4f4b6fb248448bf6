package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func corsHandler(t *testing.T, origins []string) http.Handler {
	t.Helper()
	return CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := corsHandler(t, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
	headers := rec.Header().Get("Access-Control-Allow-Headers")
	if headers == "" {
		t.Fatal("Allow-Headers not set for allowed origin")
	}
	if strings.Contains(headers, "X-API-Key") {
		t.Errorf("Allow-Headers advertises X-API-Key: %q", headers)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); strings.Contains(methods, "PUT") {
		t.Errorf("Allow-Methods advertises PUT: %q", methods)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := corsHandler(t, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for disallowed origin", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("non-preflight request blocked: %d", rec.Code)
	}
}

func TestCORS_EmptyListAllowsAll(t *testing.T) {
	h := corsHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.com" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/bets", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight reached the wrapped handler")
	}
}

func TestLogging_CapturesStatusAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/positions/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var line struct {
		Msg    string `json:"msg"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Bytes  int    `json:"bytes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not valid JSON: %v", err)
	}
	if line.Msg != "http request" || line.Method != http.MethodGet || line.Path != "/api/positions/nope" {
		t.Errorf("unexpected log line: %+v", line)
	}
	if line.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", line.Status)
	}
	if line.Bytes != len("missing") {
		t.Errorf("bytes = %d, want %d", line.Bytes, len("missing"))
	}
}

func TestLogging_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var line struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not valid JSON: %v", err)
	}
	if line.Status != http.StatusOK {
		t.Errorf("status = %d, want implicit 200", line.Status)
	}
}
