package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConnectThenInspectSession(t *testing.T) {
	path := seedDatabase(t)
	h := NewHandler(testConfig(t, nil), Dependencies{Session: newTestSession(t, &stubTranslator{})})

	body := `{"dialect":"sqlite","database":` + jsonString(t, path) + `}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connect", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("connect status = %d body=%s", rr.Code, rr.Body.String())
	}
	var connected sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &connected); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if !connected.Connected || connected.Status == nil || connected.Status.Dialect != "SQLite" {
		t.Fatalf("connect response = %+v", connected)
	}
	if len(connected.Notices) != 1 || connected.Notices[0].Level != "success" {
		t.Fatalf("notices = %+v", connected.Notices)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("schema status = %d", rr.Code)
	}
	schema := decodeBody(t, rr)
	if !strings.Contains(schema["schema"].(string), "CREATE TABLE students") {
		t.Fatalf("schema = %#v", schema)
	}
	if tables := schema["tables"].([]any); len(tables) != 2 {
		t.Fatalf("tables = %#v", tables)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/session", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("disconnect status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	if got := decodeBody(t, rr); got["connected"] != false {
		t.Fatalf("session after disconnect = %#v", got)
	}
}

func TestConnectErrorsMapToCodes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "unsupported dialect", body: `{"dialect":"Oracle","host":"db"}`, status: http.StatusBadRequest, code: "UNSUPPORTED_DIALECT"},
		{name: "bad port", body: `{"dialect":"PostgreSQL","host":"db","port":"99999"}`, status: http.StatusBadRequest, code: "INVALID_CONNECTION"},
		{name: "sqlite without path", body: `{"dialect":"SQLite"}`, status: http.StatusBadRequest, code: "INVALID_CONNECTION"},
		{name: "malformed json", body: `{"dialect":`, status: http.StatusBadRequest, code: "INVALID_JSON"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(testConfig(t, nil), Dependencies{Session: newTestSession(t, &stubTranslator{})})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connect", strings.NewReader(tc.body)))
			if rr.Code != tc.status {
				t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
			}
			if body := decodeBody(t, rr); body["error_code"] != tc.code {
				t.Fatalf("body = %#v", body)
			}
		})
	}
}

func TestFailedConnectReplacesPreviousSession(t *testing.T) {
	svc := newTestSession(t, &stubTranslator{})
	connectSQLite(t, svc, seedDatabase(t))
	h := NewHandler(testConfig(t, nil), Dependencies{Session: svc})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/connect", strings.NewReader(`{"dialect":"Oracle"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if svc.Connected() {
		t.Fatal("failed connect should leave the session disconnected")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("schema status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "NOT_CONNECTED" {
		t.Fatalf("body = %#v", body)
	}
}

func TestConnectResponseOmitsPassword(t *testing.T) {
	svc := newTestSession(t, &stubTranslator{})
	connectSQLite(t, svc, seedDatabase(t))
	h := NewHandler(testConfig(t, nil), Dependencies{Session: svc})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("session response leaked password field: %s", rr.Body.String())
	}
}

func jsonString(t *testing.T, value string) string {
	t.Helper()
	encoded, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(encoded)
}
