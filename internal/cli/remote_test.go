package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRemoteAskPostsQuestionWithAPIKey(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sql":"SELECT * FROM students","notices":[]}`))
	}))
	defer srv.Close()

	env := map[string]string{"ASKDB_SERVER_URL": srv.URL, "ASKDB_API_KEY": "k1"}
	res := run(t, nil, env, "remote", "ask", "list", "all", "students")
	if res.code != 0 {
		t.Fatalf("exit code = %d stderr=%s", res.code, res.stderr)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/ask" || gotAPIKey != "k1" {
		t.Fatalf("request = %s %s key=%q", gotMethod, gotPath, gotAPIKey)
	}
	if gotBody["question"] != "list all students" {
		t.Fatalf("body = %#v", gotBody)
	}
	if !strings.Contains(res.stdout, `"sql": "SELECT * FROM students"`) {
		t.Fatalf("stdout = %s", res.stdout)
	}
}

func TestRemoteConnectSendsConnectionFlags(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"connected":true}`))
	}))
	defer srv.Close()

	res := run(t, nil, map[string]string{}, "remote", "--server", srv.URL, "connect", "--dialect", "PostgreSQL", "-u", "postgres", "--password", "pw", "-d", "school")
	if res.code != 0 {
		t.Fatalf("exit code = %d stderr=%s", res.code, res.stderr)
	}
	if gotBody["dialect"] != "PostgreSQL" || gotBody["user"] != "postgres" || gotBody["password"] != "pw" || gotBody["database"] != "school" {
		t.Fatalf("body = %#v", gotBody)
	}
	if gotBody["host"] != "localhost" {
		t.Fatalf("host default = %q", gotBody["host"])
	}
}

func TestRemoteReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/session" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"FORBIDDEN"}`))
	}))
	defer srv.Close()

	res := run(t, nil, map[string]string{}, "remote", "--server", srv.URL, "disconnect")
	if res.code != 1 || !strings.Contains(res.stderr, "http 403") {
		t.Fatalf("res = %+v", res)
	}
}
