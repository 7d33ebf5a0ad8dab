package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8501"

type remoteFlags struct {
	serverURL string
	apiKey    string
	timeout   time.Duration
}

// newRemoteCommand talks to a running askdb server instead of a database.
func newRemoteCommand(a *app) *cobra.Command {
	flags := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Call the JSON API of a running askdb server",
	}
	cmd.PersistentFlags().StringVar(&flags.serverURL, "server", "", "askdb server URL (env ASKDB_SERVER_URL, default "+defaultServerURL+")")
	cmd.PersistentFlags().StringVar(&flags.apiKey, "api-key", "", "API key for authenticated requests (env ASKDB_API_KEY)")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 2*time.Minute, "HTTP timeout")

	simple := []struct {
		use, short, method, path string
	}{
		{"health", "GET /v1/health", http.MethodGet, "/v1/health"},
		{"ready", "GET /v1/ready", http.MethodGet, "/v1/ready"},
		{"session", "GET /v1/session", http.MethodGet, "/v1/session"},
		{"schema", "GET /v1/schema", http.MethodGet, "/v1/schema"},
		{"disconnect", "DELETE /v1/session", http.MethodDelete, "/v1/session"},
	}
	for _, route := range simple {
		cmd.AddCommand(&cobra.Command{
			Use:   route.use,
			Short: route.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.remoteCall(cmd, flags, route.method, route.path, nil)
			},
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "connect",
			Short: "POST /v1/connect with the connection flags",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.remoteCall(cmd, flags, http.MethodPost, "/v1/connect", a.params())
			},
		},
		&cobra.Command{
			Use:   "ask <question>",
			Short: "POST /v1/ask",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.remoteCall(cmd, flags, http.MethodPost, "/v1/ask", map[string]string{"question": strings.Join(args, " ")})
			},
		},
		&cobra.Command{
			Use:   "sql <statement>",
			Short: "POST /v1/query",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.remoteCall(cmd, flags, http.MethodPost, "/v1/query", map[string]string{"sql": strings.Join(args, " ")})
			},
		},
	)
	return cmd
}

func (a *app) remoteCall(cmd *cobra.Command, flags *remoteFlags, method, path string, payload any) error {
	baseURL := firstNonEmpty(flags.serverURL, a.env("ASKDB_SERVER_URL"), defaultServerURL)
	apiKey := firstNonEmpty(flags.apiKey, a.env("ASKDB_API_KEY"))
	client := &http.Client{Timeout: flags.timeout}

	endpoint := strings.TrimRight(baseURL, "/") + path
	code, body, err := doRequest(cmd.Context(), client, method, endpoint, apiKey, payload)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))
	}

	out := cmd.OutOrStdout()
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(out, pretty)
		return nil
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(out, string(body))
	}
	return nil
}

func (a *app) env(key string) string {
	value, _ := a.opts.Lookup(key)
	return strings.TrimSpace(value)
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
