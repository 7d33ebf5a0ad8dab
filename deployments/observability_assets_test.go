package deployments

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := readAsset(t, "askdb_rules.yaml")

	requiredAlerts := []string{
		"AskDBTranslateLatencyP95High",
		"AskDBTranslateErrorsHigh",
		"AskDBQueryErrorsHigh",
		"AskDBConnectFailures",
		"AskDBHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}
}

func TestRecordingRulesReferenceExportedMetrics(t *testing.T) {
	text := readAsset(t, "askdb_recording_rules.yaml")

	requiredRecords := []string{
		"askdb:translate_latency_ms_p95",
		"askdb:translate_error_rate_5m",
		"askdb:query_error_rate_5m",
		"askdb:connect_failures_15m",
		"askdb:http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}

	requiredMetrics := []string{
		"askdb_translate_latency_ms_bucket",
		"askdb_translate_total",
		"askdb_query_total",
		"askdb_connect_total",
		"askdb_http_requests_total",
	}
	for _, metricName := range requiredMetrics {
		if !strings.Contains(text, metricName) {
			t.Fatalf("recording rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "prometheus-scrape.example.yaml")

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"askdb_rules.yaml",
		"askdb_recording_rules.yaml",
		"job_name: askdb-server",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func readAsset(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRoot(t), "deployments", "observability", "prometheus", name)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(content)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
