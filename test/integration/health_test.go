package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("body = %q, want status ok", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Make sure at least one request has been counted.
	getURL(t, testEnv.BaseURL()+"/healthz").Body.Close()

	resp := getURL(t, testEnv.BaseURL()+"/metrics")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	for _, name := range []string{"rinnsal_requests_total", "rinnsal_registry_entries"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
