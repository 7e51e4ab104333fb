package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"bookproxy/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	t.Setenv(config.SavvyCalTokenEnv, "")
	t.Setenv(config.CalComTokenEnv, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "providers:\n  savvycal:\n    base_url: \"" + baseURL + "\"\n    token: \"tok\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func savvyCalServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/links/abc":
			_, _ = w.Write([]byte(`{"id":"abc","slug":"intro","name":"Intro call","default_duration":30,"durations":[15,30,60]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/links/abc/events":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"evt_cli"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCreateCommand(t *testing.T) {
	ts := savvyCalServer(t)
	cfgPath := writeConfig(t, ts.URL)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{
		"book", "--config", cfgPath, "create",
		"--link-id", "abc",
		"--start", "2025-01-01T10:00:00Z",
		"--duration", "45",
		"--name", "Jane",
		"--email", "jane@x.com",
	})
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "evt_cli", result["event_id"])
	assert.Equal(t, "2025-01-01T10:30:00Z", result["end_at"])
}

func TestCreateCommandFailure(t *testing.T) {
	ts := savvyCalServer(t)
	cfgPath := writeConfig(t, ts.URL)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{
		"book", "--config", cfgPath, "create",
		"--provider", "calcom",
		"--username", "ben",
		"--event-slug", "intro",
		"--start", "2025-01-01T10:00:00Z",
		"--name", "Jane",
		"--email", "jane@x.com",
	})
	assert.ErrorIs(t, err, errBookingFailed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "Server not configured - missing CALCOM_TOKEN", body["error"])
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
}

func TestLinkCommand(t *testing.T) {
	ts := savvyCalServer(t)
	cfgPath := writeConfig(t, ts.URL)

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run([]string{"book", "--config", cfgPath, "link", "--id", "abc"}))

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "Intro call", body["name"])
	assert.Equal(t, float64(30), body["default_duration"])
	assert.Equal(t, []any{float64(15), float64(30), float64(60)}, body["durations"])

	out.Reset()
	assert.Error(t, newApp(&out).Run([]string{"book", "--config", cfgPath, "link", "--id", "missing"}))
}
