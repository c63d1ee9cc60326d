package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLifecycleCommands_HitActionEndpoints(t *testing.T) {
	actions := []string{"start", "stop", "cancel"}

	for _, action := range actions {
		t.Run(action, func(t *testing.T) {
			resetViper()

			var capturedPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedPath = r.URL.Path
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id":     "job-7",
					"status": "STOPPED",
				})
			}))
			defer server.Close()

			viper.Set("url", server.URL)

			var stdout bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stdout)
			rootCmd.SetArgs([]string{action, "job-7"})

			if err := rootCmd.Execute(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := "/api/v1/jobs/job-7/" + action
			if capturedPath != want {
				t.Errorf("expected path %s, got %s", want, capturedPath)
			}
			if !strings.Contains(stdout.String(), action+" accepted") {
				t.Errorf("expected confirmation in output, got: %s", stdout.String())
			}
		})
	}
}

func TestLifecycleCommand_ServerError(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Job not found"}`))
	}))
	defer server.Close()

	viper.Set("url", server.URL)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"cancel", "missing-job"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Error (404)") {
		t.Errorf("expected 404 error in output, got: %s", stdout.String())
	}
}
