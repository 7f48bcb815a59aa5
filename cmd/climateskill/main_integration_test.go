//go:build integration

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// Requires an MQTT broker at 127.0.0.1:1883.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "climate.db")
	writeConfig(t, `
skill:
  id: climate-int
database:
  path: "`+dbPath+`"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-successful-startup"
  reconnect:
    initial_delay: 1
    max_delay: 5
api:
  enabled: true
  host: "127.0.0.1"
  port: 18095
logging:
  level: info
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error: %v", err)
	}
}
