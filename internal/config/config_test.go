package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
log_json = true

[server]
listen = ":9090"
base_path = "/api"
metrics_listen = ":9091"

[engine]
monitor_interval = "2s"
detached_interval = "1s"
sweep_interval = "10s"
stability_window = "30s"
grace_window = "250ms"
spawn_timeout = "5s"
kill_wait = "3s"
max_retries = 7
max_concurrent = 10

[capture]
dir = "/var/log/gamesup"
max_size_mb = 5

[[audit]]
type = "sql"
dsn = "audit.db"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LogLevel != "debug" || !c.LogJSON {
		t.Fatalf("logging config: %+v", c)
	}
	if c.Server.Listen != ":9090" || c.Server.BasePath != "/api" || c.Server.MetricsAddr != ":9091" {
		t.Fatalf("server config: %+v", c.Server)
	}
	if c.Engine.MonitorInterval != 2*time.Second || c.Engine.GraceWindow != 250*time.Millisecond {
		t.Fatalf("engine durations: %+v", c.Engine)
	}
	if c.Engine.MaxRetries != 7 || c.Engine.MaxConcurrent != 10 {
		t.Fatalf("engine limits: %+v", c.Engine)
	}
	if c.Capture.Dir != "/var/log/gamesup" || c.Capture.MaxSizeMB != 5 {
		t.Fatalf("capture config: %+v", c.Capture)
	}
	if len(c.Audit) != 1 || c.Audit[0].Type != "sql" || c.Audit[0].DSN != "audit.db" {
		t.Fatalf("audit config: %+v", c.Audit)
	}
}

func TestLoadEmptyConfigUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Engine.MonitorInterval != 0 || c.Engine.MaxConcurrent != 0 {
		t.Fatalf("zero config should stay zero for engine defaults: %+v", c.Engine)
	}
}

func TestLoadRejectsNegativeDurations(t *testing.T) {
	path := writeConfig(t, `
[engine]
monitor_interval = "-2s"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("negative duration accepted")
	}
}

func TestLoadRejectsBadAuditEntry(t *testing.T) {
	path := writeConfig(t, `
[[audit]]
type = "sql"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("audit entry without dsn accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
