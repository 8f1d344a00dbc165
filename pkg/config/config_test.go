package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/srodi/ures/pkg/report"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ures.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
proc_root: /host/proc
workers: 4
top_k: 20
hide_kernel: false
user_filter: " Alice "
human: true
cpu_trace: 2s
reports: [Users, commands]
log_level: DEBUG
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	want.ProcRoot = "/host/proc"
	want.Workers = 4
	want.TopK = 20
	want.HideKernel = false
	want.UserFilter = "alice"
	want.Human = true
	want.CPUTrace = 2 * time.Second
	want.Reports = []string{report.SectionUsers, report.SectionCommands}
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if f := cfg.Filter(); f.HideKernel == nil || *f.HideKernel || f.UserFilter != "alice" {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, "workers: -1\nreports: [processes, threads]\nlog_level: loud\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"workers", "threads", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadReportsParseAndReadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := Load(writeConfig(t, "workers: [1, 2\n")); err == nil {
		t.Fatalf("expected parse error")
	}
}
