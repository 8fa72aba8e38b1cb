package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("SCALEBRIDGE_PRINTER_HOST", "10.1.2.3")
	t.Setenv("SCALEBRIDGE_PRINTER_PORT", "6101")
	t.Setenv("SCALEBRIDGE_ADMISSION_POLICY", "block")
	t.Setenv("SCALEBRIDGE_SEND_INTERVAL", "2s")
	t.Setenv("SCALEBRIDGE_UNSTABLE_MARKER", "true")
	t.Setenv("SCALEBRIDGE_COMPACT_THRESHOLD", "80.5")
	t.Setenv("SCALEBRIDGE_BACKOFF_INITIAL", "250ms")
	t.Setenv("SCALEBRIDGE_BACKOFF_MAX", "10s")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.PrinterHost != "10.1.2.3" {
		t.Errorf("PrinterHost = %q, want 10.1.2.3", cfg.PrinterHost)
	}
	if cfg.PrinterPort != 6101 {
		t.Errorf("PrinterPort = %d, want 6101", cfg.PrinterPort)
	}
	if cfg.AdmissionPolicy != "block" {
		t.Errorf("AdmissionPolicy = %q, want block", cfg.AdmissionPolicy)
	}
	if cfg.SendInterval != 2*time.Second {
		t.Errorf("SendInterval = %v, want 2s", cfg.SendInterval)
	}
	if !cfg.UnstableMarker {
		t.Error("UnstableMarker not applied from environment")
	}
	if cfg.CompactThreshold != 80.5 {
		t.Errorf("CompactThreshold = %v, want 80.5", cfg.CompactThreshold)
	}
	if cfg.BackoffInitial != 250*time.Millisecond {
		t.Errorf("BackoffInitial = %v, want 250ms", cfg.BackoffInitial)
	}
	if cfg.BackoffMax != 10*time.Second {
		t.Errorf("BackoffMax = %v, want 10s", cfg.BackoffMax)
	}
}

func TestApplyEnvConfig_FlagsWin(t *testing.T) {
	t.Setenv("SCALEBRIDGE_PRINTER_HOST", "from-env")

	cfg := DefaultConfig()
	cfg.PrinterHost = "from-flag"
	changed := map[string]bool{"printer-host": true}

	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}
	if cfg.PrinterHost != "from-flag" {
		t.Errorf("PrinterHost = %q, environment overrode an explicit flag", cfg.PrinterHost)
	}
}

func TestApplyEnvConfig_BadValue(t *testing.T) {
	t.Setenv("SCALEBRIDGE_PRINTER_PORT", "not-a-number")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err == nil {
		t.Error("ApplyEnvConfig accepted a malformed port")
	}
}
