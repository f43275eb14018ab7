package config

import (
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
}

func TestEnvFloatValid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.75")
	v, err := envFloat("TEST_FLOAT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.75 {
		t.Fatalf("expected 0.75, got %v", v)
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("TEST_FLOAT_BAD", "not-a-number")
	_, err := envFloat("TEST_FLOAT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-float value, got nil")
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DURATION", "15s")
	v, err := envDuration("TEST_DURATION", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 15*time.Second {
		t.Fatalf("expected 15s, got %v", v)
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DURATION_BAD", "soon")
	_, err := envDuration("TEST_DURATION_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-duration value, got nil")
	}
}

func TestEnvStrFallback(t *testing.T) {
	if v := envStr("TEST_STR_MISSING", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ComplianceTag != DefaultComplianceTag {
		t.Fatalf("expected default compliance tag %q, got %q", DefaultComplianceTag, cfg.ComplianceTag)
	}
	if cfg.ClaimBatchSize != 5 {
		t.Fatalf("expected default claim batch size 5, got %d", cfg.ClaimBatchSize)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("expected default heartbeat interval 30s, got %v", cfg.HeartbeatInterval)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("ACGS_PORT", "99999")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port, got nil")
	}
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	t.Setenv("ACGS_CONSTITUTIONAL_MIN_SCORE", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range threshold, got nil")
	}
}

func TestLoadEmptyComplianceTagFallsBackToDefault(t *testing.T) {
	t.Setenv("ACGS_COMPLIANCE_TAG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Empty env var falls back to the default per envStr semantics.
	if cfg.ComplianceTag != DefaultComplianceTag {
		t.Fatalf("expected fallback to default tag, got %q", cfg.ComplianceTag)
	}
}
