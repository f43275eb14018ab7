// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port int

	// Redis settings (blackboard backing store).
	RedisURL      string
	RedisPoolSize int

	// Optional Postgres audit sink (append-only, non-authoritative).
	AuditDatabaseURL string

	// Claim / harness settings.
	ClaimBatchSize       int
	ClaimRetryBound      int
	ClaimPollInterval    time.Duration
	HeartbeatInterval    time.Duration
	AgentTimeoutMinutes  int
	DefaultMaxRetries    int
	KnowledgeTTLCapHours int

	// Consensus default thresholds.
	WeightedVoteThreshold       float64
	RankedChoiceMinConfidence   float64
	ConsensusThreshold          float64
	HierarchicalOverrideScore   float64
	ConstitutionalMinScore      float64
	ExpertConsensusThreshold    float64
	ConsensusDefaultDeadlineHrs float64

	// Performance monitor targets (for alerts, not correctness).
	P99TargetMillis     float64
	CacheHitRateTarget  float64
	ThroughputTarget    float64
	MonitorScanInterval time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel                   string
	ConflictResolutionInterval time.Duration
	DeadlineSweepInterval      time.Duration

	// ComplianceTag is the fixed compliance hash propagated on every result.
	// Overridable only for test doubles; production always uses the default.
	ComplianceTag string
}

// DefaultComplianceTag is the process-wide compliance tag fixed at build time.
const DefaultComplianceTag = "cdd01ef066bc6cf2"

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value,
// or if the resulting configuration fails Validate (e.g. an out-of-range port
// or threshold). Missing variables use sensible defaults.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		RedisURL:         envStr("ACGS_REDIS_URL", "redis://localhost:6379/0"),
		AuditDatabaseURL: envStr("ACGS_AUDIT_DATABASE_URL", ""),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "acgs-sub011"),
		LogLevel:         envStr("ACGS_LOG_LEVEL", "info"),
		ComplianceTag:    envStr("ACGS_COMPLIANCE_TAG", DefaultComplianceTag),
	}

	cfg.Port, errs = collectInt(errs, "ACGS_PORT", 8080)
	cfg.RedisPoolSize, errs = collectInt(errs, "ACGS_REDIS_POOL_SIZE", 10)
	cfg.ClaimBatchSize, errs = collectInt(errs, "ACGS_CLAIM_BATCH_SIZE", 5)
	cfg.ClaimRetryBound, errs = collectInt(errs, "ACGS_CLAIM_RETRY_BOUND", 3)
	cfg.AgentTimeoutMinutes, errs = collectInt(errs, "ACGS_AGENT_TIMEOUT_MINUTES", 5)
	cfg.DefaultMaxRetries, errs = collectInt(errs, "ACGS_DEFAULT_MAX_RETRIES", 3)
	cfg.KnowledgeTTLCapHours, errs = collectInt(errs, "ACGS_KNOWLEDGE_TTL_CAP_HOURS", 24*30)

	cfg.WeightedVoteThreshold, errs = collectFloat(errs, "ACGS_WEIGHTED_VOTE_THRESHOLD", 0.5)
	cfg.RankedChoiceMinConfidence, errs = collectFloat(errs, "ACGS_RANKED_CHOICE_MIN_CONFIDENCE", 0.6)
	cfg.ConsensusThreshold, errs = collectFloat(errs, "ACGS_CONSENSUS_THRESHOLD", 0.8)
	cfg.HierarchicalOverrideScore, errs = collectFloat(errs, "ACGS_HIERARCHICAL_OVERRIDE_THRESHOLD", 60)
	cfg.ConstitutionalMinScore, errs = collectFloat(errs, "ACGS_CONSTITUTIONAL_MIN_SCORE", 0.7)
	cfg.ExpertConsensusThreshold, errs = collectFloat(errs, "ACGS_EXPERT_CONSENSUS_THRESHOLD", 0.7)
	cfg.ConsensusDefaultDeadlineHrs, errs = collectFloat(errs, "ACGS_CONSENSUS_DEFAULT_DEADLINE_HOURS", 24)

	cfg.P99TargetMillis, errs = collectFloat(errs, "ACGS_P99_TARGET_MS", 5)
	cfg.CacheHitRateTarget, errs = collectFloat(errs, "ACGS_CACHE_HIT_RATE_TARGET", 0.85)
	cfg.ThroughputTarget, errs = collectFloat(errs, "ACGS_THROUGHPUT_TARGET", 100)

	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	cfg.ClaimPollInterval, errs = collectDuration(errs, "ACGS_CLAIM_POLL_INTERVAL", 5*time.Second)
	cfg.HeartbeatInterval, errs = collectDuration(errs, "ACGS_HEARTBEAT_INTERVAL", 30*time.Second)
	cfg.MonitorScanInterval, errs = collectDuration(errs, "ACGS_MONITOR_SCAN_INTERVAL", 15*time.Second)
	cfg.ConflictResolutionInterval, errs = collectDuration(errs, "ACGS_CONFLICT_RESOLUTION_INTERVAL", 10*time.Second)
	cfg.DeadlineSweepInterval, errs = collectDuration(errs, "ACGS_DEADLINE_SWEEP_INTERVAL", 10*time.Second)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

func collectDuration(errs []error, key string, fallback time.Duration) (time.Duration, []error) {
	v, err := envDuration(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.RedisURL == "" {
		errs = append(errs, errors.New("config: ACGS_REDIS_URL is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, errors.New("config: ACGS_PORT must be between 1 and 65535"))
	}
	if c.ClaimBatchSize <= 0 {
		errs = append(errs, errors.New("config: ACGS_CLAIM_BATCH_SIZE must be positive"))
	}
	if c.ClaimRetryBound <= 0 {
		errs = append(errs, errors.New("config: ACGS_CLAIM_RETRY_BOUND must be positive"))
	}
	if c.AgentTimeoutMinutes <= 0 {
		errs = append(errs, errors.New("config: ACGS_AGENT_TIMEOUT_MINUTES must be positive"))
	}
	if c.DefaultMaxRetries < 0 {
		errs = append(errs, errors.New("config: ACGS_DEFAULT_MAX_RETRIES must not be negative"))
	}
	if c.ClaimPollInterval <= 0 {
		errs = append(errs, errors.New("config: ACGS_CLAIM_POLL_INTERVAL must be positive"))
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("config: ACGS_HEARTBEAT_INTERVAL must be positive"))
	}
	if c.MonitorScanInterval <= 0 {
		errs = append(errs, errors.New("config: ACGS_MONITOR_SCAN_INTERVAL must be positive"))
	}
	if c.ComplianceTag == "" {
		errs = append(errs, errors.New("config: ACGS_COMPLIANCE_TAG must not be empty"))
	}
	for _, t := range []struct {
		name string
		val  float64
	}{
		{"ACGS_WEIGHTED_VOTE_THRESHOLD", c.WeightedVoteThreshold},
		{"ACGS_RANKED_CHOICE_MIN_CONFIDENCE", c.RankedChoiceMinConfidence},
		{"ACGS_CONSENSUS_THRESHOLD", c.ConsensusThreshold},
		{"ACGS_CONSTITUTIONAL_MIN_SCORE", c.ConstitutionalMinScore},
		{"ACGS_EXPERT_CONSENSUS_THRESHOLD", c.ExpertConsensusThreshold},
	} {
		if t.val < 0 || t.val > 1 {
			errs = append(errs, fmt.Errorf("config: %s must be between 0 and 1", t.name))
		}
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid float", key, v)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
