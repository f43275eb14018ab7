// Command coordinatord runs the governance coordinator agent: it registers
// on the blackboard, watches task completions, resolves conflicts, sweeps
// consensus session deadlines, runs the performance monitor and serves
// /healthz. It has no intake for new GovernanceRequests: results are
// integrated only for requests started through
// Coordinator.ProcessGovernanceRequest in the same process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/CA-git-com-co/ACGS-sub011/internal/audit"
	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/config"
	"github.com/CA-git-com-co/ACGS-sub011/internal/consensus"
	"github.com/CA-git-com-co/ACGS-sub011/internal/coordinator"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/monitor"
	"github.com/CA-git-com-co/ACGS-sub011/internal/telemetry"
	"github.com/CA-git-com-co/ACGS-sub011/internal/validator"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	_ = godotenv.Load()

	level := parseLogLevel(os.Getenv("ACGS_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("coordinatord starting", "version", version, "compliance_tag", model.ComplianceTag)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, err := blackboard.New(ctx, blackboard.Config{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize}, logger)
	if err != nil {
		return fmt.Errorf("blackboard: %w", err)
	}
	defer store.Close()

	var sink *audit.Sink
	if cfg.AuditDatabaseURL != "" {
		sink, err = audit.New(ctx, cfg.AuditDatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		defer sink.Close()
		if err := sink.RunMigrations(ctx); err != nil {
			return fmt.Errorf("audit migrations: %w", err)
		}
		logger.Info("audit sink: enabled")
	} else {
		logger.Info("audit sink: disabled (no ACGS_AUDIT_DATABASE_URL)")
	}

	engine := consensus.NewEngine(store, logger)
	mon := monitor.New(monitor.Targets{
		P99Millis:     cfg.P99TargetMillis,
		CacheHitRate:  cfg.CacheHitRateTarget,
		ThroughputOps: cfg.ThroughputTarget,
	}, store, logger)

	coord := coordinator.New("acgs_coordinator", store, validator.NoopValidator{}, engine, mon, logger)
	if err := coord.Register(ctx); err != nil {
		return fmt.Errorf("register coordinator agent: %w", err)
	}

	go coord.RunConflictResolution(ctx, cfg.ConflictResolutionInterval)
	go deadlineSweepLoop(ctx, engine, logger, cfg.DeadlineSweepInterval)
	go mon.Run(ctx, cfg.MonitorScanInterval)
	go coord.WatchTaskCompletions(ctx, func(result model.GovernanceResult) {
		logger.Info("governance request completed", "request_id", result.RequestID, "success", result.Success)
		if sink != nil {
			if err := sink.RecordGovernanceResult(ctx, result); err != nil {
				logger.Warn("audit: record governance result", "request_id", result.RequestID, "error", err)
			}
		}
	})

	if sink != nil {
		go alertArchiveLoop(ctx, mon, sink, logger, cfg.MonitorScanInterval)
	}

	errCh := make(chan error, 1)
	srv := newHealthServer(cfg.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("coordinatord shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("coordinatord stopped")
	return nil
}

// deadlineSweepLoop periodically escalates consensus sessions past their
// voting deadline, independent of the conflict-resolution tick.
func deadlineSweepLoop(ctx context.Context, engine *consensus.Engine, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := engine.CheckSessionDeadlines(); len(expired) > 0 {
				logger.Info("consensus sessions expired by deadline sweep", "session_ids", expired)
			}
		}
	}
}

// alertArchiveLoop periodically scans the monitor and archives any alerts
// it raises to the audit sink, independent of the monitor's own scan tick.
func alertArchiveLoop(ctx context.Context, mon *monitor.Monitor, sink *audit.Sink, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, alert := range mon.Scan(ctx) {
				if err := sink.RecordAlert(ctx, alert); err != nil {
					logger.Warn("audit: record alert", "error", err)
				}
			}
		}
	}
}

func newHealthServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
