// ICTServe - rule-driven service desk automation for the helpdesk,
// loan and asset modules.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ictserve/ictserve/internal/api"
	"github.com/ictserve/ictserve/internal/approval"
	"github.com/ictserve/ictserve/internal/bus"
	"github.com/ictserve/ictserve/internal/cache"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
	"github.com/ictserve/ictserve/internal/escalation"
	"github.com/ictserve/ictserve/internal/rules"
	"github.com/ictserve/ictserve/internal/sla"
	"github.com/ictserve/ictserve/internal/store"
	"github.com/ictserve/ictserve/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("ICTSERVE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting ictserve",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	if os.Getenv("ICTSERVE_TIER") == "cluster" {
		cfg = domain.ClusterConfig()
		slog.Info("running in cluster tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"store", cfg.Store.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Store
	sqlStore, err := store.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()
	slog.Info("store initialized", "driver", cfg.Store.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine; the store compiles expressions through it
	// at save time so a bad rule never reaches the database.
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	sqlStore.SetRuleValidator(engine.ValidateRule)

	// Reads go through the cache decorator.
	cachedStore := store.NewCached(sqlStore, cacheImpl)

	matrix := approval.NewMatrix()
	slaService := sla.NewService()

	// Seed defaults on first run, then load every module's
	// configuration into the in-memory engines.
	if err := loadConfiguration(ctx, cachedStore, engine, matrix, slaService); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.NewDispatcher(cachedStore, busImpl, cacheImpl)

	// Initialize async Worker (cluster tier, or opt in via env)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierCluster || os.Getenv("ICTSERVE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, cachedStore)

		var modules []domain.Module
		if envModules := os.Getenv("ICTSERVE_MODULES"); envModules != "" {
			for _, name := range strings.Split(envModules, ",") {
				module, err := domain.ParseModule(strings.TrimSpace(name))
				if err != nil {
					slog.Warn("skipping unknown module", "name", name)
					continue
				}
				modules = append(modules, module)
			}
		}

		if err := asyncWorker.Start(worker.Config{Modules: modules}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		}
	}

	// SLA escalation sweeper; walks open targets and raises breach
	// events. Disable with ICTSERVE_ESCALATION_SWEEP=false.
	var sweeper *escalation.Sweeper
	if os.Getenv("ICTSERVE_ESCALATION_SWEEP") != "false" {
		sweeper = escalation.NewSweeper(cachedStore, slaService, busImpl, cacheImpl)
		if interval := os.Getenv("ICTSERVE_SWEEP_INTERVAL"); interval != "" {
			if d, err := time.ParseDuration(interval); err == nil && d > 0 {
				sweeper.Interval = d
			} else {
				slog.Warn("invalid sweep interval, using default", "value", interval)
			}
		}
		sweeper.Start()
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, cachedStore, cacheImpl, busImpl, engine, matrix, slaService, dispatcher, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("ictserve is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop background loops first
	if sweeper != nil {
		sweeper.Stop()
	}
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("ictserve shutdown complete")
}

// loadConfiguration seeds built-in defaults for any module that has no
// stored configuration yet, then loads rules, approval matrix and SLA
// config into the in-memory engines.
func loadConfiguration(ctx context.Context, st domain.Store, engine *rules.Engine, matrix *approval.Matrix, slaService *sla.Service) error {
	for _, module := range domain.AllModules() {
		ruleSet, err := st.GetRules(ctx, module)
		if err != nil {
			return fmt.Errorf("load rules for %s: %w", module, err)
		}
		if len(ruleSet) == 0 {
			slog.Info("seeding default rules", "module", module)
			if err := st.ResetRules(ctx, module); err != nil {
				return fmt.Errorf("seed rules for %s: %w", module, err)
			}
			if ruleSet, err = st.GetRules(ctx, module); err != nil {
				return err
			}
		}
		if err := engine.ReloadRules(module, ruleSet); err != nil {
			return fmt.Errorf("compile rules for %s: %w", module, err)
		}

		approvalSet, err := st.GetApprovalRules(ctx, module)
		if err != nil {
			return fmt.Errorf("load approval rules for %s: %w", module, err)
		}
		if len(approvalSet) == 0 {
			slog.Info("seeding default approval rules", "module", module)
			if err := st.ResetApprovalRules(ctx, module); err != nil {
				return fmt.Errorf("seed approval rules for %s: %w", module, err)
			}
			if approvalSet, err = st.GetApprovalRules(ctx, module); err != nil {
				return err
			}
		}
		matrix.ReloadRules(module, approvalSet)

		slaCfg, err := st.GetSLAConfig(ctx, module)
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("seeding default sla config", "module", module)
			if err := st.ResetSLAConfig(ctx, module); err != nil {
				return fmt.Errorf("seed sla config for %s: %w", module, err)
			}
			slaCfg, err = st.GetSLAConfig(ctx, module)
		}
		if err != nil {
			return fmt.Errorf("load sla config for %s: %w", module, err)
		}
		slaService.ReloadConfig(slaCfg)

		slog.Info("module configuration loaded",
			"module", module,
			"rules", engine.RulesCount(module),
			"approval_rules", matrix.RulesCount(module),
			"sla_categories", len(slaCfg.Categories),
		)
	}
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ICTServe - service desk automation engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints (per module: helpdesk, loans, assets):")
	fmt.Println("    POST /modules/{m}/evaluate              - Evaluate a target")
	fmt.Println("    GET  /modules/{m}/evaluations/{id}      - Get evaluation by ID")
	fmt.Println("    GET  /modules/{m}/rules                 - List automation rules")
	fmt.Println("    POST /modules/{m}/rules                 - Create a rule")
	fmt.Println("    POST /modules/{m}/rules/test            - Dry-run the rule set")
	fmt.Println("    GET  /modules/{m}/rules/export          - Export the rule set")
	fmt.Println("    POST /modules/{m}/rules/import          - Replace the rule set")
	fmt.Println("    POST /modules/{m}/approval-rules/test   - Resolve an approval chain")
	fmt.Println("    GET  /modules/{m}/sla                   - SLA configuration")
	fmt.Println("    POST /modules/{m}/sla/test              - Compute SLA deadlines")
	fmt.Println("    GET  /health                            - Health check")
	fmt.Println("    GET  /metrics                           - Prometheus metrics")
	fmt.Println()
}
