package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maraops/mara-agent/internal/config"
	"github.com/maraops/mara-agent/internal/mara"
	"github.com/maraops/mara-agent/internal/observability"
	"github.com/maraops/mara-agent/internal/poller"
	"github.com/maraops/mara-agent/internal/server"
	"github.com/maraops/mara-agent/internal/storage"
)

// Agent is the top-level application that orchestrates all subsystems.
type Agent struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *storage.Store
	api      *mara.Client
	registry *prometheus.Registry
	metrics  *observability.Metrics
	poller   *poller.Poller

	httpServer *server.Server
}

// New creates and wires all agent subsystems.
func New(cfg *config.Config, logger *slog.Logger) (*Agent, error) {
	store, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		stored, err := store.APIKey()
		if err != nil {
			return nil, fmt.Errorf("read stored api key: %w", err)
		}
		if stored == "" {
			return nil, fmt.Errorf("MARA_API_KEY is not set and no key is stored in %s", cfg.DataDir)
		}
		apiKey = stored
		logger.Info("using stored api key")
	}

	api := mara.NewClient(apiKey, cfg.ServiceURL, logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	return &Agent{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		api:      api,
		registry: registry,
		metrics:  metrics,
		poller:   poller.New(api, metrics, logger),
	}, nil
}

// Run executes the agent lifecycle: bootstrap, snapshot schedule, HTTP
// server. It blocks until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	agentID, err := a.store.AgentID()
	if err != nil {
		return fmt.Errorf("agent id: %w", err)
	}

	// Persist a freshly supplied key so later runs can start without the
	// env var.
	if a.cfg.APIKey != "" {
		if err := a.store.SaveAPIKey(a.cfg.APIKey); err != nil {
			a.logger.Warn("failed to save api key", "err", err)
		}
	}

	// Connectivity probe. A failure is logged, not fatal: the snapshot
	// schedule keeps trying and the dashboard stays usable.
	if _, err := a.api.FetchPrices(ctx); err != nil {
		a.logger.Warn("initial price fetch failed", "err", err)
	}

	if err := a.poller.Start(a.cfg.SnapshotSchedule); err != nil {
		return fmt.Errorf("start snapshot schedule: %w", err)
	}

	a.httpServer = server.NewServer(
		a.cfg.AgentPort,
		server.NewAPI(a.api, a.logger),
		a.cfg.AgentSecret,
		a.registry,
	)

	a.logger.Info("agent ready",
		"version", config.Version,
		"agent_id", agentID,
		"port", a.cfg.AgentPort,
		"service_url", a.cfg.ServiceURL,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.Run()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down agent")
		return a.shutdown()
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (a *Agent) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.poller.Stop()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", "err", err)
		}
	}

	a.logger.Info("agent stopped")
	return nil
}
