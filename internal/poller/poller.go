// Package poller runs the periodic market snapshot: fetch prices and site
// status, reconcile against the cached allocation and export the result as
// metrics. A failed snapshot is logged and counted, never fatal; the next
// scheduled run is the retry.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maraops/mara-agent/internal/domain"
	"github.com/maraops/mara-agent/internal/mara"
	"github.com/maraops/mara-agent/internal/observability"
)

const snapshotTimeout = 30 * time.Second

// Poller schedules market snapshots with cron.
type Poller struct {
	client  *mara.Client
	metrics *observability.Metrics
	logger  *slog.Logger
	cron    *cron.Cron

	mu  sync.Mutex
	inv *domain.Inventory // fetched once, refetched only after failure
}

// New creates a Poller around the given client.
func New(client *mara.Client, metrics *observability.Metrics, logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start registers the snapshot job under the given cron schedule
// (e.g. "@every 30s") and starts the scheduler.
func (p *Poller) Start(schedule string) error {
	if _, err := p.cron.AddFunc(schedule, p.snapshot); err != nil {
		return err
	}
	p.cron.Start()
	p.logger.Info("market snapshot scheduled", "schedule", schedule)
	return nil
}

// Stop stops the scheduler and waits for a running snapshot to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Poller) snapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	start := time.Now()

	prices, err := p.client.FetchPrices(ctx)
	if err != nil {
		p.metrics.IncFetchError("prices")
		p.logger.Warn("snapshot: fetch prices failed", "err", err)
		return
	}
	p.metrics.ObservePrices(domain.LatestPrice(prices))

	status, err := p.client.FetchSiteStatus(ctx)
	if err != nil {
		p.metrics.IncFetchError("site status")
		p.logger.Warn("snapshot: fetch site status failed", "err", err)
		return
	}

	inv, err := p.inventory(ctx)
	if err != nil {
		p.metrics.IncFetchError("inventory")
		p.logger.Warn("snapshot: fetch inventory failed", "err", err)
		return
	}

	rec := p.client.Reconcile(status, inv, prices)
	if rec.Economics != nil {
		p.metrics.ObserveEconomics(*rec.Economics)
		p.logger.Info("market snapshot",
			"total_units", rec.Counts().Total(),
			"power_used", rec.Economics.TotalPowerUsed,
			"revenue", rec.Economics.TotalRevenue,
			"power_cost", rec.Economics.TotalPowerCost,
		)
	} else {
		p.logger.Info("market snapshot",
			"total_units", status.Counts().Total(),
			"cached_allocation", false,
		)
	}

	p.metrics.ObserveSnapshotDuration(time.Since(start).Seconds())
}

// inventory returns the cached inventory spec, fetching it on first use.
// Specs change rarely; a fetch failure leaves the cache empty so the next
// snapshot tries again.
func (p *Poller) inventory(ctx context.Context) (domain.Inventory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inv != nil {
		return *p.inv, nil
	}

	inv, err := p.client.FetchInventory(ctx)
	if err != nil {
		return domain.Inventory{}, err
	}
	p.inv = &inv
	return inv, nil
}
