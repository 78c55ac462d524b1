package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gacha-summon/internal/catalog"
	"gacha-summon/internal/inventory"
	"gacha-summon/internal/pulls"
	"gacha-summon/internal/sampler"
)

type SnapshotSource interface {
	Snapshot(ctx context.Context) (inventory.Snapshot, error)
}

// StockReport counts the products that can currently be drawn.
type StockReport struct {
	CheckedAt   time.Time            `json:"checkedAt"`
	Eligible    int                  `json:"eligible"`
	ByPool      map[catalog.Pool]int `json:"byPool"`
	CanDrawBulk bool                 `json:"canDrawBulk"`
	Error       string               `json:"error,omitempty"`
}

// StockWatcher polls the inventory and warns before stock runs too low for
// summons to be drawn.
type StockWatcher struct {
	source   SnapshotSource
	products []catalog.Product
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	latest *StockReport
}

func NewStockWatcher(source SnapshotSource, products []catalog.Product, interval time.Duration, logger *slog.Logger) *StockWatcher {
	return &StockWatcher{
		source:   source,
		products: products,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one check immediately and then one per interval until ctx is
// done or Stop is called.
func (w *StockWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		w.Check(ctx)
		for {
			select {
			case <-ticker.C:
				w.Check(ctx)
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *StockWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Latest returns the most recent report, or nil before the first check.
func (w *StockWatcher) Latest() *StockReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

func (w *StockWatcher) Check(ctx context.Context) StockReport {
	report := StockReport{CheckedAt: time.Now().UTC(), ByPool: map[catalog.Pool]int{}}
	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		w.logger.Warn("stock check failed", "error", err)
		report.Error = err.Error()
		w.store(report)
		return report
	}

	eligible := sampler.New(nil, w.products, snap).Eligible()
	report.Eligible = len(eligible)
	for _, p := range eligible {
		report.ByPool[p.Pool]++
	}
	report.CanDrawBulk = report.Eligible >= pulls.BannerSize

	switch {
	case report.Eligible == 0:
		w.logger.Error("no product in stock, summons will fail")
	case !report.CanDrawBulk:
		w.logger.Warn("too few products in stock for a full summon", "eligible", report.Eligible)
	}
	w.store(report)
	return report
}

func (w *StockWatcher) store(r StockReport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest = &r
}
