package diagnostic

import (
	"context"
	"time"

	"github.com/HendryAvila/farmcheck/internal/backend"
	"go.uber.org/zap"
)

// CheckerConfig configures a Checker.
type CheckerConfig struct {
	// Tables are checked in this order.
	Tables []string
	// ProbeColumns and ProbeLimit shape the existence probe.
	ProbeColumns []string
	ProbeLimit   int
	// QueryTimeout bounds each remote call. Zero means no bound.
	QueryTimeout time.Duration
}

// Checker probes and counts each configured table.
type Checker struct {
	store  backend.TableStore
	cfg    CheckerConfig
	logger *zap.Logger
}

// NewChecker creates a Checker. A nil logger disables logging.
func NewChecker(store backend.TableStore, cfg CheckerConfig, logger *zap.Logger) *Checker {
	if len(cfg.ProbeColumns) == 0 {
		cfg.ProbeColumns = []string{"*"}
	}
	if cfg.ProbeLimit < 1 {
		cfg.ProbeLimit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{store: store, cfg: cfg, logger: logger}
}

// Tables returns the configured table names.
func (c *Checker) Tables() []string {
	out := make([]string, len(c.cfg.Tables))
	copy(out, c.cfg.Tables)
	return out
}

// Check returns one status per configured table, in order. Tables are
// checked one at a time; a failure on one never stops the others.
func (c *Checker) Check(ctx context.Context) []TableStatus {
	statuses := make([]TableStatus, 0, len(c.cfg.Tables))
	for _, table := range c.cfg.Tables {
		statuses = append(statuses, c.checkTable(ctx, table))
	}
	return statuses
}

func (c *Checker) checkTable(ctx context.Context, table string) TableStatus {
	log := c.logger.With(zap.String("table", table))

	if err := c.probe(ctx, table); err != nil {
		log.Warn("table probe failed",
			zap.String("kind", backend.KindOf(err).String()),
			zap.Error(err))
		return missing(table, err)
	}

	n, err := c.count(ctx, table)
	if err != nil {
		log.Warn("row count failed",
			zap.String("kind", backend.KindOf(err).String()),
			zap.Error(err))
		return countFailed(table, err)
	}

	log.Debug("table checked", zap.Int64("rows", n))
	return counted(table, n)
}

func (c *Checker) probe(ctx context.Context, table string) error {
	ctx, cancel := withTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	_, err := c.store.Select(ctx, table, c.cfg.ProbeColumns, c.cfg.ProbeLimit)
	return err
}

func (c *Checker) count(ctx context.Context, table string) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()
	return c.store.Count(ctx, table)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
