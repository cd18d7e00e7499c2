package diagnostic

import (
	"context"
	"time"

	"github.com/HendryAvila/farmcheck/internal/backend"
	"go.uber.org/zap"
)

// errStorageNotConfigured is reported when no bucket lister is wired.
const errStorageNotConfigured = "storage not configured"

// ListBuckets lists buckets once. Failures become the result's Error;
// there is no retry.
func ListBuckets(ctx context.Context, lister backend.BucketLister) BucketResult {
	if lister == nil {
		return BucketResult{Error: errStorageNotConfigured}
	}

	buckets, err := lister.ListBuckets(ctx)
	if err != nil {
		return BucketResult{Error: err.Error()}
	}

	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return BucketResult{Names: names}
}

// Runner runs one diagnostic pass. The MCP and HTTP surfaces depend
// on it rather than on *Reporter.
type Runner interface {
	Run(ctx context.Context) *Report
	Tables() []string
}

var _ Runner = (*Reporter)(nil)

// Reporter runs the table checks and the bucket listing.
type Reporter struct {
	checker *Checker
	buckets backend.BucketLister
	timeout time.Duration
	logger  *zap.Logger
}

// NewReporter creates a Reporter. lister may be nil when storage is not
// configured; the report then carries a storage error.
func NewReporter(checker *Checker, lister backend.BucketLister, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		checker: checker,
		buckets: lister,
		timeout: checker.cfg.QueryTimeout,
		logger:  logger,
	}
}

// Tables returns the table names the reporter checks.
func (r *Reporter) Tables() []string {
	return r.checker.Tables()
}

// Run performs one diagnostic pass. The returned Report is new on every
// call and is not retained.
func (r *Reporter) Run(ctx context.Context) *Report {
	start := time.Now()

	report := &Report{Tables: r.checker.Check(ctx)}

	bctx, cancel := withTimeout(ctx, r.timeout)
	report.Buckets = ListBuckets(bctx, r.buckets)
	cancel()

	if !report.Buckets.OK() {
		r.logger.Warn("bucket listing failed", zap.String("error", report.Buckets.Error))
	}
	r.logger.Info("diagnostic finished",
		zap.Int("tables", len(report.Tables)),
		zap.Bool("healthy", report.Healthy()),
		zap.Duration("took", time.Since(start)))

	return report
}
