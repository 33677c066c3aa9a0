package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ContractScan/internal/domain/models"
	domrepo "ContractScan/internal/domain/repository"
	pkgcache "ContractScan/pkg/cache"
)

// ReportCache stores finished reports as JSON keyed by contract date.
type ReportCache struct {
	store pkgcache.Store
	ttl   time.Duration
}

var _ domrepo.ReportCache = (*ReportCache)(nil)

func NewReportCache(store pkgcache.Store, ttl time.Duration) *ReportCache {
	return &ReportCache{store: store, ttl: ttl}
}

func reportKey(contract time.Time) string {
	return pkgcache.Key("report", models.Stamp(contract))
}

func lockKey(contract time.Time) string {
	return pkgcache.Key("lock", "analysis", models.Stamp(contract))
}

// Get returns models.ErrReportNotFound on a miss.
func (c *ReportCache) Get(ctx context.Context, contract time.Time) (*models.AnalysisReport, error) {
	r, err := pkgcache.GetJSON[models.AnalysisReport](ctx, c.store, reportKey(contract))
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, models.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("report cache get: %w", err)
	}
	return &r, nil
}

func (c *ReportCache) Set(ctx context.Context, r *models.AnalysisReport) error {
	return pkgcache.SetJSON(ctx, c.store, reportKey(r.ContractDate), r, c.ttl)
}

// Lock claims the right to analyse a contract date. The returned release func is a
// no-op when the lock was not acquired.
func (c *ReportCache) Lock(ctx context.Context, contract time.Time, ttl time.Duration) (func(), bool, error) {
	key := lockKey(contract)
	ok, err := c.store.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() { _ = c.store.Unlock(context.Background(), key) }, true, nil
}
