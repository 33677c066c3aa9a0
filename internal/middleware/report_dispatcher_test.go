package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
	"ContractScan/pkg/metrics"
)

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []string
	closed    bool
}

func (f *flakyPublisher) PublishReport(_ context.Context, r *models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, models.Stamp(r.ContractDate))
	return nil
}

func (f *flakyPublisher) Close() error { f.closed = true; return nil }

func (f *flakyPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func report(day int) *models.AnalysisReport {
	return &models.AnalysisReport{ContractDate: time.Date(2020, 1, day, 0, 0, 0, 0, time.UTC)}
}

func TestDispatcherRetriesRejectedReports(t *testing.T) {
	next := &flakyPublisher{failures: 2}
	d := NewReportDispatcher(next, metrics.Noop{}, applogger.Nop(), WithMaxBackoff(20*time.Millisecond))
	require.NoError(t, d.Start())

	require.NoError(t, d.PublishReport(context.Background(), report(31)))
	assert.Eventually(t, func() bool { return next.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, d.Pending())

	require.NoError(t, d.Stop(context.Background()))
	assert.True(t, next.closed)
}

func TestDispatcherBufferFull(t *testing.T) {
	next := &flakyPublisher{failures: 10}
	d := NewReportDispatcher(next, metrics.Noop{}, applogger.Nop(), WithBufferSize(1))

	require.NoError(t, d.PublishReport(context.Background(), report(1)))
	err := d.PublishReport(context.Background(), report(2))
	assert.ErrorIs(t, err, ErrDispatcherFull)
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcherSuppressesRepeats(t *testing.T) {
	next := &flakyPublisher{}
	d := NewReportDispatcher(next, metrics.Noop{}, applogger.Nop(), WithMinInterval(time.Minute))
	now := time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	require.NoError(t, d.PublishReport(context.Background(), report(31)))
	require.NoError(t, d.PublishReport(context.Background(), report(31)))
	require.NoError(t, d.PublishReport(context.Background(), report(30)))
	assert.Equal(t, []string{"20200131", "20200130"}, next.published)

	now = now.Add(2 * time.Minute)
	require.NoError(t, d.PublishReport(context.Background(), report(31)))
	assert.Equal(t, 3, next.count())
}

func TestDispatcherRejectsNil(t *testing.T) {
	d := NewReportDispatcher(&flakyPublisher{}, metrics.Noop{}, applogger.Nop())
	assert.Error(t, d.PublishReport(context.Background(), nil))
}
