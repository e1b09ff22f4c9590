package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

const defaultRefreshInterval = time.Minute

// Refresher is a resource store the refresh job can retry.
type Refresher interface {
	Name() string
	NeedsRetry() bool
	Retry(ctx context.Context, who models.Authenticated) error
}

// IdentitySource yields the identity resources are loaded for.
type IdentitySource interface {
	Current() (models.Authenticated, error)
}

// RefreshJob periodically retries the stores whose last load did not
// complete. It is idle until Start is called.
type RefreshJob struct {
	identity  IdentitySource
	refreshes []Refresher
	logger    *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefreshJob builds a RefreshJob over refreshes.
func NewRefreshJob(identity IdentitySource, log *logger.Logger, refreshes ...Refresher) *RefreshJob {
	return &RefreshJob{
		identity:  identity,
		refreshes: refreshes,
		logger:    log.WithComponent("refresh-job"),
	}
}

// Start stops a running job and launches a goroutine calling RunOnce every
// interval until ctx is cancelled or Stop is called. A non-positive interval
// means one minute.
func (j *RefreshJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				_ = j.RunOnce(jobCtx)
			}
		}
	}()
}

// Stop cancels the job and waits for its goroutine. It is a no-op when the
// job is not running.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// RunOnce retries every store flagged for a retry. Anonymous sessions are
// skipped.
func (j *RefreshJob) RunOnce(ctx context.Context) error {
	who, err := j.identity.Current()
	if err != nil {
		return nil
	}

	var errs []error
	for _, r := range j.refreshes {
		if !r.NeedsRetry() {
			continue
		}
		if err = r.Retry(ctx, who); err != nil {
			j.logger.Warn().Err(err).Str("func", "RefreshJob.RunOnce").Str("store", r.Name()).Msg("retry failed")
			errs = append(errs, err)
			continue
		}
		j.logger.Info().Str("func", "RefreshJob.RunOnce").Str("store", r.Name()).Msg("store refreshed")
	}
	return errors.Join(errs...)
}
