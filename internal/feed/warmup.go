package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/trailfeed/internal/jobs"
)

// Warmup policy defaults.
const (
	// DefaultWarmupInterval is the duration between warmup cycles.
	DefaultWarmupInterval = 30 * time.Minute

	// DefaultWarmupBackoff is the retry delay after a failed cycle.
	DefaultWarmupBackoff = 5 * time.Minute

	// DefaultWarmupTimeout bounds a single warmup cycle.
	DefaultWarmupTimeout = 10 * time.Minute

	// WarmupBatchSize is how many users warm concurrently per batch.
	WarmupBatchSize = 10

	// WarmupPages is how many pages are precomputed per user.
	WarmupPages = 2

	// ActiveUserWindow selects users with activity inside this window.
	ActiveUserWindow = 24 * time.Hour
)

// ActivitySource lists users with recent activity.
// interaction.Repository satisfies this.
type ActivitySource interface {
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// WarmupJobConfig configures the feed warmup job.
type WarmupJobConfig struct {
	// Interval is the duration between warmup cycles.
	Interval time.Duration
	// Backoff is the retry delay after a failed cycle.
	Backoff time.Duration
	// Timeout for each warmup cycle.
	Timeout time.Duration
	// PageSize used for the precomputed pages.
	PageSize int
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics jobs.Reporter
}

// WarmupJob periodically precomputes the first feed pages for recently
// active users so their next request hits the cache.
type WarmupJob struct {
	config      WarmupJobConfig
	coordinator *Coordinator
	activity    ActivitySource

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWarmupJob creates a new feed warmup job.
func NewWarmupJob(config WarmupJobConfig, coordinator *Coordinator, activity ActivitySource) *WarmupJob {
	if config.Interval == 0 {
		config.Interval = DefaultWarmupInterval
	}
	if config.Backoff == 0 {
		config.Backoff = DefaultWarmupBackoff
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultWarmupTimeout
	}
	if config.PageSize == 0 {
		config.PageSize = 20
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &WarmupJob{
		config:      config,
		coordinator: coordinator,
		activity:    activity,
	}
}

// Start begins the periodic warmup job.
// Returns immediately; the job runs in a background goroutine.
func (j *WarmupJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the warmup job to stop and waits for it to finish.
// In-flight per-user warmups run to completion.
func (j *WarmupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *WarmupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// run is the main loop for the warmup job. A failed cycle is retried after
// the shorter backoff delay instead of terminating the loop.
func (j *WarmupJob) run(ctx context.Context) {
	defer close(j.doneCh)

	timer := time.NewTimer(j.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("feed warmup job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("feed warmup job stopping due to stop signal")
			return
		case <-timer.C:
			delay := j.config.Interval
			if err := j.warmCycle(ctx); err != nil {
				j.config.Logger.Error("feed warmup cycle failed, retrying after backoff",
					"error", err,
					"backoff", j.config.Backoff)
				delay = j.config.Backoff
			}
			timer.Reset(delay)
		}
	}
}

// warmCycle precomputes pages for every recently active user, in bounded
// concurrent batches. The stop signal is observed between batches.
func (j *WarmupJob) warmCycle(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	j.mu.Lock()
	stopCh := j.stopCh // nil when never started; a nil channel never fires
	j.mu.Unlock()

	startTime := time.Now()
	since := time.Now().Add(-ActiveUserWindow)

	userIDs, err := j.activity.ListActiveUserIDs(ctx, since)
	if err != nil {
		j.reportCycle(jobs.StatusFailure, startTime)
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobErrors(jobs.JobTypeFeedWarmup, "activity_source_error")
		}
		return fmt.Errorf("list active users: %w", err)
	}
	if len(userIDs) == 0 {
		j.reportCycle(jobs.StatusSuccess, startTime)
		return nil
	}

	j.config.Logger.Info("feed warmup cycle starting",
		"active_users", len(userIDs))

	var warmed, failed int
	for start := 0; start < len(userIDs); start += WarmupBatchSize {
		select {
		case <-ctx.Done():
			j.reportCycle(jobs.StatusFailure, startTime)
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors(jobs.JobTypeFeedWarmup, "timeout")
			}
			return fmt.Errorf("warmup cycle interrupted after %d users: %w", warmed, ctx.Err())
		case <-stopCh:
			j.config.Logger.Info("feed warmup cycle stopping between batches",
				"warmed", warmed)
			j.reportCycle(jobs.StatusSuccess, startTime)
			return nil
		default:
		}

		end := start + WarmupBatchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, userID := range batch {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()

				if err := j.coordinator.WarmUser(ctx, userID, WarmupPages, j.config.PageSize); err != nil {
					j.config.Logger.Warn("user warmup failed",
						"user_id", userID,
						"error", err)
					mu.Lock()
					failed++
					mu.Unlock()
					return
				}
				mu.Lock()
				warmed++
				mu.Unlock()
			}(userID)
		}
		wg.Wait()
	}

	status := jobs.StatusSuccess
	if failed > 0 && warmed == 0 {
		status = jobs.StatusFailure
	}
	j.reportCycle(status, startTime)

	j.config.Logger.Info("feed warmup cycle completed",
		"duration_seconds", time.Since(startTime).Seconds(),
		"users_warmed", warmed,
		"users_failed", failed)

	if status == jobs.StatusFailure {
		return fmt.Errorf("warmup cycle failed for all %d users", failed)
	}
	return nil
}

// reportCycle records job completion metrics.
func (j *WarmupJob) reportCycle(status string, startTime time.Time) {
	if j.config.JobMetrics == nil {
		return
	}
	j.config.JobMetrics.IncJobsTotal(jobs.JobTypeFeedWarmup, status)
	j.config.JobMetrics.ObserveJobDuration(jobs.JobTypeFeedWarmup, time.Since(startTime).Seconds())
}

// WarmNow immediately runs one warmup cycle without waiting for the timer.
// This is useful for testing or forcing immediate warming.
func (j *WarmupJob) WarmNow() error {
	return j.warmCycle(context.Background())
}
