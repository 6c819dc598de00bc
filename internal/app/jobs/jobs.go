// Package jobs runs periodic maintenance: removing attachments that never
// made it into a message and purging expired refresh tokens.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
)

// runTimeout bounds a single run of any job.
const runTimeout = 5 * time.Minute

// Job does one unit of maintenance and reports how many items it removed.
type Job func(ctx context.Context) (int64, error)

// Scheduler runs jobs on cron schedules. A job still running when its next
// tick arrives is skipped.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  zerolog.Logger
	runs    *prometheus.CounterVec
	removed *prometheus.CounterVec
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "madrasa",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Maintenance job runs by job and result.",
		}, []string{"job", "result"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "madrasa",
			Subsystem: "jobs",
			Name:      "removed_total",
			Help:      "Items removed by maintenance jobs.",
		}, []string{"job"}),
	}
}

// Collectors are the job metrics, for registration on the HTTP metrics registry.
func (s *Scheduler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.runs, s.removed}
}

// Add schedules job under name. spec accepts the standard five fields and
// descriptors such as "@every 1h" or "@daily".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(name, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

// Run executes job once and records the outcome.
func (s *Scheduler) Run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := job(ctx)
	if n > 0 {
		s.removed.WithLabelValues(name).Add(float64(n))
	}
	if err != nil {
		s.runs.WithLabelValues(name, "error").Inc()
		s.logger.Error().Err(err).Str("job", name).Int64("removed", n).Msg("Job failed")
		return
	}
	s.runs.WithLabelValues(name, "ok").Inc()
	s.logger.Info().Str("job", name).Int64("removed", n).Dur("duration", time.Since(start)).Msg("Job finished")
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done. Jobs
// still running at that point see their context cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("jobs did not finish before shutdown: %w", ctx.Err())
	}
}

// OrphanStore lists and removes file rows no message points to.
type OrphanStore interface {
	ListOrphans(ctx context.Context, cutoff time.Time, limit uint64) ([]*models.File, error)
	Delete(ctx context.Context, id int64) error
}

// FileRemover deletes stored file content.
type FileRemover interface {
	Delete(path string) error
}

// reapBatch caps the files handled per run; the rest wait for the next tick.
const reapBatch = 200

// AttachmentReaper removes uploads older than retention that were never
// attached to a message, for instance because the message insert failed
// after the file was written.
func AttachmentReaper(files OrphanStore, storage FileRemover, retention time.Duration, now func() time.Time) Job {
	return func(ctx context.Context) (int64, error) {
		orphans, err := files.ListOrphans(ctx, now().Add(-retention), reapBatch)
		if err != nil {
			return 0, err
		}

		var removed int64
		var errs error
		for _, f := range orphans {
			if ctx.Err() != nil {
				return removed, errors.Join(errs, ctx.Err())
			}
			// content first: a row without content is harmless, the reverse leaks disk
			if err := storage.Delete(f.FilePath); err != nil {
				errs = errors.Join(errs, fmt.Errorf("file %d: %w", f.ID, err))
				continue
			}
			if err := files.Delete(ctx, f.ID); err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
				errs = errors.Join(errs, fmt.Errorf("file %d: %w", f.ID, err))
				continue
			}
			removed++
		}
		return removed, errs
	}
}

// TokenCleaner purges refresh tokens past their expiry.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// TokenCleanup removes expired and long revoked refresh tokens.
func TokenCleanup(tokens TokenCleaner) Job {
	return tokens.CleanupExpiredTokens
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
