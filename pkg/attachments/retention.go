package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig contains configuration for the blob pruner.
type RetentionConfig struct {
	// MaxAge is how long a blob is kept. 0 disables age-based pruning.
	MaxAge time.Duration

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 * * * *" (hourly)
	PruneSchedule string
}

// Pruner deletes uploaded blobs older than the retention period.
type Pruner struct {
	blobs    BlobStore
	registry *Registry
	config   RetentionConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewPruner creates a pruner. registry may be nil.
func NewPruner(blobs BlobStore, registry *Registry, config RetentionConfig) *Pruner {
	return &Pruner{
		blobs:    blobs,
		registry: registry,
		config:   config,
		logger:   slog.Default().With("component", "attachments.retention"),
		now:      time.Now,
	}
}

// Prune deletes every blob last modified before now minus MaxAge and
// returns the number deleted.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.MaxAge <= 0 {
		return 0, nil
	}

	cutoff := p.now().Add(-p.config.MaxAge)
	old, err := p.blobs.List(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}

	deleted := make([]string, 0, len(old))
	for _, b := range old {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := p.blobs.Delete(ctx, b.Handle); err != nil {
			p.logger.Warn("failed to delete blob", "handle", b.Handle, "error", err)
			continue
		}
		deleted = append(deleted, b.Handle)
	}

	if p.registry != nil {
		p.registry.Forget(deleted...)
	}

	p.logger.Debug("blob pruning finished",
		"cutoff", cutoff,
		"candidates", len(old),
		"deleted", len(deleted),
	)
	return len(deleted), nil
}

// Scheduler runs the pruner at scheduled intervals using cron syntax.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool

	// OnPruned, if set, receives the count of every successful run.
	OnPruned func(deleted int)
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "attachments.scheduler"),
	}
}

// Start begins scheduled pruning. If PruneSchedule is empty or MaxAge is
// zero, the scheduler does nothing. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.pruner.config.PruneSchedule
	if schedule == "" || s.pruner.config.MaxAge <= 0 {
		s.logger.Info("blob retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.runPruning(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("blob retention scheduler started",
		"schedule", schedule,
		"max_age", s.pruner.config.MaxAge,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runPruning(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	if s.OnPruned != nil {
		s.OnPruned(deleted)
	}
	if deleted > 0 {
		attrs := []any{"deleted_count", deleted}
		if next := s.NextRun(); next != nil {
			attrs = append(attrs, "next_run", next.Format(time.RFC3339))
		}
		s.logger.Info("scheduled pruning completed", attrs...)
	}
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("blob retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil. It does not take
// s.mu, so a running job may call it while Stop waits for that job.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
