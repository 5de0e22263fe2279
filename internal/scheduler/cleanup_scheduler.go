package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Loopin-city/loopin-city-sub001/internal/archiver"
	"github.com/Loopin-city/loopin-city-sub001/internal/metrics"
	"github.com/Loopin-city/loopin-city-sub001/internal/models"
)

// CleanupLogger records the outcome of each archival run.
type CleanupLogger interface {
	Log(ctx context.Context, entry models.CleanupLog) error
}

// CleanupScheduler manages periodic execution of the event archiver
type CleanupScheduler struct {
	archiver *archiver.Archiver
	logs     CleanupLogger
	metrics  *metrics.ArchiveMetrics
	logger   *slog.Logger
	stopChan chan struct{}
	interval time.Duration
}

// NewCleanupScheduler creates a new cleanup scheduler. A non-positive
// interval falls back to the daily default.
func NewCleanupScheduler(
	arch *archiver.Archiver,
	logs CleanupLogger,
	interval time.Duration,
	logger *slog.Logger,
) *CleanupScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupScheduler{
		archiver: arch,
		logs:     logs,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// SetMetrics attaches archival run metrics. Optional.
func (s *CleanupScheduler) SetMetrics(m *metrics.ArchiveMetrics) {
	s.metrics = m
}

// Start begins the scheduler loop
func (s *CleanupScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting cleanup scheduler", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start to catch events that expired while
	// the service was down
	s.runCleanup(ctx, models.CleanupActionDailySweep)

	for {
		select {
		case <-ticker.C:
			s.runCleanup(ctx, models.CleanupActionDailySweep)
		case <-s.stopChan:
			s.logger.Info("Cleanup scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Cleanup scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *CleanupScheduler) Stop() {
	close(s.stopChan)
}

// RunNow executes one archival pass outside the schedule, recording it as
// a manual run. Used by the admin cleanup endpoint.
func (s *CleanupScheduler) RunNow(ctx context.Context) (*archiver.ArchiveResult, error) {
	return s.run(ctx, models.CleanupActionManualSweep)
}

func (s *CleanupScheduler) runCleanup(ctx context.Context, action models.CleanupAction) {
	if _, err := s.run(ctx, action); err != nil {
		s.logger.Error("Scheduled cleanup failed", "error", err)
	}
}

func (s *CleanupScheduler) run(ctx context.Context, action models.CleanupAction) (*archiver.ArchiveResult, error) {
	result, err := s.archiver.ArchiveExpired(ctx)

	if s.metrics != nil {
		if err != nil {
			s.metrics.ObserveRun(0, 0, 0, err)
		} else {
			s.metrics.ObserveRun(result.SuccessfulEvents, result.DeletedEvents, result.Duration, nil)
		}
	}

	entry := models.CleanupLog{Action: action}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Result = resultMap(result)
	}

	if logErr := s.logs.Log(ctx, entry); logErr != nil {
		s.logger.Error("Failed to record cleanup log", "error", logErr)
	}

	if err != nil {
		return nil, err
	}

	s.logger.Info("Cleanup run completed",
		"action", action,
		"archived", result.SuccessfulEvents,
		"deleted", result.DeletedEvents,
		"warnings", len(result.Warnings),
		"duration", result.Duration,
	)

	return result, nil
}

func resultMap(result *archiver.ArchiveResult) map[string]interface{} {
	return map[string]interface{}{
		"deleted_events":      result.DeletedEvents,
		"successful_events":   result.SuccessfulEvents,
		"updated_communities": result.UpdatedCommunities,
		"updated_venues":      result.UpdatedVenues,
		"duration_ms":         result.Duration.Milliseconds(),
		"warnings":            result.Warnings,
	}
}
