package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/go-co-op/gocron"
)

// Runner republishes one document of a profile
type Runner func(ctx context.Context, cfg *types.Config, document string) error

type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	run       Runner
	now       func() time.Time
	ctx       context.Context
	jobs      map[string]*gocron.Job
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *slog.Logger, run Runner) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		run:       run,
		now:       time.Now,
		ctx:       context.Background(),
		jobs:      make(map[string]*gocron.Job),
	}
}

// Start starts the scheduler. Jobs run with ctx until it is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs returns the IDs of the profiles with a scheduled job
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// UpdateJob updates or creates the republish job for a given configuration
func (s *Scheduler) UpdateJob(cfg *types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove existing job if any
	if job, exists := s.jobs[cfg.Meta.ID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, cfg.Meta.ID)
	}

	if !cfg.Scheduling.Enabled {
		s.logger.Info("scheduling disabled for configuration", "id", cfg.Meta.ID)
		return nil
	}

	// Check stop time first to avoid scheduling jobs that won't run
	var stopTime time.Time
	if cfg.Scheduling.StopAt != "" {
		var err error
		stopTime, err = time.Parse(time.RFC3339, cfg.Scheduling.StopAt)
		if err != nil {
			return fmt.Errorf("invalid stop time: %w", err)
		}

		if stopTime.Before(s.now().UTC()) {
			s.logger.Warn("skipping job schedule - stop time is in the past",
				"id", cfg.Meta.ID,
				"name", cfg.Meta.Name,
				"stop_at", cfg.Scheduling.StopAt,
			)
			return nil
		}
	}

	var startTime time.Time
	if cfg.Scheduling.StartAt != "" && !cfg.Scheduling.StartNow {
		var err error
		startTime, err = time.Parse(time.RFC3339, cfg.Scheduling.StartAt)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
	}

	documents := append([]string(nil), cfg.Scheduling.Documents...)
	jobFunc := func(ctx context.Context) {
		if !stopTime.IsZero() && s.now().UTC().After(stopTime) {
			s.logger.Info("stop time reached, removing job", "config_id", cfg.Meta.ID)
			go s.RemoveJob(cfg.Meta.ID)
			return
		}

		s.logger.Info("executing scheduled job",
			"config_id", cfg.Meta.ID,
			"documents", len(documents),
			"time", s.now().UTC(),
		)

		for _, doc := range documents {
			if ctx.Err() != nil {
				return
			}
			if err := s.run(ctx, cfg, doc); err != nil {
				s.logger.Error("failed to republish document",
					"error", err,
					"config_id", cfg.Meta.ID,
					"document", doc,
				)
			}
		}
	}

	unit, err := frequencyUnit(cfg.Scheduling.FrequencyEvery)
	if err != nil {
		return err
	}

	job := s.scheduler.Every(cfg.Scheduling.FrequencyAmount)

	if cfg.Scheduling.StartNow {
		s.logger.Info("running job immediately",
			"config_id", cfg.Meta.ID,
		)
		jobFunc(s.ctx)
	}

	if !startTime.IsZero() {
		job = job.StartAt(startTime)
	} else {
		job = job.WaitForSchedule()
	}

	job = unit(job)

	scheduledJob, err := job.Do(func() { jobFunc(s.context()) })
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.jobs[cfg.Meta.ID] = scheduledJob

	s.logger.Info("scheduled job updated",
		"id", cfg.Meta.ID,
		"frequency", fmt.Sprintf("every %d %s", cfg.Scheduling.FrequencyAmount, cfg.Scheduling.FrequencyEvery),
		"documents", len(documents),
		"start_now", cfg.Scheduling.StartNow,
		"start_at", cfg.Scheduling.StartAt,
		"stop_at", cfg.Scheduling.StopAt,
	)

	return nil
}

func frequencyUnit(every string) (func(*gocron.Scheduler) *gocron.Scheduler, error) {
	switch every {
	case "minute":
		return (*gocron.Scheduler).Minutes, nil
	case "hour":
		return (*gocron.Scheduler).Hours, nil
	case "day":
		return (*gocron.Scheduler).Days, nil
	case "week":
		return (*gocron.Scheduler).Weeks, nil
	case "month":
		return func(s *gocron.Scheduler) *gocron.Scheduler { return s.Months() }, nil
	default:
		return nil, fmt.Errorf("invalid frequency: %s", every)
	}
}

// RemoveJob removes a job for a given configuration ID
func (s *Scheduler) RemoveJob(configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[configID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, configID)
		s.logger.Info("removed scheduled job", "id", configID)
	}
}
