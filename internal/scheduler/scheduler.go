// Package scheduler manages periodic background tasks using gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kmtrend/pagerelay/internal/config"
	"github.com/kmtrend/pagerelay/internal/tasks"
)

// Scheduler runs the configured background tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.TaskFunc
	mu        sync.Mutex
	running   bool
}

// New creates a scheduler instance.
func New(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.TaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules all enabled tasks and starts the scheduler's ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	if s.cfg != nil {
		for taskName, taskConfig := range s.cfg.Tasks {
			if !taskConfig.Enabled {
				s.logger.Info("Skipping disabled task", "task_name", taskName)
				continue
			}

			taskFunc, exists := s.taskMap[taskName]
			if !exists {
				s.logger.Warn("Task configured but not registered, skipping", "task_name", taskName)
				continue
			}
			if taskConfig.Schedule == "" {
				s.logger.Warn("Task enabled but has empty schedule, skipping", "task_name", taskName)
				continue
			}

			_, err := s.scheduler.NewJob(
				gocron.CronJob(taskConfig.Schedule, false),
				gocron.NewTask(
					func(ctx context.Context, name string) {
						s.logger.Info("Running scheduled task", "task_name", name)
						startTime := time.Now()
						if taskErr := taskFunc(ctx); taskErr != nil {
							s.logger.Error("Scheduled task failed", "task_name", name, "error", taskErr)
						}
						s.logger.Info("Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
					},
					context.Background(),
					taskName,
				),
				gocron.WithName(taskName),
			)
			if err != nil {
				s.logger.Error("Failed to schedule task",
					"task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
				continue
			}

			s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
			scheduled++
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped.")
	}

	s.running = false
	return err
}
