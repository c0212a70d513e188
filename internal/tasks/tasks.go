// Package tasks defines the relay's scheduled background tasks.
package tasks

import (
	"context"
	"log/slog"

	"github.com/kmtrend/pagerelay/internal/database"
)

// TaskFunc is the standard signature for scheduled tasks. The context
// provided by the scheduler should be respected for cancellation.
type TaskFunc func(ctx context.Context) error

// Deps contains the dependencies available to scheduled tasks.
type Deps struct {
	Logger *slog.Logger
	Store  database.Store
}

// RegisterAll returns the map of registered task functions. The keys match
// the task names used in the scheduler section of the configuration.
func RegisterAll(deps Deps) map[string]TaskFunc {
	taskMap := make(map[string]TaskFunc)

	taskMap["sql_maintenance"] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(taskMap))
	return taskMap
}
