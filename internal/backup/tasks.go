package backup

import (
	"context"

	"github.com/hibiken/asynq"
)

// TypeExport is the asynq task type for scheduled backup exports.
const TypeExport = "backup:export"

// NewExportTask builds the export task. The task carries no payload; the
// worker exports whatever the dataset holds at processing time.
func NewExportTask() *asynq.Task {
	return asynq.NewTask(TypeExport, nil, asynq.MaxRetry(3))
}

// HandleExport processes TypeExport tasks.
func (s *Service) HandleExport(ctx context.Context, _ *asynq.Task) error {
	_, err := s.StoreSnapshot(ctx)
	return err
}
