package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/openshelf/openshelf/internal/services"
)

// ImportJobTask fans an import job out into per-item tasks.
type ImportJobTask struct {
	JobID uint `json:"job_id"`
}

// Config returns the queue configuration for import job tasks.
// MaxAttempts is 1: item failures are recorded on the items, and
// retrying is an explicit user action, never automatic.
func (t ImportJobTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_job",
		MaxAttempts: 1,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportItemTask processes one item: resolution then side effects.
type ImportItemTask struct {
	ItemID uint `json:"item_id"`
}

// Config returns the queue configuration for import item tasks.
func (t ImportItemTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_item",
		MaxAttempts: 1,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportJobProcessor creates a processor function for ImportJobTask.
func ImportJobProcessor(svc *services.ImportService) backlite.QueueProcessor[ImportJobTask] {
	return func(ctx context.Context, task ImportJobTask) error {
		if svc == nil {
			return fmt.Errorf("import service not configured")
		}
		if err := svc.ProcessJob(ctx, task.JobID); err != nil {
			return fmt.Errorf("process import job %d: %w", task.JobID, err)
		}
		return nil
	}
}

// ImportItemProcessor creates a processor function for ImportItemTask.
func ImportItemProcessor(svc *services.ImportService) backlite.QueueProcessor[ImportItemTask] {
	return func(ctx context.Context, task ImportItemTask) error {
		if svc == nil {
			return fmt.Errorf("import service not configured")
		}
		if err := svc.ProcessItem(ctx, task.ItemID); err != nil {
			return fmt.Errorf("process import item %d: %w", task.ItemID, err)
		}
		return nil
	}
}

// NewImportJobQueue creates a backlite queue for import job tasks.
func NewImportJobQueue(svc *services.ImportService) backlite.Queue {
	return backlite.NewQueue(ImportJobProcessor(svc))
}

// NewImportItemQueue creates a backlite queue for import item tasks.
func NewImportItemQueue(svc *services.ImportService) backlite.Queue {
	return backlite.NewQueue(ImportItemProcessor(svc))
}

// DispatchImport enqueues processing of a whole job and returns the
// task handle id recorded on the job.
func (c *Client) DispatchImport(jobID uint) (string, error) {
	ids, err := c.Add(ImportJobTask{JobID: jobID}).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue import job %d: %w", jobID, err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no task id returned for import job %d", jobID)
	}
	return ids[0], nil
}

// DispatchItem enqueues processing of a single item.
func (c *Client) DispatchItem(itemID uint) (string, error) {
	ids, err := c.Add(ImportItemTask{ItemID: itemID}).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue import item %d: %w", itemID, err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no task id returned for import item %d", itemID)
	}
	return ids[0], nil
}

// Compile-time interface check
var _ services.Dispatcher = (*Client)(nil)
