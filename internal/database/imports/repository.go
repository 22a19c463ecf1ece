// Package imports provides database operations for import jobs and
// their items.
//
// Jobs and items are created atomically and items are written to at
// most twice: once at creation and once when resolution records either
// the matched book or a failure reason. They are never deleted, so a
// finished job doubles as an audit trail of what each row became.
package imports

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles import job and item database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new imports repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateJob persists a job and one item per normalized row in a single
// transaction. Items are indexed 0..n-1 in the order rows were given,
// which is the source file order.
func (r *Repository) CreateJob(userID uint, source string, includeReviews bool, privacy entities.Privacy, rows []entities.FieldMap) (*entities.ImportJob, error) {
	job := &entities.ImportJob{
		UserID:         userID,
		Source:         source,
		IncludeReviews: includeReviews,
		Privacy:        privacy,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create import job: %w", err)
		}
		for index, row := range rows {
			item := entities.ImportItem{
				JobID: job.ID,
				Index: index,
				Data:  row,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create import item %d: %w", index, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// CreateRetryJob creates a new job carrying the original job's
// includeReviews and privacy settings, with items cloned from the
// given failed items, re-indexed 0..k-1 in the order given. The
// original job and its items are not touched.
func (r *Repository) CreateRetryJob(userID uint, original *entities.ImportJob, failedItems []entities.ImportItem) (*entities.ImportJob, error) {
	rows := make([]entities.FieldMap, 0, len(failedItems))
	for _, item := range failedItems {
		rows = append(rows, item.Data)
	}
	return r.CreateJob(userID, original.Source, original.IncludeReviews, original.Privacy, rows)
}

// SetTaskID records the async task handle on a job. Last dispatch wins.
func (r *Repository) SetTaskID(jobID uint, taskID string) error {
	return r.db.Model(&entities.ImportJob{}).Where("id = ?", jobID).Update("task_id", taskID).Error
}

// GetJob retrieves a job with its items ordered by index.
func (r *Repository) GetJob(id uint) (*entities.ImportJob, error) {
	var job entities.ImportJob
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("item_index ASC")
	}).First(&job, id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetItem retrieves a single item with its job and resolved book.
func (r *Repository) GetItem(id uint) (*entities.ImportItem, error) {
	var item entities.ImportItem
	err := r.db.Preload("Job").Preload("Book").First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemsForJob retrieves all items of a job in index order.
func (r *Repository) ItemsForJob(jobID uint) ([]entities.ImportItem, error) {
	var items []entities.ImportItem
	err := r.db.Where("job_id = ?", jobID).Order("item_index ASC").Find(&items).Error
	return items, err
}

// FailedItems retrieves the items of a job that recorded a failure
// reason, in index order. This is the subset a retry job is built from.
func (r *Repository) FailedItems(jobID uint) ([]entities.ImportItem, error) {
	var items []entities.ImportItem
	err := r.db.Where("job_id = ? AND fail_reason <> ''", jobID).Order("item_index ASC").Find(&items).Error
	return items, err
}

// MarkItemResolved records the book an item resolved to.
func (r *Repository) MarkItemResolved(itemID, bookID uint) error {
	return r.db.Model(&entities.ImportItem{}).Where("id = ?", itemID).
		Updates(map[string]any{"book_id": bookID, "fail_reason": ""}).Error
}

// MarkItemFailed records a terminal per-item failure reason.
func (r *Repository) MarkItemFailed(itemID uint, reason string) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	return r.db.Model(&entities.ImportItem{}).Where("id = ?", itemID).
		Update("fail_reason", reason).Error
}
