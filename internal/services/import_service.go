// Package services implements the import pipeline: job creation from a
// normalized source file, retry-job derivation, async dispatch and
// per-item processing (book resolution followed by idempotent side
// effects).
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/openshelf/openshelf/internal/database/books"
	"github.com/openshelf/openshelf/internal/database/imports"
	"github.com/openshelf/openshelf/internal/database/reviews"
	"github.com/openshelf/openshelf/internal/database/shelves"
	"github.com/openshelf/openshelf/internal/entities"
	"github.com/openshelf/openshelf/internal/importers"
)

// ImportService orchestrates bulk imports end to end.
type ImportService struct {
	jobs        *imports.Repository
	books       *books.Repository
	shelves     *shelves.Repository
	reviews     *reviews.Repository
	catalog     Catalog
	dispatcher  Dispatcher
	broadcaster Broadcaster
}

// NewImportService creates an ImportService wired to its repositories
// and collaborators.
func NewImportService(
	jobs *imports.Repository,
	books *books.Repository,
	shelves *shelves.Repository,
	reviews *reviews.Repository,
	catalog Catalog,
	dispatcher Dispatcher,
	broadcaster Broadcaster,
) *ImportService {
	return &ImportService{
		jobs:        jobs,
		books:       books,
		shelves:     shelves,
		reviews:     reviews,
		catalog:     catalog,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
	}
}

// CreateJob normalizes every row of the source file with the given
// importer and persists the job with one item per row, indexed in file
// order. A row failing mandatory-field validation aborts the whole
// job: either all rows are stored or none are.
func (s *ImportService) CreateJob(user *entities.User, importer importers.Importer, file io.Reader, includeReviews bool, privacy entities.Privacy) (*entities.ImportJob, error) {
	rows, err := importers.ParseCSV(file, importer)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.CreateJob(user.ID, importer.ServiceName(), includeReviews, privacy, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	log.Printf("[IMPORT] Created job %d for user %d with %d items (source %s)",
		job.ID, user.ID, len(rows), importer.ServiceName())
	return job, nil
}

// CreateRetryJob builds a new, independent job from a failed subset of
// a prior job's items. The new job inherits includeReviews and privacy
// from the original; its items are clones of the given items,
// re-indexed 0..k-1 in the order given. The original job is untouched.
func (s *ImportService) CreateRetryJob(user *entities.User, original *entities.ImportJob, failedItems []entities.ImportItem) (*entities.ImportJob, error) {
	job, err := s.jobs.CreateRetryJob(user.ID, original, failedItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry job: %w", err)
	}

	log.Printf("[IMPORT] Created retry job %d from job %d with %d items",
		job.ID, original.ID, len(failedItems))
	return job, nil
}

// StartImport dispatches asynchronous processing of the job and
// records the returned task handle on it. Last dispatch wins; the
// call does not wait for any item to complete.
func (s *ImportService) StartImport(job *entities.ImportJob) error {
	taskID, err := s.dispatcher.DispatchImport(job.ID)
	if err != nil {
		return fmt.Errorf("failed to dispatch import job %d: %w", job.ID, err)
	}

	if err := s.jobs.SetTaskID(job.ID, taskID); err != nil {
		return fmt.Errorf("failed to record task id on job %d: %w", job.ID, err)
	}
	job.TaskID = taskID

	log.Printf("[IMPORT] Dispatched job %d as task %s", job.ID, taskID)
	return nil
}

// ProcessJob fans a job out into one asynchronous unit of work per
// item. Items carry no ordering guarantee and may complete in any
// order.
func (s *ImportService) ProcessJob(ctx context.Context, jobID uint) error {
	items, err := s.jobs.ItemsForJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to load items for job %d: %w", jobID, err)
	}

	for _, item := range items {
		if _, err := s.dispatcher.DispatchItem(item.ID); err != nil {
			return fmt.Errorf("failed to dispatch item %d of job %d: %w", item.ID, jobID, err)
		}
	}

	log.Printf("[IMPORT] Job %d: dispatched %d items", jobID, len(items))
	return nil
}

// ProcessItem runs one item through resolution and side effects. Every
// failure is captured as the item's failure reason; nothing propagates
// past this boundary except the inability to record a failure at all.
func (s *ImportService) ProcessItem(ctx context.Context, itemID uint) error {
	item, err := s.jobs.GetItem(itemID)
	if err != nil {
		return fmt.Errorf("failed to load import item %d: %w", itemID, err)
	}

	book, err := s.resolveItem(ctx, item)
	if err != nil {
		log.Printf("[IMPORT] Item %d: %v", item.ID, err)
		return s.jobs.MarkItemFailed(item.ID, err.Error())
	}

	if err := s.jobs.MarkItemResolved(item.ID, book.ID); err != nil {
		log.Printf("[IMPORT] Item %d: failed to record resolution: %v", item.ID, err)
		return s.jobs.MarkItemFailed(item.ID, fmt.Sprintf("persistence: %v", err))
	}

	if err := s.applyItem(ctx, item.Job.UserID, item, book, item.Job.IncludeReviews, item.Job.Privacy); err != nil {
		log.Printf("[IMPORT] Item %d: %v", item.ID, err)
		return s.jobs.MarkItemFailed(item.ID, fmt.Sprintf("persistence: %v", err))
	}

	return nil
}

// resolveItem maps a normalized row to a canonical book: local cache
// by ISBN-13 first, then the catalog connector, then title+author
// search-or-create as the fallback.
func (s *ImportService) resolveItem(ctx context.Context, item *entities.ImportItem) (*entities.Book, error) {
	if item.BookID != nil && item.Book != nil {
		return item.Book, nil
	}

	if isbn := item.ISBN13(); isbn != "" {
		book, err := s.books.FindByISBN(isbn)
		if err != nil {
			return nil, fmt.Errorf("persistence: %w", err)
		}
		if book != nil {
			return book, nil
		}

		catalogBook, err := s.catalog.ResolveByISBN(ctx, isbn)
		if err == nil {
			return s.saveCatalogBook(catalogBook)
		}
		if !errors.Is(err, ErrBookNotFound) {
			return nil, &ResolutionError{ISBN: isbn, Title: item.Title(), Author: item.Author(), Err: err}
		}
		// not found by ISBN, fall through to title+author search
	}

	book, err := s.books.FindByTitleAuthor(item.Title(), item.Author())
	if err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	if book != nil {
		return book, nil
	}

	catalogBook, err := s.catalog.SearchOrCreate(ctx, item.Title(), item.Author())
	if err != nil {
		return nil, &ResolutionError{Title: item.Title(), Author: item.Author(), Err: err}
	}
	return s.saveCatalogBook(catalogBook)
}

// saveCatalogBook caches a catalog result locally, reusing an existing
// row when a concurrent item already stored the same book.
func (s *ImportService) saveCatalogBook(catalogBook *CatalogBook) (*entities.Book, error) {
	if catalogBook.ISBN13 != "" {
		existing, err := s.books.FindByISBN(catalogBook.ISBN13)
		if err != nil {
			return nil, fmt.Errorf("persistence: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	existing, err := s.books.FindByTitleAuthor(catalogBook.Title, catalogBook.Author)
	if err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	book := &entities.Book{
		Title:      catalogBook.Title,
		Author:     catalogBook.Author,
		ISBN13:     catalogBook.ISBN13,
		CatalogKey: catalogBook.CatalogKey,
	}
	if err := s.books.Create(book); err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	return book, nil
}
