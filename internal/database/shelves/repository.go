// Package shelves provides database operations for shelves and
// shelvings.
package shelves

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles shelf and shelving database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new shelves repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetShelf retrieves a user's shelf by identifier.
func (r *Repository) GetShelf(userID uint, identifier string) (*entities.Shelf, error) {
	var shelf entities.Shelf
	err := r.db.Where("user_id = ? AND identifier = ?", userID, identifier).First(&shelf).Error
	if err != nil {
		return nil, err
	}
	return &shelf, nil
}

// GetOrCreateShelf retrieves a user's shelf by identifier, creating a
// custom shelf when none exists. The built-in shelves are created with
// the user, so creation here only happens for source-specific shelf
// names.
func (r *Repository) GetOrCreateShelf(userID uint, identifier string) (*entities.Shelf, error) {
	var shelf entities.Shelf
	err := r.db.Where("user_id = ? AND identifier = ?", userID, identifier).First(&shelf).Error
	if err == nil {
		return &shelf, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	shelf = entities.Shelf{
		UserID:     userID,
		Identifier: identifier,
		Name:       identifier,
		Editable:   true,
	}
	if err := r.db.Create(&shelf).Error; err != nil {
		return nil, fmt.Errorf("failed to create shelf %s: %w", identifier, err)
	}
	return &shelf, nil
}

// ShelvesForUser retrieves all of a user's shelves.
func (r *Repository) ShelvesForUser(userID uint) ([]entities.Shelf, error) {
	var shelves []entities.Shelf
	err := r.db.Where("user_id = ?", userID).Find(&shelves).Error
	return shelves, err
}

// GetShelving retrieves the shelving of a book for a user, wherever it
// is shelved.
func (r *Repository) GetShelving(userID, bookID uint) (*entities.ShelfBook, error) {
	var shelving entities.ShelfBook
	err := r.db.Preload("Shelf").Where("user_id = ? AND book_id = ?", userID, bookID).First(&shelving).Error
	if err != nil {
		return nil, err
	}
	return &shelving, nil
}

// ShelveBook places a book on a shelf unless the user already has it
// shelved anywhere, in which case the existing shelving is returned
// untouched: first shelving wins. The check and the write run in one
// transaction, and the unique (user_id, book_id) index backstops the
// race between two concurrent first shelvings.
func (r *Repository) ShelveBook(userID, shelfID, bookID uint, shelvedDate time.Time) (*entities.ShelfBook, bool, error) {
	var shelving entities.ShelfBook
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND book_id = ?", userID, bookID).First(&shelving).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		shelving = entities.ShelfBook{
			ShelfID:     shelfID,
			UserID:      userID,
			BookID:      bookID,
			ShelvedDate: shelvedDate,
		}
		if err := tx.Create(&shelving).Error; err != nil {
			return fmt.Errorf("failed to shelve book %d: %w", bookID, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &shelving, created, nil
}

// CountShelvings returns how many shelvings a user has for a book.
// At most 1 by construction; used by tests and the status endpoint.
func (r *Repository) CountShelvings(userID, bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.ShelfBook{}).Where("user_id = ? AND book_id = ?", userID, bookID).Count(&count).Error
	return count, err
}
