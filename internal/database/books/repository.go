// Package books provides database operations for the local book
// catalog cache.
package books

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByISBN retrieves a book by ISBN-13. Returns nil without error
// when no book matches.
func (r *Repository) FindByISBN(isbn13 string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn13 = ?", isbn13).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByTitleAuthor retrieves a book by exact title and author,
// case-insensitively. Returns nil without error when no book matches.
func (r *Repository) FindByTitleAuthor(title, author string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("LOWER(title) = ? AND LOWER(author) = ?",
		strings.ToLower(title), strings.ToLower(author)).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Create persists a new book.
func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

// GetByID retrieves a book by ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}
