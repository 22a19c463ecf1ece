// Package reviews provides database operations for reviews and
// rating-only reviews.
package reviews

import (
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/entities"
)

// Repository handles review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateReview creates a prose review, optionally with a rating.
func (r *Repository) CreateReview(userID, bookID uint, content string, rating float64, privacy entities.Privacy) (*entities.Review, error) {
	review := &entities.Review{
		UserID:  userID,
		BookID:  bookID,
		Content: content,
		Rating:  rating,
		Privacy: privacy,
	}
	if err := r.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// CreateRating creates a rating-only review.
func (r *Repository) CreateRating(userID, bookID uint, rating float64, privacy entities.Privacy) (*entities.ReviewRating, error) {
	reviewRating := &entities.ReviewRating{
		UserID:  userID,
		BookID:  bookID,
		Rating:  rating,
		Privacy: privacy,
	}
	if err := r.db.Create(reviewRating).Error; err != nil {
		return nil, err
	}
	return reviewRating, nil
}

// HasReview reports whether the user already has a review or a
// rating-only review for the book. Imports use this to keep replays
// from creating a second record.
func (r *Repository) HasReview(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Review{}).Where("user_id = ? AND book_id = ?", userID, bookID).Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.Model(&entities.ReviewRating{}).Where("user_id = ? AND book_id = ?", userID, bookID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetReview retrieves a user's review for a book.
func (r *Repository) GetReview(userID, bookID uint) (*entities.Review, error) {
	var review entities.Review
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetRating retrieves a user's rating-only review for a book.
func (r *Repository) GetRating(userID, bookID uint) (*entities.ReviewRating, error) {
	var rating entities.ReviewRating
	err := r.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}
