package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openshelf/openshelf/internal/entities"
)

// applyItem applies the side effects of a resolved item: shelving and,
// when the job imports reviews, rating/review creation. Replaying an
// item is a no-op beyond the first application: an existing shelving
// wins regardless of shelf, and at most one review or rating exists
// per user and book.
func (s *ImportService) applyItem(ctx context.Context, userID uint, item *entities.ImportItem, book *entities.Book, includeReviews bool, privacy entities.Privacy) error {
	if err := s.applyShelving(userID, item, book); err != nil {
		return err
	}

	if !includeReviews {
		return nil
	}
	return s.applyReview(ctx, userID, item, book, privacy)
}

func (s *ImportService) applyShelving(userID uint, item *entities.ImportItem, book *entities.Book) error {
	identifier := item.ShelfIdentifier()
	if identifier == "" {
		return nil
	}

	shelf, err := s.shelves.GetOrCreateShelf(userID, identifier)
	if err != nil {
		return fmt.Errorf("failed to load shelf %s: %w", identifier, err)
	}

	shelvedDate := item.ShelvedDate()
	if shelvedDate.IsZero() {
		shelvedDate = time.Now().UTC()
	}

	_, created, err := s.shelves.ShelveBook(userID, shelf.ID, book.ID, shelvedDate)
	if err != nil {
		return fmt.Errorf("failed to shelve book %d: %w", book.ID, err)
	}
	if created {
		log.Printf("[IMPORT] Item %d: shelved book %d on %s", item.ID, book.ID, identifier)
	}
	return nil
}

func (s *ImportService) applyReview(ctx context.Context, userID uint, item *entities.ImportItem, book *entities.Book, privacy entities.Privacy) error {
	exists, err := s.reviews.HasReview(userID, book.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil
	}

	content := item.ReviewText()
	rating, hasRating := item.Rating()

	switch {
	case content != "":
		review, err := s.reviews.CreateReview(userID, book.ID, content, rating, privacy)
		if err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		s.broadcast(ctx, Event{Software: SoftwareName, Type: "Review", Record: review})

	case hasRating:
		reviewRating, err := s.reviews.CreateRating(userID, book.ID, rating, privacy)
		if err != nil {
			return fmt.Errorf("failed to create rating: %w", err)
		}
		s.broadcast(ctx, Event{Software: SoftwareName, Type: "Rating", Record: reviewRating})
	}

	return nil
}

// broadcast delivers an event best-effort. The collaborator owns
// retries; a delivery failure never fails the item.
func (s *ImportService) broadcast(ctx context.Context, event Event) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, event); err != nil {
		log.Printf("[IMPORT] Broadcast of %s failed: %v", event.Type, err)
	}
}
