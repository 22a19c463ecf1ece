package entities

import (
	"time"

	"gorm.io/gorm"
)

// Shelf identifiers every user starts with. Custom shelves may be
// created on top of these.
const (
	ShelfToRead  = "to-read"
	ShelfReading = "reading"
	ShelfRead    = "read"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Book is the canonical book identity rows resolve to. Books are
// platform-wide, not per user; the catalog connector is the source of
// truth and this table caches what it returned.
type Book struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"index;size:512" json:"title"`
	Author     string    `gorm:"index;size:256" json:"author"`
	ISBN13     string    `gorm:"index;size:20" json:"isbn13,omitempty"`
	CatalogKey string    `gorm:"size:256" json:"catalog_key,omitempty"` // identifier in the remote catalog
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Shelf struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index:idx_shelf_user_identifier,unique" json:"user_id"`
	Identifier string    `gorm:"index:idx_shelf_user_identifier,unique;size:100" json:"identifier"`
	Name       string    `gorm:"size:100" json:"name"`
	Editable   bool      `gorm:"default:true" json:"editable"` // false for the built-in shelves
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShelfBook places a book on one of a user's shelves. The unique
// (user_id, book_id) index enforces at most one shelving per user and
// book, which is what makes "first shelving wins" safe under
// concurrent imports.
type ShelfBook struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShelfID     uint      `gorm:"index" json:"shelf_id"`
	UserID      uint      `gorm:"uniqueIndex:idx_shelfbook_user_book" json:"user_id"`
	BookID      uint      `gorm:"uniqueIndex:idx_shelfbook_user_book" json:"book_id"`
	ShelvedDate time.Time `json:"shelved_date"`
	Shelf       Shelf     `gorm:"foreignKey:ShelfID" json:"shelf,omitempty"`
	Book        Book      `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review is a prose review with an optional star rating.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Rating    float64   `json:"rating,omitempty"`
	Privacy   Privacy   `gorm:"size:20;default:'public'" json:"privacy"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewRating is a rating-only review, no prose.
type ReviewRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	Rating    float64   `json:"rating"`
	Privacy   Privacy   `gorm:"size:20;default:'public'" json:"privacy"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Shelf) TableName() string {
	return "shelves"
}

func (ShelfBook) TableName() string {
	return "shelf_books"
}

func (Review) TableName() string {
	return "reviews"
}

func (ReviewRating) TableName() string {
	return "review_ratings"
}
