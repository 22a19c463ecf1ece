package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Privacy string

const (
	PrivacyPublic    Privacy = "public"
	PrivacyUnlisted  Privacy = "unlisted"
	PrivacyFollowers Privacy = "followers"
	PrivacyPrivate   Privacy = "private"
)

// Canonical field keys every importer normalizes its source columns to.
// A key absent from the map means the source had no value for it.
const (
	FieldID        = "id"
	FieldTitle     = "title"
	FieldAuthor    = "author"
	FieldISBN13    = "isbn13"
	FieldRating    = "rating"
	FieldReview    = "review"
	FieldShelf     = "shelf"
	FieldDateAdded = "date_added"
	FieldDateRead  = "date_read"
)

// FieldMap is a normalized row, stored as a JSON text column.
type FieldMap map[string]string

func (m FieldMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal field map: %w", err)
	}
	return string(data), nil
}

func (m *FieldMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported field map type %T", value)
	}
	return json.Unmarshal(data, m)
}

// ImportJob is one user-initiated bulk import run. Immutable after
// creation except for TaskID, which records the async dispatch handle.
type ImportJob struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"index" json:"user_id"`
	Source         string       `gorm:"size:50" json:"source"` // importer service name, e.g. "goodreads"
	IncludeReviews bool         `json:"include_reviews"`
	Privacy        Privacy      `gorm:"size:20;default:'public'" json:"privacy"`
	TaskID         string       `gorm:"size:64" json:"task_id,omitempty"`
	User           User         `gorm:"foreignKey:UserID" json:"-"`
	Items          []ImportItem `gorm:"foreignKey:JobID" json:"items,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ImportItem is one normalized source row and its processing state.
// Written once at job creation and once more by resolution; read-only
// afterwards.
type ImportItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      uint      `gorm:"index:idx_item_job_index,unique" json:"job_id"`
	Index      int       `gorm:"column:item_index;index:idx_item_job_index,unique" json:"index"`
	Data       FieldMap  `gorm:"type:text" json:"data"`
	BookID     *uint     `gorm:"index" json:"book_id,omitempty"`
	FailReason string    `gorm:"size:512" json:"fail_reason,omitempty"`
	Job        ImportJob `gorm:"foreignKey:JobID" json:"-"`
	Book       *Book     `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}

func (ImportItem) TableName() string {
	return "import_items"
}

func (i *ImportItem) Failed() bool {
	return i.FailReason != ""
}

func (i *ImportItem) Title() string {
	return i.Data[FieldTitle]
}

func (i *ImportItem) Author() string {
	return i.Data[FieldAuthor]
}

func (i *ImportItem) ISBN13() string {
	return i.Data[FieldISBN13]
}

func (i *ImportItem) ReviewText() string {
	return strings.TrimSpace(i.Data[FieldReview])
}

// Rating returns the source star rating. A missing, empty or zero
// rating reports ok=false.
func (i *ImportItem) Rating() (float64, bool) {
	raw, present := i.Data[FieldRating]
	if !present || raw == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(raw, 64)
	if err != nil || rating == 0 {
		return 0, false
	}
	return rating, true
}

// sourceShelves maps the shelf vocabulary used by the supported
// sources to the built-in shelf identifiers.
var sourceShelves = map[string]string{
	"read":              ShelfRead,
	"currently-reading": ShelfReading,
	"reading":           ShelfReading,
	"to-read":           ShelfToRead,
}

// ShelfIdentifier maps the item's source shelf to one of the user's
// shelves. An unrecognized shelf name passes through unchanged and is
// treated as a custom shelf. Empty means the row carried no shelf.
func (i *ImportItem) ShelfIdentifier() string {
	raw := strings.TrimSpace(i.Data[FieldShelf])
	if raw == "" {
		return ""
	}
	if identifier, ok := sourceShelves[strings.ToLower(raw)]; ok {
		return identifier
	}
	return raw
}

// ShelvedDate is the date to record on a new shelving: the finished
// date when the source has one, otherwise the date the row was added
// to the source shelf. Zero when the source carried neither.
func (i *ImportItem) ShelvedDate() time.Time {
	if read, ok := parseSourceDate(i.Data[FieldDateRead]); ok {
		return read
	}
	if added, ok := parseSourceDate(i.Data[FieldDateAdded]); ok {
		return added
	}
	return time.Time{}
}

// sourceDateFormats covers the date layouts seen in Goodreads,
// LibraryThing and StoryGraph exports.
var sourceDateFormats = []string{
	"2006/01/02",
	"2006-01-02",
	"Jan 02, 2006",
	"01/02/2006",
	time.RFC3339,
}

func parseSourceDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, format := range sourceDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
