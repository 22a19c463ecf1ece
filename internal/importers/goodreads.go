package importers

import (
	"strings"

	"golang.org/x/text/encoding"

	"github.com/openshelf/openshelf/internal/entities"
)

// GoodreadsImporter normalizes Goodreads CSV library exports.
type GoodreadsImporter struct{}

// NewGoodreadsImporter creates an importer for Goodreads exports.
func NewGoodreadsImporter() *GoodreadsImporter {
	return &GoodreadsImporter{}
}

func (GoodreadsImporter) ServiceName() string {
	return "goodreads"
}

func (GoodreadsImporter) Encoding() encoding.Encoding {
	return nil // UTF-8
}

func (GoodreadsImporter) Delimiter() rune {
	return 0 // comma
}

func (GoodreadsImporter) MandatoryFields() []string {
	return []string{"Title", "Author"}
}

// ParseFields implements Importer. Goodreads shelf names
// ("read", "currently-reading", "to-read") are kept as-is; the shelf
// mapping happens when the item is applied.
func (GoodreadsImporter) ParseFields(row map[string]string) entities.FieldMap {
	fields := entities.FieldMap{
		entities.FieldTitle:  row["title"],
		entities.FieldAuthor: row["author"],
	}
	setIfPresent(fields, entities.FieldID, row["book id"])
	setIfPresent(fields, entities.FieldISBN13, unquoteGoodreadsValue(row["isbn13"]))
	setIfPresent(fields, entities.FieldRating, zeroToEmpty(row["my rating"]))
	setIfPresent(fields, entities.FieldReview, row["my review"])
	setIfPresent(fields, entities.FieldShelf, row["exclusive shelf"])
	setIfPresent(fields, entities.FieldDateAdded, row["date added"])
	setIfPresent(fields, entities.FieldDateRead, row["date read"])
	return fields
}

// unquoteGoodreadsValue strips the ="..." wrapper Goodreads puts
// around ISBNs to keep spreadsheets from eating leading zeros.
func unquoteGoodreadsValue(value string) string {
	value = strings.TrimPrefix(value, "=")
	return strings.Trim(value, `"`)
}

// zeroToEmpty drops Goodreads' "0" rating, which means unrated.
func zeroToEmpty(rating string) string {
	if rating == "0" {
		return ""
	}
	return rating
}

var _ Importer = (*GoodreadsImporter)(nil)
