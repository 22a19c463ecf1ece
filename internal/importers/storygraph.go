package importers

import (
	"golang.org/x/text/encoding"

	"github.com/openshelf/openshelf/internal/entities"
)

// StorygraphImporter normalizes The StoryGraph CSV exports. StoryGraph
// allows fractional star ratings, which the canonical rating field
// carries through unchanged.
type StorygraphImporter struct{}

// NewStorygraphImporter creates an importer for StoryGraph exports.
func NewStorygraphImporter() *StorygraphImporter {
	return &StorygraphImporter{}
}

func (StorygraphImporter) ServiceName() string {
	return "storygraph"
}

func (StorygraphImporter) Encoding() encoding.Encoding {
	return nil // UTF-8
}

func (StorygraphImporter) Delimiter() rune {
	return 0 // comma
}

func (StorygraphImporter) MandatoryFields() []string {
	return []string{"Title", "Authors"}
}

// ParseFields implements Importer. StoryGraph's read status uses the
// same vocabulary the shelf mapping understands ("read",
// "currently-reading", "to-read").
func (StorygraphImporter) ParseFields(row map[string]string) entities.FieldMap {
	fields := entities.FieldMap{
		entities.FieldTitle:  row["title"],
		entities.FieldAuthor: row["authors"],
	}
	setIfPresent(fields, entities.FieldISBN13, row["isbn/uid"])
	setIfPresent(fields, entities.FieldRating, row["star rating"])
	setIfPresent(fields, entities.FieldReview, row["review"])
	setIfPresent(fields, entities.FieldShelf, row["read status"])
	setIfPresent(fields, entities.FieldDateAdded, row["date added"])
	setIfPresent(fields, entities.FieldDateRead, row["last date read"])
	return fields
}

var _ Importer = (*StorygraphImporter)(nil)
