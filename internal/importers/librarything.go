package importers

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/openshelf/openshelf/internal/entities"
)

// LibrarythingImporter normalizes LibraryThing TSV exports. These are
// tab-delimited and written in ISO-8859-1 rather than UTF-8.
type LibrarythingImporter struct{}

// NewLibrarythingImporter creates an importer for LibraryThing exports.
func NewLibrarythingImporter() *LibrarythingImporter {
	return &LibrarythingImporter{}
}

func (LibrarythingImporter) ServiceName() string {
	return "librarything"
}

func (LibrarythingImporter) Encoding() encoding.Encoding {
	return charmap.ISO8859_1
}

func (LibrarythingImporter) Delimiter() rune {
	return '\t'
}

func (LibrarythingImporter) MandatoryFields() []string {
	return []string{"Title", "Primary Author"}
}

// ParseFields implements Importer. LibraryThing has no shelf concept,
// so the shelf is derived from the dates: a read date means the book
// was finished, an entry date alone means it is still to be read.
func (LibrarythingImporter) ParseFields(row map[string]string) entities.FieldMap {
	fields := entities.FieldMap{
		entities.FieldTitle:  row["title"],
		entities.FieldAuthor: row["primary author"],
	}
	setIfPresent(fields, entities.FieldID, row["book id"])
	setIfPresent(fields, entities.FieldISBN13, strings.Trim(row["isbn"], "[]"))
	setIfPresent(fields, entities.FieldRating, row["rating"])
	setIfPresent(fields, entities.FieldReview, row["review"])

	dateAdded := strings.Trim(row["entry date"], "[]")
	dateRead := strings.Trim(row["date read"], "[]")
	setIfPresent(fields, entities.FieldDateAdded, dateAdded)
	setIfPresent(fields, entities.FieldDateRead, dateRead)

	if dateRead != "" {
		fields[entities.FieldShelf] = "read"
	} else if dateAdded != "" {
		fields[entities.FieldShelf] = "to-read"
	}
	return fields
}

var _ Importer = (*LibrarythingImporter)(nil)
