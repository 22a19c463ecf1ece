// Package importers normalizes tabular exports from external
// book-cataloging services into the canonical field set used by import
// jobs.
//
// Each source implements the Importer interface, declaring its service
// name, file encoding, delimiter and the source columns a row must
// carry. ParseFields is pure: it maps one raw row to the canonical
// keys in entities (title, author, isbn13, rating, review, shelf,
// date_added, date_read) and performs no I/O.
//
// Implementations:
//   - GoodreadsImporter (goodreads.go) - Goodreads CSV export
//   - StorygraphImporter (storygraph.go) - The StoryGraph CSV export
//   - LibrarythingImporter (librarything.go) - LibraryThing TSV export
//
// Adding a new source:
//  1. Create a new file (e.g. calibre.go)
//  2. Implement the Importer interface
//  3. Add it to the registry in ByName
package importers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/openshelf/openshelf/internal/entities"
)

// Importer normalizes one external source format.
type Importer interface {
	// ServiceName identifies the source, e.g. "goodreads".
	ServiceName() string
	// Encoding is the character encoding of the source's export files.
	// nil means UTF-8.
	Encoding() encoding.Encoding
	// Delimiter is the field separator of the export. 0 means comma.
	Delimiter() rune
	// MandatoryFields lists source column names that must be present
	// and non-empty on every row.
	MandatoryFields() []string
	// ParseFields maps a raw row to the canonical field set. Pure.
	ParseFields(row map[string]string) entities.FieldMap
}

// ValidationError reports a malformed or incomplete source row. It
// blocks job creation: either the whole file is well-formed or no job
// is created.
type ValidationError struct {
	Line  int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: missing mandatory field %q", e.Line, e.Field)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ByName returns the importer registered under the given service name.
func ByName(name string) (Importer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "goodreads":
		return NewGoodreadsImporter(), nil
	case "storygraph":
		return NewStorygraphImporter(), nil
	case "librarything":
		return NewLibrarythingImporter(), nil
	default:
		return nil, fmt.Errorf("unknown import source: %s", name)
	}
}

// ParseCSV reads a source export through the importer's declared
// encoding and returns one normalized row per record, in file order.
// A row missing a mandatory field fails the whole parse with a
// *ValidationError.
func ParseCSV(r io.Reader, importer Importer) ([]entities.FieldMap, error) {
	if enc := importer.Encoding(); enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow ragged rows, column lookup goes through the header
	if d := importer.Delimiter(); d != 0 {
		reader.Comma = d
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerIndex := make(map[string]int, len(header))
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, field := range importer.MandatoryFields() {
		if _, ok := headerIndex[strings.ToLower(field)]; !ok {
			return nil, fmt.Errorf("missing required header: %s", field)
		}
	}

	var rows []entities.FieldMap
	lineNum := 1 // the header was line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Line: lineNum, Err: err}
		}

		row := make(map[string]string, len(headerIndex))
		for name, idx := range headerIndex {
			if idx < len(record) {
				row[name] = strings.TrimSpace(record[idx])
			}
		}

		for _, field := range importer.MandatoryFields() {
			if row[strings.ToLower(field)] == "" {
				return nil, &ValidationError{Line: lineNum, Field: field}
			}
		}

		rows = append(rows, importer.ParseFields(row))
	}

	return rows, nil
}

// setIfPresent copies a value into the field map only when non-empty,
// so absent source values stay absent rather than becoming "".
func setIfPresent(fields entities.FieldMap, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
