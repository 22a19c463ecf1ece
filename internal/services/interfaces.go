package services

import "context"

// SoftwareName is the metadata stamped on every outbound broadcast.
const SoftwareName = "openshelf"

// CatalogBook is a book identity returned by the catalog connector.
type CatalogBook struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	ISBN13     string `json:"isbn13,omitempty"`
	CatalogKey string `json:"catalog_key,omitempty"`
}

// Catalog is the book-catalog collaborator. Lookups either return a
// canonical book identity or ErrBookNotFound; any other error is an
// external lookup failure.
//
// Implemented by catalog.Client.
type Catalog interface {
	// ResolveByISBN looks a book up by its ISBN-13.
	ResolveByISBN(ctx context.Context, isbn string) (*CatalogBook, error)
	// SearchOrCreate searches the catalog by title and author, letting
	// the catalog create the entry when it has none.
	SearchOrCreate(ctx context.Context, title, author string) (*CatalogBook, error)
}

// Dispatcher is the async task-execution collaborator. Dispatching is
// fire-and-forget; only the returned handle id is kept.
//
// Implemented by tasks.Client.
type Dispatcher interface {
	// DispatchImport submits processing of a whole job.
	DispatchImport(jobID uint) (string, error)
	// DispatchItem submits processing of a single item.
	DispatchItem(itemID uint) (string, error)
}

// Event is an outbound broadcast of a created record.
type Event struct {
	Software string `json:"software"`
	Type     string `json:"type"`
	Record   any    `json:"record"`
}

// Broadcaster delivers created reviews and ratings to the federation
// collaborator. Invoked once per created record; delivery failures are
// logged, never surfaced to the import.
//
// Implemented by broadcast.HTTPBroadcaster and broadcast.Noop.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}
