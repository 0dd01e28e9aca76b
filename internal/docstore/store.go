package docstore

import (
	"context"
	"errors"
)

// Collections mirrored into the document store. Names match the mobile
// client's existing schema.
const (
	CollectionReports   = "signalements"
	CollectionUsers     = "utilisateurs"
	CollectionCompanies = "entreprises"
	CollectionAttempts  = "tentatives_connexion"
)

// MetadataID is a reserved per-collection document id that readers must
// never treat as real data.
const MetadataID = "_metadata"

var (
	// ErrNotFound means the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable means the document store could not be reached.
	ErrUnavailable = errors.New("document store unavailable")
)

// Document is a flat, loosely-typed document.
type Document map[string]any

// Store is the document store capability: per-collection key-value access
// with full-document replacement on write.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Delete(ctx context.Context, collection, id string) error

	// Add stores a document under a generated id (append-only
	// collections such as login attempts).
	Add(ctx context.Context, collection string, doc Document) (string, error)

	// List returns every document in the collection keyed by id,
	// excluding the reserved metadata document.
	List(ctx context.Context, collection string) (map[string]Document, error)

	// FindByField returns ids of documents whose field equals value.
	FindByField(ctx context.Context, collection, field string, value any) ([]string, error)
}
