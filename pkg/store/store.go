// Package store implements the generic per-collection record store backing
// the mock runtime: in-memory collections of untyped records addressable by
// id, with filtering, sorting, pagination, and an optional file-backed
// write-through variant.
package store

import "errors"

// ErrNotFound is returned when no record with the requested id exists.
var ErrNotFound = errors.New("record not found")

// Record is one dynamically-typed entity instance. Values use the canonical
// kinds produced by Normalize: string, int64, float64, bool, nil,
// []any and map[string]any.
type Record = map[string]any

// QueryOptions describes one collection query. Filters are ANDed
// case-insensitive substring matches on the string form of each field.
// Skip and Take are independently optional.
type QueryOptions struct {
	Filters        map[string]string
	SortBy         string
	SortDescending bool
	Skip           *int
	Take           *int
}

// QueryResult holds the page of matching records and the total match count
// before pagination.
type QueryResult struct {
	Items      []Record
	TotalCount int
}

// DataStore is the storage capability the route layer is built against.
// Implementations must make every operation atomic with respect to
// concurrent callers on the same instance.
type DataStore interface {
	// GetAll returns every record in the collection, in insertion order.
	// An absent collection yields an empty slice, not an error.
	GetAll(collection string) []Record

	// Query applies filters, sort and pagination.
	Query(collection string, opts QueryOptions) QueryResult

	// GetByID looks a record up by the string form of its id.
	GetByID(collection, id string) (Record, bool)

	// Create stores a record, assigning the next id when none is given.
	// A caller-supplied integer id advances the collection counter past it.
	Create(collection string, rec Record) (Record, error)

	// Update replaces the record with the given id, preserving the stored
	// id regardless of what the replacement contains. Returns ErrNotFound
	// when the id is absent.
	Update(collection, id string, rec Record) (Record, error)

	// Delete removes a record by id. Returns ErrNotFound when absent.
	Delete(collection, id string) error

	// Seed bulk-creates records through the normal id-assignment rule.
	Seed(collection string, recs []Record) error
}
