package store

import (
	"strconv"
	"sync"
)

// MemoryStore is the pure in-memory DataStore. A single mutex per instance
// serializes all operations, including the read-modify-write inside Update
// and Delete.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]Record
	nextIDs     map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Record),
		nextIDs:     make(map[string]int),
	}
}

func (s *MemoryStore) GetAll(collection string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAllLocked(collection)
}

func (s *MemoryStore) getAllLocked(collection string) []Record {
	items := s.collections[collection]
	out := make([]Record, len(items))
	for i, rec := range items {
		out[i] = cloneRecord(rec)
	}
	return out
}

func (s *MemoryStore) Query(collection string, opts QueryOptions) QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := applyFilters(s.collections[collection], opts.Filters)
	total := len(filtered)

	sortRecords(filtered, opts.SortBy, opts.SortDescending)
	page := paginate(filtered, opts.Skip, opts.Take)

	items := make([]Record, len(page))
	for i, rec := range page {
		items[i] = cloneRecord(rec)
	}
	return QueryResult{Items: items, TotalCount: total}
}

func (s *MemoryStore) GetByID(collection, id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOfLocked(collection, id); idx >= 0 {
		return cloneRecord(s.collections[collection][idx]), true
	}
	return nil, false
}

func (s *MemoryStore) Create(collection string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(collection, rec), nil
}

// createLocked implements the id-assignment rule: absent or null ids get
// the next counter value; caller-supplied integer ids at or past the
// counter push it to id+1 so later auto-assigned ids cannot collide.
func (s *MemoryStore) createLocked(collection string, rec Record) Record {
	stored := cloneRecord(rec)

	if id, ok := stored["id"]; !ok || id == nil {
		stored["id"] = int64(s.takeNextIDLocked(collection))
	} else if n, err := strconv.Atoi(Stringify(id)); err == nil {
		if _, ok := s.nextIDs[collection]; !ok {
			s.nextIDs[collection] = 1
		}
		if n >= s.nextIDs[collection] {
			s.nextIDs[collection] = n + 1
		}
	}

	s.collections[collection] = append(s.collections[collection], stored)
	return cloneRecord(stored)
}

func (s *MemoryStore) Update(collection, id string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(collection, id, rec)
}

func (s *MemoryStore) updateLocked(collection, id string, rec Record) (Record, error) {
	idx := s.indexOfLocked(collection, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	stored := cloneRecord(rec)
	// The stored id always wins over whatever the replacement carries.
	stored["id"] = s.collections[collection][idx]["id"]
	s.collections[collection][idx] = stored
	return cloneRecord(stored), nil
}

func (s *MemoryStore) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(collection, id)
}

func (s *MemoryStore) deleteLocked(collection, id string) error {
	idx := s.indexOfLocked(collection, id)
	if idx < 0 {
		return ErrNotFound
	}
	items := s.collections[collection]
	s.collections[collection] = append(items[:idx], items[idx+1:]...)
	return nil
}

func (s *MemoryStore) Seed(collection string, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(collection, recs)
	return nil
}

func (s *MemoryStore) seedLocked(collection string, recs []Record) {
	for _, rec := range recs {
		s.createLocked(collection, rec)
	}
}

// NextID reports the id the next auto-assigned create would use, and
// advances the counter.
func (s *MemoryStore) NextID(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeNextIDLocked(collection)
}

func (s *MemoryStore) takeNextIDLocked(collection string) int {
	next, ok := s.nextIDs[collection]
	if !ok {
		next = 1
	}
	s.nextIDs[collection] = next + 1
	return next
}

// indexOfLocked finds a record by the string form of its id, -1 if absent.
func (s *MemoryStore) indexOfLocked(collection, id string) int {
	for i, rec := range s.collections[collection] {
		if stored, ok := rec["id"]; ok && Stringify(stored) == id {
			return i
		}
	}
	return -1
}
