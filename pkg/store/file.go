package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is the file-backed DataStore. It composes a MemoryStore as its
// read cache and rewrites the affected collection file synchronously on
// every successful mutation, while still holding the store lock so
// concurrent mutations cannot interleave their disk writes.
//
// A failed disk write surfaces as an error; the in-memory mutation is not
// rolled back.
type FileStore struct {
	dir string
	mem *MemoryStore
	log *slog.Logger
}

// NewFileStore creates the data directory if needed and loads every
// persisted collection file (filename stem = collection name) into the
// cache. A malformed file is treated as an empty collection.
func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	fs := &FileStore{dir: dir, mem: NewMemoryStore(), log: log}
	if err := fs.loadAll(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		collection := strings.TrimSuffix(entry.Name(), ".json")
		s.loadCollection(collection)
	}
	return nil
}

func (s *FileStore) loadCollection(collection string) {
	data, err := os.ReadFile(s.filePath(collection))
	if err != nil {
		s.log.Warn("failed to read collection file", "collection", collection, "error", err)
		return
	}

	recs, err := decodeRecords(data)
	if err != nil {
		// Malformed persisted state starts the collection fresh.
		s.log.Warn("ignoring malformed collection file", "collection", collection, "error", err)
		return
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	s.mem.seedLocked(collection, recs)
}

func decodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []Record
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	recs := make([]Record, len(raw))
	for i, rec := range raw {
		recs[i] = NormalizeRecord(rec)
	}
	return recs, nil
}

func (s *FileStore) filePath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// saveLocked rewrites the full collection file. Callers hold the store lock.
func (s *FileStore) saveLocked(collection string) error {
	items := s.mem.getAllLocked(collection)

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}
	if err := os.WriteFile(s.filePath(collection), data, 0o644); err != nil {
		return fmt.Errorf("failed to persist collection %s: %w", collection, err)
	}
	return nil
}

func (s *FileStore) GetAll(collection string) []Record {
	return s.mem.GetAll(collection)
}

func (s *FileStore) Query(collection string, opts QueryOptions) QueryResult {
	return s.mem.Query(collection, opts)
}

func (s *FileStore) GetByID(collection, id string) (Record, bool) {
	return s.mem.GetByID(collection, id)
}

func (s *FileStore) Create(collection string, rec Record) (Record, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	created := s.mem.createLocked(collection, rec)
	if err := s.saveLocked(collection); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FileStore) Update(collection, id string, rec Record) (Record, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	updated, err := s.mem.updateLocked(collection, id, rec)
	if err != nil {
		return nil, err
	}
	if err := s.saveLocked(collection); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *FileStore) Delete(collection, id string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if err := s.mem.deleteLocked(collection, id); err != nil {
		return err
	}
	return s.saveLocked(collection)
}

func (s *FileStore) Seed(collection string, recs []Record) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	s.mem.seedLocked(collection, recs)
	return s.saveLocked(collection)
}

// NextID reports and advances the id counter, mirroring MemoryStore.
func (s *FileStore) NextID(collection string) int {
	return s.mem.NextID(collection)
}

// LoadSeedFile ingests one file containing multiple named collections,
// { "<collection>": [records...], ... }, seeding each through the normal
// id-assignment rule.
func LoadSeedFile(ds DataStore, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed file not found: %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var collections map[string][]Record
	if err := dec.Decode(&collections); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for collection, recs := range collections {
		normalized := make([]Record, len(recs))
		for i, rec := range recs {
			normalized[i] = NormalizeRecord(rec)
		}
		if err := ds.Seed(collection, normalized); err != nil {
			return fmt.Errorf("failed to seed collection %s: %w", collection, err)
		}
	}
	return nil
}
