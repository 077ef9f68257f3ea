package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gofrs/flock"

	"github.com/talentsift/catalog-pipeline/internal/enrich"
)

// Store holds the in-memory record table backed by a CSV snapshot.
//
// Persist is the only durable mutation; every other method touches the
// in-memory table only. A single logical actor owns the store at a time, so
// no internal locking is needed; a file lock guards against a second process
// writing the same snapshot path.
type Store struct {
	path    string
	records []Record
	lock    *flock.Flock
}

// Open loads the snapshot at path. A missing snapshot is a fatal condition
// for the caller: every run must start from a concrete table.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog snapshot: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot %s: %w", path, err)
	}
	return New(path, records), nil
}

// New builds a store around an already-loaded record table. Persist writes
// to path.
func New(path string, records []Record) *Store {
	return &Store{
		path:    path,
		records: records,
		lock:    flock.New(path + ".lock"),
	}
}

// Path returns the snapshot path.
func (s *Store) Path() string { return s.path }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Record returns a copy of the record at index i.
func (s *Store) Record(i int) Record { return s.records[i] }

// Records returns a copy of the full table in original order.
func (s *Store) Records() []Record { return slices.Clone(s.records) }

// PendingIndices returns the indices of all records whose required
// enrichment fields are not yet populated, in original table order.
func (s *Store) PendingIndices() []int {
	var pending []int
	for i, r := range s.records {
		if !r.Enriched() {
			pending = append(pending, i)
		}
	}
	return pending
}

// Item returns the raw request payload for the record at index i.
func (s *Store) Item(i int) enrich.Item { return s.records[i].Item() }

// ApplyEnrichment validates metadata and sets every enrichment field of the
// record at index i together. It never writes a subset of the fields.
func (s *Store) ApplyEnrichment(i int, m enrich.Metadata) error {
	if i < 0 || i >= len(s.records) {
		return fmt.Errorf("apply enrichment: index %d out of range (%d records)", i, len(s.records))
	}
	if m.AssessmentCategory != "" && !slices.Contains(enrich.Categories, m.AssessmentCategory) {
		return fmt.Errorf("apply enrichment: category %q outside vocabulary", m.AssessmentCategory)
	}
	s.records[i].applyMetadata(m)
	return nil
}

// Ensure appends a blank record for name/url unless a record with that name
// already exists. Existing records keep their position so table order is
// stable across resumed runs. It reports whether a record was added.
func (s *Store) Ensure(name, url string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, r := range s.records {
		if strings.EqualFold(strings.TrimSpace(r.Name), name) {
			return false
		}
	}
	s.records = append(s.records, Record{Name: name, URL: strings.TrimSpace(url)})
	return true
}

// SetDescription sets the raw description of the record at index i.
func (s *Store) SetDescription(i int, desc string) {
	s.records[i].Description = strings.TrimSpace(desc)
}

// SetDetailFields sets the raw detail columns of the record at index i,
// leaving any field whose new value is blank untouched.
func (s *Store) SetDetailFields(i int, testType, durationText, adaptive, remote string) {
	r := &s.records[i]
	if v := strings.TrimSpace(testType); v != "" {
		r.TestType = v
	}
	if v := strings.TrimSpace(durationText); v != "" {
		r.DurationText = v
	}
	if v := strings.TrimSpace(adaptive); v != "" {
		r.AdaptiveSupport = v
	}
	if v := strings.TrimSpace(remote); v != "" {
		r.RemoteSupport = v
	}
}

// Persist serializes the full table, atomically replacing the snapshot at
// the store's path. The snapshot on disk is always a complete, consistent
// table: the write goes to a temp file in the same directory which is then
// renamed over the target.
func (s *Store) Persist() error {
	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock snapshot: %w", err)
	}
	if !locked {
		return fmt.Errorf("snapshot %s is locked by another writer", s.path)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.csv")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := WriteCSV(tmp, s.records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
