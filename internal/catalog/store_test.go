package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
	"github.com/talentsift/catalog-pipeline/internal/enrich"
)

func writeSnapshot(t *testing.T, records []catalog.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	store := catalog.New(path, records)
	if err := store.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	return path
}

func TestOpenMissingSnapshotFails(t *testing.T) {
	_, err := catalog.Open(filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing snapshot")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestPendingIndicesPreserveOrder(t *testing.T) {
	store := catalog.New("unused.csv", []catalog.Record{
		{Name: "A"},
		{Name: "B", SkillsCovered: `["x"]`, AssessmentCategory: "Technical"},
		{Name: "C"},
		{Name: "D", SkillsCovered: `["y"]`, AssessmentCategory: "Mixed"},
		{Name: "E"},
	})
	got := store.PendingIndices()
	if !slices.Equal(got, []int{0, 2, 4}) {
		t.Fatalf("unexpected pending indices: %v", got)
	}
}

func TestApplyEnrichmentWritesAllFieldsTogether(t *testing.T) {
	store := catalog.New("unused.csv", []catalog.Record{{Name: "A", Description: "raw"}})
	err := store.ApplyEnrichment(0, enrich.Metadata{
		SkillsCovered:      []string{"Go"},
		AssessmentCategory: "Technical",
		AssessmentFocus:    "Practical coding.",
	})
	if err != nil {
		t.Fatalf("ApplyEnrichment: %v", err)
	}
	r := store.Record(0)
	if r.SkillsCovered != `["Go"]` || r.AssessmentCategory != "Technical" {
		t.Fatalf("required fields not set: %+v", r)
	}
	if r.SkillDomains != "[]" || r.JobRoles != "[]" || r.SeniorityLevels != "[]" || r.Keywords != "[]" {
		t.Fatalf("empty lists should encode as []: %+v", r)
	}
	if r.Name != "A" || r.Description != "raw" {
		t.Fatalf("raw columns must not change: %+v", r)
	}
	if !r.Enriched() {
		t.Fatal("record should no longer be pending")
	}
}

func TestApplyEnrichmentRejectsBadInput(t *testing.T) {
	store := catalog.New("unused.csv", []catalog.Record{{Name: "A"}})

	if err := store.ApplyEnrichment(3, enrich.Metadata{}); err == nil {
		t.Fatal("expected index error")
	}
	err := store.ApplyEnrichment(0, enrich.Metadata{AssessmentCategory: "Philosophical"})
	if err == nil {
		t.Fatal("expected vocabulary error")
	}
	if !strings.Contains(err.Error(), "Philosophical") {
		t.Fatalf("error should name the bad category: %v", err)
	}
	if store.Record(0).Enriched() {
		t.Fatal("rejected apply must not mutate the record")
	}
}

func TestPersistAndReopenResumesWhereItLeftOff(t *testing.T) {
	path := writeSnapshot(t, []catalog.Record{
		{Name: "A", Description: "a"},
		{Name: "B", Description: "b"},
		{Name: "C", Description: "c"},
	})

	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.ApplyEnrichment(1, enrich.Metadata{
		SkillsCovered:      []string{"Leadership"},
		AssessmentCategory: "Behavioral",
	}); err != nil {
		t.Fatalf("ApplyEnrichment: %v", err)
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.PendingIndices(); !slices.Equal(got, []int{0, 2}) {
		t.Fatalf("resume should skip the enriched record, pending %v", got)
	}
	if r := reopened.Record(1); r.AssessmentCategory != "Behavioral" {
		t.Fatalf("applied fields lost across persist: %+v", r)
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	path := writeSnapshot(t, []catalog.Record{{Name: "A"}})
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".catalog-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestEnsureSkipsExistingNames(t *testing.T) {
	store := catalog.New("unused.csv", []catalog.Record{
		{Name: "Numerical Reasoning", URL: "https://catalog.example/numerical"},
	})

	if added := store.Ensure("numerical reasoning", "https://catalog.example/other"); added {
		t.Fatal("case-insensitive duplicate should not be added")
	}
	if !store.Ensure("Verbal Reasoning", "https://catalog.example/verbal") {
		t.Fatal("new name should be added")
	}
	if store.Len() != 2 {
		t.Fatalf("got %d records, want 2", store.Len())
	}
	if r := store.Record(0); r.URL != "https://catalog.example/numerical" {
		t.Fatalf("existing record must keep its fields: %+v", r)
	}
	if r := store.Record(1); r.Name != "Verbal Reasoning" {
		t.Fatalf("new record appended out of order: %+v", r)
	}
}
