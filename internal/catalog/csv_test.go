package catalog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
)

func TestWriteReadRoundTrip(t *testing.T) {
	records := []catalog.Record{
		{
			Name:               "Coding Simulation",
			Description:        "Hands-on coding tasks",
			TestType:           "Simulation",
			DurationText:       "45 minutes",
			DurationMinutes:    "45",
			AdaptiveSupport:    "No",
			RemoteSupport:      "Yes",
			URL:                "https://catalog.example/coding-simulation",
			SkillsCovered:      `["Go","SQL"]`,
			SkillDomains:       `["Software Engineering"]`,
			AssessmentCategory: "Technical",
			JobRoles:           `["Backend Engineer"]`,
			SeniorityLevels:    `["Mid","Senior"]`,
			AssessmentFocus:    "Evaluates practical coding ability.",
			Keywords:           `["coding","simulation"]`,
		},
		{Name: "Untouched", Description: "still raw"},
	}

	var buf bytes.Buffer
	if err := catalog.WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	got, err := catalog.ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if got[i] != records[i] {
			t.Fatalf("record %d changed across round trip:\n got  %+v\n want %+v", i, got[i], records[i])
		}
	}
}

func TestReadSeedWithoutEnrichmentColumns(t *testing.T) {
	seed := strings.Join([]string{
		"name,description,url",
		"Numerical Reasoning,Number series and tables,https://catalog.example/numerical",
		"Situational Judgement,,https://catalog.example/sjt",
	}, "\n")

	got, err := catalog.ReadCSV(strings.NewReader(seed))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Name != "Numerical Reasoning" || got[0].URL != "https://catalog.example/numerical" {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	for i, r := range got {
		if r.SkillsCovered != "" || r.AssessmentCategory != "" || r.Keywords != "" {
			t.Fatalf("record %d: enrichment columns should be blank in a seed: %+v", i, r)
		}
		if r.Enriched() {
			t.Fatalf("record %d should be pending", i)
		}
	}
}

func TestReadIgnoresExtraAndReorderedColumns(t *testing.T) {
	in := strings.Join([]string{
		"legacy_id,URL,Name,assessment_category,skills_covered",
		"17,https://catalog.example/x,Leadership Panel,Behavioral,\"[\"\"Leadership\"\"]\"",
	}, "\n")

	got, err := catalog.ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.Name != "Leadership Panel" || r.URL != "https://catalog.example/x" {
		t.Fatalf("columns not matched by header name: %+v", r)
	}
	if r.AssessmentCategory != "Behavioral" || r.SkillsCovered != `["Leadership"]` {
		t.Fatalf("enrichment columns not read: %+v", r)
	}
	if !r.Enriched() {
		t.Fatal("record with both required fields should not be pending")
	}
}

func TestReadRequiresNameColumn(t *testing.T) {
	_, err := catalog.ReadCSV(strings.NewReader("description,url\nfoo,bar\n"))
	if err == nil {
		t.Fatal("expected error for missing name column")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Fatalf("error should name the missing column: %v", err)
	}
}
