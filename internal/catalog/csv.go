package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header returns the stable snapshot column ordering.
func Header() []string {
	return []string{
		"name",
		"description",
		"test_type",
		"duration_text",
		"duration_minutes",
		"adaptive_support",
		"remote_support",
		"url",
		"skills_covered",
		"skill_domains",
		"assessment_category",
		"job_roles",
		"seniority_levels",
		"assessment_focus",
		"keywords",
	}
}

// WriteCSV writes records with the stable Header() ordering.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{
			r.Name,
			r.Description,
			r.TestType,
			r.DurationText,
			r.DurationMinutes,
			r.AdaptiveSupport,
			r.RemoteSupport,
			r.URL,
			r.SkillsCovered,
			r.SkillDomains,
			r.AssessmentCategory,
			r.JobRoles,
			r.SeniorityLevels,
			r.AssessmentFocus,
			r.Keywords,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads records from a snapshot or seed CSV.
//
// Only the "name" column is required; any other column absent from the input
// (enrichment columns in a fresh seed, most commonly) is initialized blank for
// every record. Extra columns are ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "name")
	}

	var records []Record
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		records = append(records, Record{
			Name:            get("name"),
			Description:     get("description"),
			TestType:        get("test_type"),
			DurationText:    get("duration_text"),
			DurationMinutes: get("duration_minutes"),
			AdaptiveSupport: get("adaptive_support"),
			RemoteSupport:   get("remote_support"),
			URL:             get("url"),

			SkillsCovered:      get("skills_covered"),
			SkillDomains:       get("skill_domains"),
			AssessmentCategory: get("assessment_category"),
			JobRoles:           get("job_roles"),
			SeniorityLevels:    get("seniority_levels"),
			AssessmentFocus:    get("assessment_focus"),
			Keywords:           get("keywords"),
		})
	}
}
