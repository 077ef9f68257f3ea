package enrich

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseBatch decodes a structured response body into exactly want metadata
// items. A body that is not a JSON array, or whose length differs from want,
// fails the whole batch; individual items are coerced and never fail.
func ParseBatch(data []byte, want int) ([]Metadata, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("parse response array: %w", err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("response has %d items, want %d", len(raw), want)
	}
	out := make([]Metadata, len(raw))
	for i, item := range raw {
		out[i] = Coerce(item)
	}
	return out, nil
}

// Coerce maps a single response item onto the canonical metadata shape.
// Absent or malformed fields default to their zero value; a category outside
// the fixed vocabulary becomes the empty string. Coerce never fails.
func Coerce(raw json.RawMessage) Metadata {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Metadata{}
	}
	return Metadata{
		SkillsCovered:      stringList(fields["skills_covered"]),
		SkillDomains:       stringList(fields["skill_domains"]),
		AssessmentCategory: canonicalCategory(stringField(fields["assessment_category"])),
		JobRoles:           stringList(fields["job_roles"]),
		SeniorityLevels:    stringList(fields["seniority_levels"]),
		AssessmentFocus:    stringField(fields["assessment_focus"]),
		Keywords:           stringList(fields["keywords"]),
	}
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var vals []string
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func canonicalCategory(s string) string {
	for _, c := range Categories {
		if strings.EqualFold(s, c) {
			return c
		}
	}
	return ""
}

// EncodeList serializes a list-valued metadata field for the catalog
// snapshot. Empty and nil both encode as "[]" so an enriched record is
// distinguishable from a never-enriched one.
func EncodeList(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	b, err := json.Marshal(vals)
	if err != nil {
		// Unreachable for []string; keep output stable.
		return "[]"
	}
	return string(b)
}
