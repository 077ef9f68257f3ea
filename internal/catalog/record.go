// Package catalog owns the persisted assessment table and its snapshot.
package catalog

import (
	"strings"

	"github.com/talentsift/catalog-pipeline/internal/enrich"
)

// Record is one assessment row. Raw columns are owned by the upstream
// scraping/cleaning steps; enrichment columns are owned by the enrichment
// pipeline and are written together or not at all.
type Record struct {
	Name            string
	Description     string
	TestType        string
	DurationText    string
	DurationMinutes string
	AdaptiveSupport string
	RemoteSupport   string
	URL             string

	SkillsCovered      string
	SkillDomains       string
	AssessmentCategory string
	JobRoles           string
	SeniorityLevels    string
	AssessmentFocus    string
	Keywords           string
}

// Enriched reports whether the record's required enrichment fields are all
// populated. List fields serialize as "[]" when empty, so skills_covered is
// non-blank on any successfully applied record; assessment_category may be
// blanked by vocabulary coercion, which keeps the record pending.
func (r Record) Enriched() bool {
	return strings.TrimSpace(r.SkillsCovered) != "" &&
		strings.TrimSpace(r.AssessmentCategory) != ""
}

// Item returns the record's raw text in the shape the enrichment request
// carries.
func (r Record) Item() enrich.Item {
	return enrich.Item{Name: r.Name, Description: r.Description}
}

func (r *Record) applyMetadata(m enrich.Metadata) {
	r.SkillsCovered = enrich.EncodeList(m.SkillsCovered)
	r.SkillDomains = enrich.EncodeList(m.SkillDomains)
	r.AssessmentCategory = m.AssessmentCategory
	r.JobRoles = enrich.EncodeList(m.JobRoles)
	r.SeniorityLevels = enrich.EncodeList(m.SeniorityLevels)
	r.AssessmentFocus = m.AssessmentFocus
	r.Keywords = enrich.EncodeList(m.Keywords)
}
