// Package enrich defines the enrichment contract and response coercion.
package enrich

import "context"

// Item is one record's raw text as sent to the enrichment service,
// in batch order.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Metadata is the canonical enrichment shape for a single record.
//
// List fields may be nil; consumers serialize nil and empty the same way.
type Metadata struct {
	SkillsCovered      []string
	SkillDomains       []string
	AssessmentCategory string
	JobRoles           []string
	SeniorityLevels    []string
	AssessmentFocus    string
	Keywords           []string
}

// Enricher enriches one batch of records in a single request.
//
// Implementations return an error for the whole batch on transport failures,
// unparseable responses, or an item-count mismatch. They never return a
// partially usable result alongside an error.
type Enricher interface {
	EnrichBatch(ctx context.Context, items []Item) ([]Metadata, error)
}

// Categories is the fixed vocabulary for Metadata.AssessmentCategory.
var Categories = []string{"Technical", "Behavioral", "Cognitive", "Mixed"}

// TransientError marks an error as retryable by callers that retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
