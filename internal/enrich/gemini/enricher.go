// Package gemini implements batch enrichment against the Gemini API with
// structured JSON output.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/talentsift/catalog-pipeline/internal/enrich"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type Enricher struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Enricher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
	}, nil
}

var itemSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"skills_covered":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"skill_domains":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"assessment_category": {Type: genai.TypeString},
		"job_roles":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"seniority_levels":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"assessment_focus":    {Type: genai.TypeString},
		"keywords":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{
		"skills_covered",
		"skill_domains",
		"assessment_category",
		"job_roles",
		"seniority_levels",
		"assessment_focus",
		"keywords",
	},
}

var outputSchema = &genai.Schema{
	Type:  genai.TypeArray,
	Items: itemSchema,
}

// EnrichBatch sends one request for the whole batch and returns one metadata
// value per input item, in input order. A response whose item count does not
// match the request is rejected as a whole.
func (e *Enricher) EnrichBatch(ctx context.Context, items []enrich.Item) ([]enrich.Metadata, error) {
	if len(items) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(items)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Models.GenerateContent(
		ctx,
		e.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			CandidateCount:   1,
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
			ResponseSchema:   outputSchema,
		},
	)
	if err != nil {
		return nil, classifyErr(err)
	}

	out, err := enrich.ParseBatch([]byte(resp.Text()), len(items))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return out, nil
}

func buildPrompt(items []enrich.Item) (string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode batch payload: %w", err)
	}
	return strings.TrimSpace(`
You are a talent assessment analyst. For each assessment in the JSON array
below, derive structured metadata from its name and description.

Return ONLY a JSON array with exactly one object per input assessment, in the
same order. Each object has these keys:
- skills_covered (array of strings; specific skills the assessment measures)
- skill_domains (array of strings; broader domains the skills belong to)
- assessment_category (string; exactly one of: ` + strings.Join(enrich.Categories, ", ") + `)
- job_roles (array of strings; roles the assessment is typically used for)
- seniority_levels (array of strings; e.g. Entry, Mid, Senior, Executive)
- assessment_focus (string; one sentence on what the assessment evaluates)
- keywords (array of strings; search terms a recruiter would use)

Rules:
- Base every field only on the given name and description.
- If a field cannot be derived, use an empty array or empty string.
- Do not include extra keys and do not skip any input.

Assessments:
` + string(payload) + `
`), nil
}

func classifyErr(err error) error {
	// Wrap transient failures so the coordinator can treat the batch as
	// skippable rather than fatal.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &enrich.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &enrich.TransientError{Err: err}
	}
	return err
}
