// Package clean normalizes raw scraped catalog text before enrichment.
package clean

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/talentsift/catalog-pipeline/internal/catalog"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	boldRe       = regexp.MustCompile(`\*\*|__`)
	bracketsRe   = regexp.MustCompile(`\[|\]`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	multiDotRe   = regexp.MustCompile(`\.{2,}`)
	multiCommaRe = regexp.MustCompile(`,{2,}`)
	vendorSuffix = regexp.MustCompile(`(?i)\s*[-|]\s*SHL$`)
	minutesRe    = regexp.MustCompile(`(\d+)\s*(?:minute|min)`)
	hoursRe      = regexp.MustCompile(`(\d+)\s*(?:hour|hr)`)
	clockRe      = regexp.MustCompile(`(\d+):(\d+)`)
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&mdash;", "—",
	"&ndash;", "–",
	"&hellip;", "...",
)

// CleanHTML strips tags and decodes common entities.
func CleanHTML(text string) string {
	return htmlEntities.Replace(htmlTagRe.ReplaceAllString(text, ""))
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// CleanTextField applies the full cleaning chain to a free-text field.
func CleanTextField(text string) string {
	text = CleanHTML(text)
	text = NormalizeWhitespace(text)
	text = boldRe.ReplaceAllString(text, "")
	text = bracketsRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = multiDotRe.ReplaceAllString(text, ".")
	text = multiCommaRe.ReplaceAllString(text, ",")
	return NormalizeWhitespace(text)
}

var titleCaser = cases.Title(language.English)

// StandardizeName cleans an assessment name, drops vendor suffixes and
// title-cases names that arrive fully upper-cased.
func StandardizeName(name string) string {
	name = CleanTextField(name)
	name = vendorSuffix.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name != "" && name == strings.ToUpper(name) && name != strings.ToLower(name) {
		name = titleCaser.String(strings.ToLower(name))
	}
	return name
}

// ExtractDurationMinutes parses a human duration phrase into whole minutes.
// It returns false when no duration can be read.
func ExtractDurationMinutes(text string) (int, bool) {
	text = strings.ToLower(text)

	hours := 0
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		hours, _ = strconv.Atoi(m[1])
		minutes := 0
		if mm := minutesRe.FindStringSubmatch(text); mm != nil {
			minutes, _ = strconv.Atoi(mm[1])
		}
		return hours*60 + minutes, true
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := clockRe.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return h*60 + min, true
	}
	return 0, false
}

// NormalizeBoolean maps boolean-ish strings onto Yes/No/Unknown.
func NormalizeBoolean(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "supported", "available", "enabled", "1":
		return "Yes"
	case "no", "false", "not supported", "unavailable", "disabled", "0":
		return "No"
	default:
		return "Unknown"
	}
}

// Report summarizes one cleaning pass.
type Report struct {
	Input      int
	Output     int
	Duplicates int
	Dropped    int

	// FieldFill counts output rows with a non-blank value per raw column.
	FieldFill map[string]int
}

// Records cleans every raw column, drops empty and duplicate rows (first
// occurrence by name wins) and sorts the result by name. Enrichment columns
// pass through untouched.
func Records(in []catalog.Record) ([]catalog.Record, Report) {
	report := Report{Input: len(in)}
	seen := make(map[string]struct{}, len(in))
	out := make([]catalog.Record, 0, len(in))

	for _, r := range in {
		r.Name = StandardizeName(r.Name)
		r.Description = CleanTextField(r.Description)
		r.TestType = CleanTextField(r.TestType)
		r.DurationText = CleanTextField(r.DurationText)
		if r.DurationMinutes == "" {
			if min, ok := ExtractDurationMinutes(r.DurationText); ok {
				r.DurationMinutes = strconv.Itoa(min)
			}
		}
		r.AdaptiveSupport = NormalizeBoolean(r.AdaptiveSupport)
		r.RemoteSupport = NormalizeBoolean(r.RemoteSupport)
		r.URL = strings.TrimSpace(r.URL)

		if r.Name == "" {
			report.Dropped++
			continue
		}
		key := strings.ToLower(r.Name)
		if _, ok := seen[key]; ok {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	report.Output = len(out)

	report.FieldFill = make(map[string]int, 8)
	for _, r := range out {
		for col, v := range map[string]string{
			"name":             r.Name,
			"description":      r.Description,
			"test_type":        r.TestType,
			"duration_text":    r.DurationText,
			"duration_minutes": r.DurationMinutes,
			"adaptive_support": r.AdaptiveSupport,
			"remote_support":   r.RemoteSupport,
			"url":              r.URL,
		} {
			if v != "" {
				report.FieldFill[col]++
			}
		}
	}
	return out, report
}
