package discoveries

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/microfinder/internal/classification"
	"github.com/JaimeStill/microfinder/pkg/query"
	"github.com/JaimeStill/microfinder/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "discoveries", "d").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("image_url", "ImageURL").
	Project("microbe_name", "MicrobeName").
	Project("classification", "Classification").
	Project("confidence_score", "ConfidenceScore").
	Project("characteristics", "Characteristics").
	Project("analysis_results", "AnalysisResults").
	Project("raw_analysis", "RawAnalysis").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows List. Classification is an exact match, Search matches
// the microbe name or classification, and Mine limits rows to the
// signed-in user.
type Filters struct {
	Classification *classification.Classification `json:"classification,omitempty"`
	Search         *string                        `json:"search,omitempty"`
	Mine           bool                           `json:"mine,omitempty"`
}

// Apply adds filter conditions to a query builder. The owner condition is
// added by the repository.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var cls *string
	if f.Classification != nil {
		s := f.Classification.String()
		cls = &s
	}
	return b.
		WhereEquals("Classification", cls).
		WhereSearch(f.Search, "MicrobeName", "Classification")
}

// FiltersFromQuery reads classification, search and mine. An unknown
// classification is ignored rather than coerced.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if raw := values.Get("classification"); raw != "" {
		if c, ok := classification.Parse(raw); ok {
			f.Classification = &c
		}
	}

	if s := values.Get("search"); s != "" {
		f.Search = &s
	}

	if m, err := strconv.ParseBool(values.Get("mine")); err == nil {
		f.Mine = m
	}

	return f
}

func scanDiscovery(s repository.Scanner) (Discovery, error) {
	var (
		d               Discovery
		name, results   sql.NullString
		cls             string
		confidence      sql.NullFloat64
		characteristics []byte
		raw             []byte
		updated         sql.NullTime
	)

	err := s.Scan(
		&d.ID,
		&d.UserID,
		&d.ImageURL,
		&name,
		&cls,
		&confidence,
		&characteristics,
		&results,
		&raw,
		&d.CreatedAt,
		&updated,
	)
	if err != nil {
		return d, err
	}

	d.MicrobeName = name.String
	d.Classification = classification.Classification(cls)
	d.ConfidenceScore = confidence.Float64
	d.AnalysisResults = results.String
	if len(raw) > 0 {
		d.RawAnalysis = json.RawMessage(raw)
	}
	if updated.Valid {
		t := updated.Time
		d.UpdatedAt = &t
	}

	d.Characteristics = []string{}
	if len(characteristics) > 0 {
		if err := json.Unmarshal(characteristics, &d.Characteristics); err != nil {
			return d, fmt.Errorf("decode characteristics: %w", err)
		}
		if d.Characteristics == nil {
			d.Characteristics = []string{}
		}
	}

	return d, nil
}
