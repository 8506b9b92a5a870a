// Package discoveries persists identified microorganisms. It is the only
// writer of the discoveries table and enforces that rows are stamped with,
// and mutated only by, the signed-in user.
package discoveries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/classification"
)

// Discovery is a saved identification.
type Discovery struct {
	ID              uuid.UUID                     `json:"id"`
	UserID          string                        `json:"user_id"`
	ImageURL        string                        `json:"image_url"`
	MicrobeName     string                        `json:"microbe_name"`
	Classification  classification.Classification `json:"classification"`
	ConfidenceScore float64                       `json:"confidence_score"`
	Characteristics []string                      `json:"characteristics"`
	AnalysisResults string                        `json:"analysis_results"`
	RawAnalysis     json.RawMessage               `json:"raw_analysis,omitempty"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       *time.Time                    `json:"updated_at"`
}

// SaveCommand persists an analysis that was produced separately.
type SaveCommand struct {
	ImageURL string                    `json:"image_url"`
	Analysis *analysis.MicrobeAnalysis `json:"analysis"`
}

// UpdateCommand lists the only fields an owner may change. Nil fields are
// left untouched.
type UpdateCommand struct {
	MicrobeName     *string `json:"microbe_name,omitempty"`
	Classification  *string `json:"classification,omitempty"`
	AnalysisResults *string `json:"analysis_results,omitempty"`
}

// CaptureCommand carries a raw image for upload, analysis and save.
type CaptureCommand struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Identity reports the signed-in user.
type Identity interface {
	CurrentUser() (string, bool)
}

// Observer is told whenever a classification had to be replaced by the
// default class.
type Observer interface {
	ObserveClassificationFallback(source string)
}
