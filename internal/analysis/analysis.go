// Package analysis submits microscope images to the Generative Language
// vision model and turns its free-form reply into a MicrobeAnalysis.
package analysis

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"

	"github.com/JaimeStill/microfinder/pkg/formatting"
)

const (
	DefaultMicrobeName    = "Unknown Microorganism"
	DefaultClassification = "Unknown"
	DefaultConfidence     = 0.5
	DefaultDescription    = "No description available"
)

// MicrobeAnalysis is the model's identification after defaulting. The
// classification is not yet normalized.
type MicrobeAnalysis struct {
	MicrobeName     string          `json:"microbeName"`
	Classification  string          `json:"classification"`
	Confidence      float64         `json:"confidence"`
	Characteristics []string        `json:"characteristics"`
	Description     string          `json:"description"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Image is a base64 payload ready for the wire.
type Image struct {
	Data     string
	MimeType string
}

// SupportedTypes lists the image formats the model is sent.
var SupportedTypes = []string{"image/jpeg", "image/png"}

var (
	ErrInvalidImage  = errors.New("invalid image")
	ErrImageTooLarge = errors.New("image too large")
)

// EncodeImage validates and base64-encodes data. An empty mimeType is
// sniffed from the content.
func EncodeImage(data []byte, mimeType string, maxSize int64) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return Image{}, fmt.Errorf(
			"%w: %s exceeds %s",
			ErrImageTooLarge,
			formatting.FormatBytes(int64(len(data)), 1),
			formatting.FormatBytes(maxSize, 0),
		)
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !slices.Contains(SupportedTypes, mimeType) {
		return Image{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidImage, mimeType)
	}

	return Image{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}, nil
}

// decode extracts the JSON object from text. Raw keeps the extracted
// object exactly as the model wrote it.
func decode(text string) (*MicrobeAnalysis, error) {
	raw, err := formatting.Parse[json.RawMessage](text)
	if err != nil {
		return nil, err
	}

	var a MicrobeAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	a.Raw = raw
	return &a, nil
}

// UnmarshalJSON accepts any JSON object and defaults every missing, null,
// mistyped or empty field instead of failing. A "raw" member is kept as
// the original model reply; without one the object itself is.
func (a *MicrobeAnalysis) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: not a JSON object", formatting.ErrParseFailed)
	}

	raw := fields["raw"]
	if len(raw) == 0 || string(raw) == "null" {
		raw = append(json.RawMessage(nil), data...)
	}

	*a = MicrobeAnalysis{
		MicrobeName:     stringField(fields["microbeName"]),
		Classification:  stringField(fields["classification"]),
		Confidence:      confidenceField(fields["confidence"]),
		Characteristics: listField(fields["characteristics"]),
		Description:     stringField(fields["description"]),
		Raw:             raw,
	}.WithDefaults()
	return nil
}

// WithDefaults fills empty text fields with their defaults, clamps the
// confidence to [0,1] and drops empty characteristics.
func (a MicrobeAnalysis) WithDefaults() MicrobeAnalysis {
	if strings.TrimSpace(a.MicrobeName) == "" {
		a.MicrobeName = DefaultMicrobeName
	}
	if strings.TrimSpace(a.Classification) == "" {
		a.Classification = DefaultClassification
	}
	if strings.TrimSpace(a.Description) == "" {
		a.Description = DefaultDescription
	}

	if math.IsNaN(a.Confidence) {
		a.Confidence = DefaultConfidence
	}
	a.Confidence = min(max(a.Confidence, 0), 1)

	characteristics := make([]string, 0, len(a.Characteristics))
	for _, c := range a.Characteristics {
		if c != "" {
			characteristics = append(characteristics, c)
		}
	}
	a.Characteristics = characteristics
	return a
}

func stringField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func confidenceField(raw json.RawMessage) float64 {
	var f *float64
	if json.Unmarshal(raw, &f) != nil || f == nil {
		return DefaultConfidence
	}
	return *f
}

func listField(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}
