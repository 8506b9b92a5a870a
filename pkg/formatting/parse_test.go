package formatting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microfinder/pkg/formatting"
)

type reading struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  reading
	}{
		{"bare object", `{"name":"E. coli","confidence":0.9}`, reading{"E. coli", 0.9}},
		{"padded object", "  \n{\"name\":\"padded\",\"confidence\":0.1}\n ", reading{"padded", 0.1}},
		{"json fence", "```json\n{\"name\":\"fenced\",\"confidence\":0.5}\n```", reading{"fenced", 0.5}},
		{"uppercase fence tag", "```JSON\n{\"name\":\"upper\",\"confidence\":0.5}\n```", reading{"upper", 0.5}},
		{"untagged fence", "```\n{\"name\":\"bare\",\"confidence\":0.3}\n```", reading{"bare", 0.3}},
		{"fence with prose", "Result:\n```json\n{\"name\":\"wrapped\",\"confidence\":1}\n```\nDone.", reading{"wrapped", 1}},
		{"unterminated fence", "```json\n{\"name\":\"cut\",\"confidence\":0.2}", reading{"cut", 0.2}},
		{"trailing fence only", "{\"name\":\"tail\",\"confidence\":0.4}\n```", reading{"tail", 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[reading](tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFailures(t *testing.T) {
	for _, input := range []string{"", "not json at all", "```json\n{broken\n```"} {
		_, err := formatting.Parse[reading](input)
		assert.ErrorIs(t, err, formatting.ErrParseFailed, "input %q", input)
	}
}

func TestParseGenericTargets(t *testing.T) {
	m, err := formatting.Parse[map[string]any](`{"key":"value"}`)
	require.NoError(t, err)
	assert.Equal(t, "value", m["key"])

	s, err := formatting.Parse[[]int]("```\n[1,2,3]\n```")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, s)
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```Json{}```":     "{}",
		"```\n[1]\n```":    "[1]",
		"{}```":            "{}",
		"```{}":            "{}",
		"  {} ":            "{}",
		"plain text":       "plain text",
	}

	for in, want := range tests {
		assert.Equal(t, want, formatting.StripFences(in), "input %q", in)
	}
}
