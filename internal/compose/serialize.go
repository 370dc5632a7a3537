package compose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TobiSchelling/Pulse/internal/cluster"
	"github.com/TobiSchelling/Pulse/internal/correlate"
	"github.com/TobiSchelling/Pulse/internal/trend"
)

const sourceNote = "All numbers are read-only rollups from source tables; every figure carries its unit and window. Only relevant themes are listed; noise is omitted."

// document is the serialized shape. Field order is the section order; the
// optional sections are the ones dropped first when over budget.
type document struct {
	Period        string                  `json:"period"`
	DateRange     DateRange               `json:"date_range"`
	Sources       map[string]SourceView   `json:"sources"`
	Highlights    Highlights              `json:"highlights"`
	Themes        []cluster.Theme         `json:"themes"`
	Correlations  []correlate.Correlation `json:"correlations"`
	Emerging      []trend.Trend           `json:"emerging"`
	Declining     []trend.Trend           `json:"declining"`
	DataGaps      []string                `json:"data_gaps"`
	Note          string                  `json:"source_notes"`
	Changes       *Changes                `json:"changes,omitempty"`
	Uncertainties *[]string               `json:"uncertainties,omitempty"`
}

// Serialize renders the payload as JSON within the character budget. Over
// budget it drops changes, then uncertainties, then hard-truncates and
// appends TruncationMarker. Lengths are counted in runes.
func (c *Compactor) Serialize(p *Payload) (string, error) {
	doc := document{
		Period:        p.Period,
		DateRange:     p.DateRange,
		Sources:       make(map[string]SourceView, len(p.Sources)),
		Highlights:    p.Highlights,
		Themes:        nonNil(p.Themes),
		Correlations:  nonNil(p.Correlations),
		Emerging:      nonNil(p.Emerging),
		Declining:     nonNil(p.Declining),
		DataGaps:      nonNil(p.DataGaps),
		Note:          sourceNote,
		Changes:       &p.Changes,
		Uncertainties: &p.Uncertainties,
	}
	for _, s := range p.Sources {
		name := s.Source
		s.Source = ""
		doc.Sources[name] = s
	}

	text, err := encode(doc)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) <= c.maxChars {
		return text, nil
	}

	doc.Changes = nil
	if text, err = encode(doc); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) <= c.maxChars {
		return text, nil
	}

	doc.Uncertainties = nil
	if text, err = encode(doc); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(text) <= c.maxChars {
		return text, nil
	}

	return truncateRunes(text, c.maxChars) + TruncationMarker, nil
}

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding context: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
