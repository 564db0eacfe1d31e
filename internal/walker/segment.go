package walker

import (
	"encoding/json"

	"github.com/l10nmonster/lqascan/internal/dom"
)

// Segment is a reconstructed run of marked text: the visible text between a
// start and end marker, its decoded metadata, and its absolute page geometry.
// Geometry is never omitted: segments that are not visible carry dom.ZeroRect.
type Segment struct {
	Text          string
	Geometry      dom.Rect
	Metadata      map[string]any
	DecodingError string
}

// Result is the output of one extraction pass.
type Result struct {
	TextElements []Segment `json:"textElements"`
}

// reservedKeys are the segment's own JSON fields. Metadata keys are merged
// flat onto the segment object; the encoding producer is expected to avoid
// these names, and they win on collision.
var reservedKeys = map[string]bool{
	"text":          true,
	"geometry":      true,
	"decodingError": true,
}

// MarshalJSON flattens metadata keys onto the segment object.
func (s Segment) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Metadata)+3)
	for k, v := range s.Metadata {
		m[k] = v
	}
	m["text"] = s.Text
	m["geometry"] = s.Geometry
	if s.DecodingError != "" {
		m["decodingError"] = s.DecodingError
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON: reserved keys populate the
// struct fields, everything else lands in Metadata.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["text"]; ok {
		if err := json.Unmarshal(v, &s.Text); err != nil {
			return err
		}
	}
	if v, ok := raw["geometry"]; ok {
		if err := json.Unmarshal(v, &s.Geometry); err != nil {
			return err
		}
	}
	if v, ok := raw["decodingError"]; ok {
		if err := json.Unmarshal(v, &s.DecodingError); err != nil {
			return err
		}
	}
	s.Metadata = make(map[string]any)
	for k, v := range raw {
		if reservedKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		s.Metadata[k] = val
	}
	return nil
}
