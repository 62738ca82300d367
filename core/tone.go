// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ToneKind discriminates the ToneDescriptor variants.
type ToneKind int

const (
	// ToneUnset means no tone has been recorded.
	ToneUnset ToneKind = iota
	// ToneUnstructured is free text, e.g. "friendly and witty".
	ToneUnstructured
	// ToneStructured carries the fields produced by tone analysis.
	ToneStructured
)

// StructuredTone is the structured form of a brand voice.
type StructuredTone struct {
	Archetype  string   `json:"archetype,omitempty"`
	Tone       string   `json:"tone,omitempty"`
	Style      string   `json:"style,omitempty"`
	Adjectives []string `json:"adjectives,omitempty"`
}

// ToneDescriptor is a brand voice that is either free text or structured.
// Upstream payloads store it either way; ParseToneDescriptor resolves the shape
// once so nothing downstream inspects raw JSON again.
type ToneDescriptor struct {
	kind       ToneKind
	text       string
	structured StructuredTone
}

// NewUnstructuredTone wraps free text. Blank text yields an unset descriptor.
func NewUnstructuredTone(text string) ToneDescriptor {
	text = strings.TrimSpace(text)
	if text == "" {
		return ToneDescriptor{}
	}
	return ToneDescriptor{kind: ToneUnstructured, text: text}
}

// NewStructuredTone wraps a structured tone.
func NewStructuredTone(st StructuredTone) ToneDescriptor {
	return ToneDescriptor{kind: ToneStructured, structured: st}
}

// Kind reports which variant is populated.
func (t ToneDescriptor) Kind() ToneKind {
	return t.kind
}

// IsZero reports whether no tone is recorded.
func (t ToneDescriptor) IsZero() bool {
	return t.kind == ToneUnset
}

// Text returns the free-text variant.
func (t ToneDescriptor) Text() (string, bool) {
	return t.text, t.kind == ToneUnstructured
}

// Structured returns the structured variant.
func (t ToneDescriptor) Structured() (StructuredTone, bool) {
	return t.structured, t.kind == ToneStructured
}

// String renders the tone for prompts.
func (t ToneDescriptor) String() string {
	switch t.kind {
	case ToneUnstructured:
		return t.text
	case ToneStructured:
		var parts []string
		if t.structured.Archetype != "" {
			parts = append(parts, "archetype: "+t.structured.Archetype)
		}
		if t.structured.Tone != "" {
			parts = append(parts, "tone: "+t.structured.Tone)
		}
		if t.structured.Style != "" {
			parts = append(parts, "style: "+t.structured.Style)
		}
		if len(t.structured.Adjectives) > 0 {
			parts = append(parts, "adjectives: "+strings.Join(t.structured.Adjectives, ", "))
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// MarshalJSON writes the variant in its native shape: null, a string, or an object.
func (t ToneDescriptor) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case ToneUnstructured:
		return json.Marshal(t.text)
	case ToneStructured:
		return json.Marshal(t.structured)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any shape ParseToneDescriptor accepts.
func (t *ToneDescriptor) UnmarshalJSON(data []byte) error {
	parsed, err := ParseToneDescriptor(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// rawStructuredTone tolerates adjectives sent as a list or a comma separated string.
type rawStructuredTone struct {
	Archetype  string          `json:"archetype"`
	Tone       string          `json:"tone"`
	Style      string          `json:"style"`
	Adjectives json.RawMessage `json:"adjectives"`
}

// ParseToneDescriptor resolves a loosely typed tone payload.
//
// Accepted shapes:
//   - null or empty: unset
//   - a JSON string: unstructured
//   - an object with archetype/tone/style/adjectives: structured
func ParseToneDescriptor(raw json.RawMessage) (ToneDescriptor, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ToneDescriptor{}, nil
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return ToneDescriptor{}, fmt.Errorf("%w: %w", ErrInvalidTone, err)
		}
		return NewUnstructuredTone(text), nil
	case '{':
		var rs rawStructuredTone
		if err := json.Unmarshal(raw, &rs); err != nil {
			return ToneDescriptor{}, fmt.Errorf("%w: %w", ErrInvalidTone, err)
		}
		adjectives, err := parseAdjectives(rs.Adjectives)
		if err != nil {
			return ToneDescriptor{}, err
		}
		st := StructuredTone{
			Archetype:  strings.TrimSpace(rs.Archetype),
			Tone:       strings.TrimSpace(rs.Tone),
			Style:      strings.TrimSpace(rs.Style),
			Adjectives: adjectives,
		}
		if st.Archetype == "" && st.Tone == "" && st.Style == "" && len(st.Adjectives) == 0 {
			return ToneDescriptor{}, nil
		}
		return NewStructuredTone(st), nil
	default:
		return ToneDescriptor{}, fmt.Errorf("%w: unexpected JSON %.20q", ErrInvalidTone, raw)
	}
}

func parseAdjectives(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var list []string
	if raw[0] == '"' {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil, fmt.Errorf("%w: adjectives: %w", ErrInvalidTone, err)
		}
		list = strings.Split(joined, ",")
	} else if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: adjectives: %w", ErrInvalidTone, err)
	}

	out := make([]string, 0, len(list))
	for _, adj := range list {
		if adj = strings.TrimSpace(adj); adj != "" {
			out = append(out, adj)
		}
	}
	return out, nil
}
