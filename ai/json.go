package ai

import (
	"encoding/json"
	"strings"

	"github.com/poiesic/brandmem/core"
)

// StripCodeFences removes a markdown code fence wrapped around model output.
// Text outside the outermost fence pair is discarded. Unfenced input is only trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}

	body := s[start+3:]
	// Drop the info string ("json", "JSON", ...) up to the end of the fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		info := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(info, "{[") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(body, "json")
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// DecodeJSON strips code fences from raw model output and decodes it into v.
// Output that is not valid JSON gets one conservative repair pass. Anything that
// still fails is returned as a *core.ParseError carrying raw.
func DecodeJSON(raw string, v any) error {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return core.NewParseError(raw, ErrEmptyResponse)
	}

	if !json.Valid([]byte(cleaned)) {
		repaired := repairJSON(cleaned)
		if !json.Valid([]byte(repaired)) {
			var scratch any
			return core.NewParseError(raw, json.Unmarshal([]byte(cleaned), &scratch))
		}
		cleaned = repaired
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return core.NewParseError(raw, err)
	}
	return nil
}
