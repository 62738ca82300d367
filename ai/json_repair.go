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


package ai

import "strings"

// repairJSON fixes the slips models make most often when asked for JSON:
// object keys written bare or with only the closing quote (`{tone: ...}`,
// `, hashtags":`) and trailing commas before } or ]. It makes a single pass
// and never touches the contents of string literals.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var open []byte // enclosing '{' and '['
	keyNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
			keyNext = false
		case c == '{' || c == '[':
			open = append(open, c)
			b.WriteByte(c)
			keyNext = c == '{'
		case c == '}' || c == ']':
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			b.WriteByte(c)
			keyNext = false
		case c == ',':
			if next := skipSpace(s, i+1); next < len(s) && (s[next] == '}' || s[next] == ']') {
				continue
			}
			b.WriteByte(c)
			keyNext = len(open) > 0 && open[len(open)-1] == '{'
		case keyNext && isKeyByte(c) && c != ' ':
			key, colon, ok := bareKey(s, i)
			if !ok {
				b.WriteByte(c)
				keyNext = false
				continue
			}
			b.WriteByte('"')
			b.WriteString(key)
			b.WriteByte('"')
			i = colon - 1
			keyNext = false
		default:
			if !isSpace(c) {
				keyNext = false
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stringEnd returns the index just past the string literal opening at
// s[start], or len(s) when it is unterminated.
func stringEnd(s string, start int) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}

// bareKey reads an unquoted object key at s[start]. The key may carry a
// stray closing quote. colon is the index of the ':' that follows it.
func bareKey(s string, start int) (key string, colon int, ok bool) {
	end := start
	for end < len(s) && isKeyByte(s[end]) {
		end++
	}
	key = strings.TrimSpace(s[start:end])
	colon = end
	if colon < len(s) && s[colon] == '"' {
		colon++
	}
	colon = skipSpace(s, colon)
	if key == "" || colon >= len(s) || s[colon] != ':' {
		return "", 0, false
	}
	return key, colon, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isKeyByte(c byte) bool {
	return c == '_' || c == '-' || c == ' ' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
