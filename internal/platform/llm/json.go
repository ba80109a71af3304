package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("llm: no JSON object in completion")

// ExtractJSON returns the outermost JSON object in raw, ignoring markdown
// fences and any prose around it.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = s[3:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// DecodeJSON extracts the JSON object from raw and unmarshals it into v.
func DecodeJSON(raw string, v any) error {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(obj), v)
}
