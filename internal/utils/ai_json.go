package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a model reply contains nothing decodable.
var ErrNoJSON = errors.New("no JSON object in model reply")

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes the first JSON object found in a generative model
// reply into target. Replies are tried as-is, then inside a ``` fence, then
// as the first balanced {...} span, and finally after repairing trailing
// commas and unquoted keys.
func ParseAIJSON(reply string, target any) error {
	reply = strings.TrimSpace(strings.TrimPrefix(reply, "\ufeff"))
	if reply == "" {
		return ErrNoJSON
	}

	candidates := []string{reply}
	if m := fencedBlock.FindStringSubmatch(reply); len(m) > 1 {
		candidates = append(candidates, m[1])
	}
	if obj := firstObject(reply); obj != "" {
		candidates = append(candidates, obj, repair(obj))
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoJSON, truncate(reply, 100))
}

// firstObject returns the first balanced {...} span, ignoring braces inside strings.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = bareKey.ReplaceAllString(s, `$1"$2"$3`)
	return controlChars.ReplaceAllString(s, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
