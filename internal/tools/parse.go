package tools

import (
	"strconv"
	"strings"
)

// ParseKeyValues parses colon-delimited "KEY: value" lines into a map with
// uppercased keys. Lines without a colon are skipped. LLM prompts in this
// package ask for exactly this format, so the parser is deliberately loose:
// a malformed line loses only itself, never the whole response.
func ParseKeyValues(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// SplitList splits a delimiter-separated value, trimming whitespace and
// list markers, dropping empties.
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-•*0123456789. ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitLines splits raw text into trimmed non-empty lines.
func SplitLines(raw string) []string {
	return SplitList(raw, "\n")
}

// SafeFloat parses a float, returning def on failure.
func SafeFloat(raw string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return v
}

// SafeInt parses an int out of a possibly noisy value ("~250 words" -> 250),
// returning def when no digits are present.
func SafeInt(raw string, def int) int {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return def
	}
	v, err := strconv.Atoi(digits.String())
	if err != nil {
		return def
	}
	return v
}

// EnsureHashtag prefixes a token with '#' when missing.
func EnsureHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		return "#" + tag
	}
	return tag
}

// DedupeStrings removes duplicates while preserving first-seen order.
func DedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
