package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxLongText bounds description and requirements text.
const MaxLongText = 500

// Text coerces an Airtable cell value to a string. Arrays are joined with
// ", "; select, collaborator and AI-text objects yield their display value.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := Text(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case map[string]any:
		for _, k := range []string{"name", "label", "value", "text", "email"} {
			if s := Text(t[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

// Truthy reports whether a checkbox or Yes/No style cell is set.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true", "checked", "on", "1", "active":
			return true
		}
		return false
	case []any:
		for _, e := range t {
			if Truthy(e) {
				return true
			}
		}
		return false
	case map[string]any:
		return Truthy(Text(t))
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006",
	"1/2/2006 3:04pm",
	"January 2, 2006",
}

// ParseDate parses a date-like cell. Invalid or missing values give nil.
func ParseDate(v any) *time.Time {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Truncate keeps the first n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// OptionalText is Text for nullable columns: missing or blank gives nil.
func OptionalText(v any) *string {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return nil
	}
	return &s
}

// RecordIDs returns the Airtable record ids held by a linked-record cell.
func RecordIDs(v any) []string {
	var ids []string
	switch t := v.(type) {
	case string:
		if isRecordID(t) {
			ids = append(ids, t)
		}
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok || !isRecordID(s) {
				return nil
			}
			ids = append(ids, s)
		}
	}
	return ids
}

func isRecordID(s string) bool {
	return len(s) == 17 && strings.HasPrefix(s, "rec")
}
