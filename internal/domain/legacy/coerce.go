package legacy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order for free-form date strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"01/02/2006",
}

// CoerceTime normalizes a legacy date field to a UTC timestamp.
// Accepted forms: a unix-seconds number, a numeric string, or a free-form
// date string. nil and unparseable values yield nil.
func CoerceTime(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return unixTime(val)
	case int64:
		return unixTime(float64(val))
	case int:
		return unixTime(float64(val))
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(secs)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}

func unixTime(secs float64) *time.Time {
	t := time.Unix(int64(math.Round(secs)), 0).UTC()
	return &t
}

// CoerceString normalizes a string-or-number field (phone numbers are the
// usual offender) to a trimmed string. Numeric forms are rounded to the
// nearest integer so "5551234567.0" and 5551234567 agree. nil yields "".
func CoerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatInt(int64(math.Round(val)), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NormalizeEnum matches a legacy value against an allow-list,
// case-insensitively and ignoring surrounding whitespace. Legacy aliases are
// remapped before matching. Unknown values yield "" rather than an error.
func NormalizeEnum(v any, allowed []string, aliases map[string]string) string {
	s := strings.ToLower(strings.TrimSpace(CoerceString(v)))
	if s == "" {
		return ""
	}
	if mapped, ok := aliases[s]; ok {
		s = mapped
	}
	for _, a := range allowed {
		if s == a {
			return a
		}
	}
	return ""
}

// NormalizeColor ensures a leading '#' on a hex color value, falling back
// to the given default when the field is absent or empty.
func NormalizeColor(v any, fallback string) string {
	s := CoerceString(v)
	if s == "" {
		return fallback
	}
	if !strings.HasPrefix(s, "#") {
		return "#" + s
	}
	return s
}
