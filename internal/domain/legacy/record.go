// Package legacy models the loosely-typed records served by the legacy
// platform's data API and the coercion rules that normalize their fields.
package legacy

import "time"

// Record is one raw DTO as decoded from a legacy API page. Field values
// arrive as whatever JSON type the platform stored: numbers where strings
// are expected, numeric strings where dates are expected, and so on.
type Record map[string]any

// ForeignID returns the legacy system's identifier for this record.
func (r Record) ForeignID() string {
	return CoerceString(r["_id"])
}

// Str returns the named field coerced to a string.
func (r Record) Str(key string) string {
	return CoerceString(r[key])
}

// Time returns the named field coerced to a timestamp, or nil.
func (r Record) Time(key string) *time.Time {
	return CoerceTime(r[key])
}

// List returns the named field as a string slice. Non-list values yield nil.
func (r Record) List(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s := CoerceString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Child returns a nested object field (address, image) as a Record.
// Missing or non-object values yield an empty Record.
func (r Record) Child(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return Record{}
}
