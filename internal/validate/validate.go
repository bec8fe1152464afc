// Package validate provides the strict field validators and update tracking
// that back every validated setter on the harmonized domain models. Raw eCRF
// cells arrive as strings; validators turn them into typed optional values or
// reject them with the field name in the error.
package validate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rowforge/rowforge/pkg/types"
)

// Missing value markers used across trial exports.
var missingMarkers = map[string]bool{
	"":    true,
	"NA":  true,
	"N/A": true,
	"ND":  true,
	".":   true,
}

// dateLayouts lists the date formats observed across trial exports, tried in
// order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// IsMissing reports whether a raw cell encodes a missing value.
func IsMissing(raw string) bool {
	return missingMarkers[strings.ToUpper(strings.TrimSpace(raw))]
}

// OptionalString returns the trimmed string, or nil for missing markers.
func OptionalString(raw, field string) (*string, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, nil
	}
	return &s, nil
}

// OptionalInt parses an optional integer cell.
func OptionalInt(raw, field string) (*int64, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("field %q: invalid integer %q", field, raw)
	}
	return &n, nil
}

// OptionalFloat parses an optional float cell.
func OptionalFloat(raw, field string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("field %q: invalid number %q", field, raw)
	}
	return &f, nil
}

// OptionalBool parses an optional boolean cell. Trial exports encode booleans
// as yes/no, y/n, true/false or 1/0.
func OptionalBool(raw, field string) (*bool, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if IsMissing(strings.ToUpper(s)) {
		return nil, nil
	}
	switch s {
	case "yes", "y", "true", "1":
		v := true
		return &v, nil
	case "no", "n", "false", "0":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("field %q: invalid boolean %q", field, raw)
}

// OptionalDate parses an optional date cell, trying each known layout.
func OptionalDate(raw, field string) (*types.Date, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := types.DateOf(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("field %q: invalid date %q", field, raw)
}

// OptionalDateTime parses an optional datetime cell. A date-only cell is
// accepted and returned at midnight UTC.
func OptionalDateTime(raw, field string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("field %q: invalid datetime %q", field, raw)
}

// Tracked records which fields of a domain model have been set through a
// validated setter, so downstream code can distinguish "never parsed" from
// "parsed to null".
type Tracked struct {
	updated map[string]struct{}
}

// Mark records that a field was set.
func (t *Tracked) Mark(field string) {
	if t.updated == nil {
		t.updated = make(map[string]struct{})
	}
	t.updated[field] = struct{}{}
}

// Updated reports whether a field was ever set.
func (t *Tracked) Updated(field string) bool {
	_, ok := t.updated[field]
	return ok
}

// UpdatedFields returns the set field names, sorted.
func (t *Tracked) UpdatedFields() []string {
	out := make([]string, 0, len(t.updated))
	for f := range t.updated {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
