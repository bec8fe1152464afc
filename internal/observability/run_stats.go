// Package observability provides per-run diagnostic counters for the
// harmonization pipeline: hydration drops, type widenings and emitted rows.
package observability

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rowforge/rowforge/pkg/types"
)

// Coercion records one silent type widening performed by the schema deriver.
// Widenings are a deliberate policy (permissive unification over rejection);
// they surface here as diagnostics, never as errors.
type Coercion struct {
	Entity string
	Field  string
	Column string
	From   types.DataType
	To     types.DataType
}

func (c Coercion) String() string {
	return fmt.Sprintf("%s.%s.%s: %s -> %s", c.Entity, c.Field, c.Column, c.From, c.To)
}

// RunStats accumulates diagnostic counters for one pipeline run. All methods
// are safe for concurrent use; a nil *RunStats discards every record.
type RunStats struct {
	mu           sync.Mutex
	entities     int64
	orphanGroups map[string]int64
	coercions    []Coercion
	rowsEmitted  map[string]int64
}

// NewRunStats creates an empty stats accumulator.
func NewRunStats() *RunStats {
	return &RunStats{
		orphanGroups: make(map[string]int64),
		rowsEmitted:  make(map[string]int64),
	}
}

// RecordEntities records the size of the hydrated entity batch.
func (s *RunStats) RecordEntities(n int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities += int64(n)
}

// RecordOrphanGroup records one grouped key dropped during hydration because
// no parent entity matched and skip mode was requested.
func (s *RunStats) RecordOrphanGroup(targetField string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphanGroups[targetField]++
}

// RecordCoercion records one type widening performed during schema derivation.
func (s *RunStats) RecordCoercion(c Coercion) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coercions = append(s.coercions, c)
}

// RecordRows records rows emitted into a named output table.
func (s *RunStats) RecordRows(table string, n int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowsEmitted[table] += int64(n)
}

// Entities returns the recorded entity count.
func (s *RunStats) Entities() int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities
}

// OrphanGroups returns a copy of the per-field orphan drop counts.
func (s *RunStats) OrphanGroups() map[string]int64 {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.orphanGroups))
	for k, v := range s.orphanGroups {
		out[k] = v
	}
	return out
}

// OrphansDropped returns the total number of dropped orphan groups.
func (s *RunStats) OrphansDropped() int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, v := range s.orphanGroups {
		total += v
	}
	return total
}

// Coercions returns a copy of the recorded type widenings.
func (s *RunStats) Coercions() []Coercion {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Coercion, len(s.coercions))
	copy(out, s.coercions)
	return out
}

// RowsEmitted returns a copy of the per-table emitted row counts.
func (s *RunStats) RowsEmitted() map[string]int64 {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.rowsEmitted))
	for k, v := range s.rowsEmitted {
		out[k] = v
	}
	return out
}

// Summary renders a one-paragraph human-readable summary for run logs.
func (s *RunStats) Summary() string {
	if s == nil {
		return "no stats recorded"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "entities=%d", s.entities)

	var orphanTotal int64
	for _, v := range s.orphanGroups {
		orphanTotal += v
	}
	fmt.Fprintf(&sb, " orphan_groups_dropped=%d", orphanTotal)
	fmt.Fprintf(&sb, " type_widenings=%d", len(s.coercions))

	tables := make([]string, 0, len(s.rowsEmitted))
	for t := range s.rowsEmitted {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(&sb, " rows[%s]=%d", t, s.rowsEmitted[t])
	}
	return sb.String()
}
