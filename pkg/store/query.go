package store

import (
	"sort"
	"strings"
)

// applyFilters keeps records whose string form contains every filter value
// case-insensitively. A record missing a filtered field fails that filter;
// a nil value matches only the empty filter string.
func applyFilters(items []Record, filters map[string]string) []Record {
	if len(filters) == 0 {
		return append([]Record(nil), items...)
	}

	result := make([]Record, 0, len(items))
	for _, rec := range items {
		if matchesFilters(rec, filters) {
			result = append(result, rec)
		}
	}
	return result
}

func matchesFilters(rec Record, filters map[string]string) bool {
	for field, want := range filters {
		value, ok := rec[field]
		if !ok {
			return false
		}
		if value == nil {
			if want != "" {
				return false
			}
			continue
		}
		if !strings.Contains(strings.ToLower(Stringify(value)), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

// sortRecords sorts stably by the named field. Records missing the field
// sort as null, which orders first under ascending.
func sortRecords(items []Record, sortBy string, descending bool) {
	if sortBy == "" {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		less := compareValues(items[i][sortBy], items[j][sortBy])
		if descending {
			return compareValues(items[j][sortBy], items[i][sortBy])
		}
		return less
	})
}

// compareValues reports a < b. Nil orders before everything; numbers
// compare numerically when both sides are numeric; everything else falls
// back to comparing string forms.
func compareValues(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}

	if na, aok := numeric(a); aok {
		if nb, bok := numeric(b); bok {
			return na < nb
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa < sb
		}
	}
	return Stringify(a) < Stringify(b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// paginate applies skip then take, both optional and independent.
func paginate(items []Record, skip, take *int) []Record {
	start := 0
	if skip != nil && *skip > 0 {
		start = *skip
	}
	if start > len(items) {
		start = len(items)
	}

	end := len(items)
	if take != nil && *take >= 0 && start+*take < end {
		end = start + *take
	}

	return items[start:end]
}
