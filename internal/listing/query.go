// Package listing implements the query pipeline shared by every listing
// screen: text search, category and status filters, stable sorting,
// aggregates over the filtered set and clamped pagination.
//
// The engine is a pure function over records the caller already holds.
// It never mutates its input and keeps no state between calls.
package listing

import (
	"errors"
	"fmt"
	"strings"
)

// All disables a category or status filter. An empty value does the same.
const All = "all"

// SortKey selects the comparator applied to the filtered set.
type SortKey string

const (
	SortNone       SortKey = ""
	SortAmountAsc  SortKey = "amount_asc"
	SortAmountDesc SortKey = "amount_desc"
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortRelevance  SortKey = "relevance"
)

var sortSpellings = map[string]SortKey{
	"":            SortNone,
	"none":        SortNone,
	"amount_asc":  SortAmountAsc,
	"amount-asc":  SortAmountAsc,
	"price_asc":   SortAmountAsc,
	"price-asc":   SortAmountAsc,
	"price-low":   SortAmountAsc,
	"low-high":    SortAmountAsc,
	"amount_desc": SortAmountDesc,
	"amount-desc": SortAmountDesc,
	"price_desc":  SortAmountDesc,
	"price-desc":  SortAmountDesc,
	"price-high":  SortAmountDesc,
	"high-low":    SortAmountDesc,
	"newest":      SortNewest,
	"recent":      SortNewest,
	"latest":      SortNewest,
	"date_desc":   SortNewest,
	"oldest":      SortOldest,
	"date_asc":    SortOldest,
	"relevance":   SortRelevance,
	"best_match":  SortRelevance,
}

// ParseSortKey maps the spellings used by the UI onto a SortKey. Unknown
// spellings are returned as-is; the engine treats them as unsorted.
func ParseSortKey(s string) SortKey {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := sortSpellings[s]; ok {
		return k
	}
	return SortKey(s)
}

// IsKnown reports whether the engine has a comparator for k.
func (k SortKey) IsKnown() bool {
	switch k {
	case SortNone, SortAmountAsc, SortAmountDesc, SortNewest, SortOldest, SortRelevance:
		return true
	}
	return false
}

// Query describes one listing request. Page is 1-based and clamped by the
// engine; PageSize must be positive.
type Query struct {
	Search   string  `json:"search,omitempty"`
	Category string  `json:"category,omitempty"`
	Status   string  `json:"status,omitempty"`
	Sort     SortKey `json:"sort,omitempty"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// Validate rejects queries that cannot be paginated.
func (q Query) Validate() error {
	if q.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidQuery, q.PageSize)
	}
	return nil
}

func filterActive(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

var (
	// ErrInvalidQuery is fatal for the call that received it.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownFilterValue is never returned by Run; it is wrapped by the
	// FilterErrors reported in Result.Ignored.
	ErrUnknownFilterValue = errors.New("unknown filter value")
)

// FilterError records a filter or sort the engine ignored.
type FilterError struct {
	Filter string
	Value  string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s %q ignored: %v", e.Filter, e.Value, ErrUnknownFilterValue)
}

func (e *FilterError) Unwrap() error {
	return ErrUnknownFilterValue
}
