package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vetrina/internal/category"
)

// Accessors tells the engine how to read the fields it filters, sorts and
// searches on. A nil getter turns off the feature that needs it.
type Accessors[T any] struct {
	ID        func(T) string
	Category  func(T) string
	Status    func(T) string
	Amount    func(T) decimal.Decimal
	Time      func(T) time.Time
	Relevance func(T) float64
	// Search lists the text fields matched by Query.Search.
	Search []func(T) string
	// Statuses is the status vocabulary. When set, a status filter outside
	// it is reported as unknown and ignored.
	Statuses []string
}

// Result is one page of a listing plus the figures computed over every
// matching record.
type Result[T any] struct {
	Items        []T                        `json:"items"`
	Page         int                        `json:"page"`
	PageSize     int                        `json:"page_size"`
	TotalMatches int                        `json:"total_matches"`
	TotalPages   int                        `json:"total_pages"`
	Aggregates   map[string]decimal.Decimal `json:"aggregates"`
	Ignored      []error                    `json:"-"`
}

// Empty reports whether no record matched. It is a state, not an error.
func (r Result[T]) Empty() bool {
	return r.TotalMatches == 0
}

// HasPrev reports whether a previous page exists.
func (r Result[T]) HasPrev() bool {
	return r.Page > 1
}

// HasNext reports whether a next page exists.
func (r Result[T]) HasNext() bool {
	return r.Page < r.TotalPages
}

// Engine runs queries over records of one type.
type Engine[T any] struct {
	fields     Accessors[T]
	categories *category.Normalizer
	aggregates []Aggregate[T]
	derived    []Derived
}

// New builds an engine. categories may be nil, in which case category
// filters compare lookup keys only.
func New[T any](fields Accessors[T], categories *category.Normalizer, aggregates ...Aggregate[T]) *Engine[T] {
	return &Engine[T]{
		fields:     fields,
		categories: categories,
		aggregates: aggregates,
	}
}

// Derive registers a value computed from the aggregates after they are
// folded. It is meant to be called while wiring, before the first Run.
func (e *Engine[T]) Derive(name string, fn func(map[string]decimal.Decimal) decimal.Decimal) *Engine[T] {
	e.derived = append(e.derived, Derived{Name: name, Compute: fn})
	return e
}

// Categories returns the normalizer used by the category filter.
func (e *Engine[T]) Categories() *category.Normalizer {
	return e.categories
}

// Run applies q to records. The only error is ErrInvalidQuery; filters the
// engine could not apply are listed in Result.Ignored.
func (e *Engine[T]) Run(records []T, q Query) (Result[T], error) {
	if err := q.Validate(); err != nil {
		return Result[T]{}, err
	}

	var ignored []error
	matched := make([]T, 0, len(records))

	term := category.LookupKey(q.Search)
	if term != "" && len(e.fields.Search) == 0 {
		ignored = append(ignored, &FilterError{Filter: "search", Value: q.Search})
		term = ""
	}

	wantCategory, categoryOn := e.categoryFilter(q.Category, &ignored)
	wantStatus, statusOn := e.statusFilter(q.Status, &ignored)

	for _, r := range records {
		if term != "" && !e.matchesText(r, term) {
			continue
		}
		if categoryOn && e.categories.Normalize(e.fields.Category(r)) != wantCategory {
			continue
		}
		if statusOn && e.fields.Status(r) != wantStatus {
			continue
		}
		matched = append(matched, r)
	}

	if less := e.comparator(q.Sort, &ignored); less != nil {
		slices.SortStableFunc(matched, less)
	}

	aggs := Compute(matched, e.aggregates, e.derived)

	total := len(matched)
	pages := max(1, (total+q.PageSize-1)/q.PageSize)
	page := min(max(q.Page, 1), pages)
	start := min((page-1)*q.PageSize, total)
	end := min(start+q.PageSize, total)

	return Result[T]{
		Items:        slices.Clip(matched[start:end]),
		Page:         page,
		PageSize:     q.PageSize,
		TotalMatches: total,
		TotalPages:   pages,
		Aggregates:   aggs,
		Ignored:      ignored,
	}, nil
}

func (e *Engine[T]) matchesText(r T, term string) bool {
	for _, field := range e.fields.Search {
		if strings.Contains(category.LookupKey(field(r)), term) {
			return true
		}
	}
	return false
}

func (e *Engine[T]) categoryFilter(raw string, ignored *[]error) (string, bool) {
	if !filterActive(raw) {
		return "", false
	}
	if e.fields.Category == nil {
		*ignored = append(*ignored, &FilterError{Filter: "category", Value: raw})
		return "", false
	}
	want := e.categories.Normalize(raw)
	if e.categories.HasVocabulary() && want != category.Uncategorized && !e.categories.IsCanonical(want) {
		*ignored = append(*ignored, &FilterError{Filter: "category", Value: raw})
		return "", false
	}
	return want, true
}

func (e *Engine[T]) statusFilter(raw string, ignored *[]error) (string, bool) {
	if raw == "" || raw == All {
		return "", false
	}
	if e.fields.Status == nil || (len(e.fields.Statuses) > 0 && !slices.Contains(e.fields.Statuses, raw)) {
		*ignored = append(*ignored, &FilterError{Filter: "status", Value: raw})
		return "", false
	}
	return raw, true
}

// comparator returns nil when the records should keep their input order.
func (e *Engine[T]) comparator(key SortKey, ignored *[]error) func(a, b T) int {
	f := e.fields
	var less func(a, b T) int
	switch key {
	case SortNone:
		return nil
	case SortAmountAsc:
		if f.Amount != nil {
			less = func(a, b T) int { return f.Amount(a).Cmp(f.Amount(b)) }
		}
	case SortAmountDesc:
		if f.Amount != nil {
			less = func(a, b T) int { return f.Amount(b).Cmp(f.Amount(a)) }
		}
	case SortNewest:
		if f.Time != nil {
			less = func(a, b T) int { return f.Time(b).Compare(f.Time(a)) }
		}
	case SortOldest:
		if f.Time != nil {
			less = func(a, b T) int { return f.Time(a).Compare(f.Time(b)) }
		}
	case SortRelevance:
		if f.Relevance != nil {
			less = func(a, b T) int { return cmp.Compare(f.Relevance(b), f.Relevance(a)) }
		}
	}
	if less == nil {
		*ignored = append(*ignored, &FilterError{Filter: "sort", Value: string(key)})
	}
	return less
}
