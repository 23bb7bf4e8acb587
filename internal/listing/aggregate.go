package listing

import (
	"github.com/shopspring/decimal"
)

// DefaultPlaces is the rounding applied to averages when an Aggregate does
// not set Places. Use WithPlaces(0) to round to whole units.
const DefaultPlaces int32 = 2

// Reducer folds the selected values of an aggregate.
type Reducer int

const (
	Sum Reducer = iota
	Average
	Count
)

func (r Reducer) String() string {
	switch r {
	case Sum:
		return "sum"
	case Average:
		return "average"
	case Count:
		return "count"
	}
	return "unknown"
}

// Aggregate declares one named rollup. Where selects the rows (nil keeps
// all of them); Value extracts the number to fold and is ignored by Count.
type Aggregate[T any] struct {
	Name    string
	Where   func(T) bool
	Value   func(T) decimal.Decimal
	Reducer Reducer
	// Places is the rounding of an Average; nil means DefaultPlaces.
	Places *int32
}

// WithPlaces returns a copy of a rounded to places decimal places.
func (a Aggregate[T]) WithPlaces(places int32) Aggregate[T] {
	a.Places = &places
	return a
}

// Derived computes a value from the aggregates already computed, e.g. a
// net total or a completion percentage.
type Derived struct {
	Name    string
	Compute func(values map[string]decimal.Decimal) decimal.Decimal
}

// SumOf is shorthand for a Sum aggregate.
func SumOf[T any](name string, where func(T) bool, value func(T) decimal.Decimal) Aggregate[T] {
	return Aggregate[T]{Name: name, Where: where, Value: value, Reducer: Sum}
}

// AverageOf is shorthand for an Average aggregate rounded to DefaultPlaces.
func AverageOf[T any](name string, where func(T) bool, value func(T) decimal.Decimal) Aggregate[T] {
	return Aggregate[T]{Name: name, Where: where, Value: value, Reducer: Average}
}

// CountOf is shorthand for a Count aggregate.
func CountOf[T any](name string, where func(T) bool) Aggregate[T] {
	return Aggregate[T]{Name: name, Where: where, Reducer: Count}
}

// Compute folds every aggregate over rows, then evaluates derived values in
// declaration order. Accumulation is exact decimal arithmetic.
func Compute[T any](rows []T, aggs []Aggregate[T], derived []Derived) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(aggs)+len(derived))
	for _, a := range aggs {
		sum := decimal.Zero
		n := int64(0)
		for _, row := range rows {
			if a.Where != nil && !a.Where(row) {
				continue
			}
			n++
			if a.Reducer != Count && a.Value != nil {
				sum = sum.Add(a.Value(row))
			}
		}
		switch a.Reducer {
		case Count:
			out[a.Name] = decimal.NewFromInt(n)
		case Average:
			if n == 0 {
				out[a.Name] = decimal.Zero
				continue
			}
			places := DefaultPlaces
			if a.Places != nil {
				places = *a.Places
			}
			out[a.Name] = sum.DivRound(decimal.NewFromInt(n), places)
		default:
			out[a.Name] = sum
		}
	}
	for _, d := range derived {
		out[d.Name] = d.Compute(out)
	}
	return out
}

// Percent returns part/whole*100 rounded to places, or zero when whole is zero.
func Percent(part, whole decimal.Decimal, places int32) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).DivRound(whole, places)
}
