package sheets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vetrina/internal/category"
	"vetrina/internal/core"
)

var ErrMissingColumn = errors.New("missing column")

// RowError reports a row that could not be parsed. Row is 1-based and
// counts the header, so it matches the spreadsheet row number.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Row is one data row addressed by header name.
type Row struct {
	cols  map[string]int
	cells []any
}

// headerKey folds "Created At", "created-at" and "created_at" together.
func headerKey(h string) string {
	return strings.ReplaceAll(strings.ReplaceAll(category.LookupKey(h), " ", "_"), "-", "_")
}

func (r Row) String(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.cells) || r.cells[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(r.cells[i]))
}

// Money parses a euro amount; an empty cell is zero.
func (r Row) Money(col string) (core.Money, error) {
	s := r.String(col)
	if s == "" {
		return core.Money{}, nil
	}
	m, err := core.ParseAmount(stripThousands(s))
	if err != nil {
		return core.Money{}, fmt.Errorf("%s %q: %w", col, s, err)
	}
	return m, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02", "02/01/2006 15:04", "02/01/2006"}

// Time parses a date or timestamp; an empty cell is the zero time.
func (r Row) Time(col string) (time.Time, error) {
	s := r.String(col)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s %q: unrecognised date", col, s)
}

// stripThousands drops the grouping separator when both "." and "," occur,
// e.g. "1.234,56" and "1,234.56".
func stripThousands(s string) string {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && dot < comma:
		return strings.ReplaceAll(s, ".", "")
	case dot >= 0 && comma >= 0:
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}

// Parse maps the data rows of values through fn. Blank rows are skipped;
// rows fn rejects are reported and skipped. required lists the headers
// that must be present.
func Parse[T any](values [][]any, required []string, fn func(Row) (T, error)) ([]T, []error) {
	if len(values) == 0 {
		return nil, nil
	}
	cols := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		if k := headerKey(fmt.Sprint(h)); k != "" {
			if _, dup := cols[k]; !dup {
				cols[k] = i
			}
		}
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, []error{fmt.Errorf("%w: %s", ErrMissingColumn, col)}
		}
	}

	var (
		out  []T
		errs []error
	)
	for i, cells := range values[1:] {
		if blank(cells) {
			continue
		}
		rec, err := fn(Row{cols: cols, cells: cells})
		if err != nil {
			errs = append(errs, &RowError{Row: i + 2, Err: err})
			continue
		}
		out = append(out, rec)
	}
	return out, errs
}

func blank(cells []any) bool {
	for _, c := range cells {
		if c != nil && strings.TrimSpace(fmt.Sprint(c)) != "" {
			return false
		}
	}
	return true
}

func ParseProducts(values [][]any) ([]core.Product, []error) {
	return Parse(values, []string{"id", "name", "price"}, func(r Row) (core.Product, error) {
		p := core.Product{
			ID:          r.String("id"),
			Name:        r.String("name"),
			Brand:       r.String("brand"),
			Description: r.String("description"),
			Category:    r.String("category"),
			Status:      r.String("status"),
		}
		var err error
		if p.Price, err = r.Money("price"); err != nil {
			return p, err
		}
		p.CreatedAt, err = r.Time("created_at")
		return p, err
	})
}

func ParseFundraisers(values [][]any) ([]core.Fundraiser, []error) {
	return Parse(values, []string{"id", "title", "goal"}, func(r Row) (core.Fundraiser, error) {
		f := core.Fundraiser{
			ID:          r.String("id"),
			Title:       r.String("title"),
			Organizer:   r.String("organizer"),
			Description: r.String("description"),
			Category:    r.String("category"),
			Status:      r.String("status"),
		}
		var err error
		if f.Goal, err = r.Money("goal"); err != nil {
			return f, err
		}
		if f.Raised, err = r.Money("raised"); err != nil {
			return f, err
		}
		f.CreatedAt, err = r.Time("created_at")
		return f, err
	})
}

func ParseEvents(values [][]any) ([]core.Event, []error) {
	return Parse(values, []string{"id", "title", "starts_at"}, func(r Row) (core.Event, error) {
		e := core.Event{
			ID:          r.String("id"),
			Title:       r.String("title"),
			Venue:       r.String("venue"),
			Description: r.String("description"),
			Category:    r.String("category"),
			Status:      r.String("status"),
		}
		var err error
		if e.Price, err = r.Money("price"); err != nil {
			return e, err
		}
		e.StartsAt, err = r.Time("starts_at")
		return e, err
	})
}

func ParseTransactions(values [][]any) ([]core.Transaction, []error) {
	return Parse(values, []string{"id", "type", "amount"}, func(r Row) (core.Transaction, error) {
		t := core.Transaction{
			ID:           r.String("id"),
			Type:         strings.ToLower(r.String("type")),
			Status:       strings.ToLower(r.String("status")),
			Description:  r.String("description"),
			Counterparty: r.String("counterparty"),
		}
		var err error
		if t.Amount, err = r.Money("amount"); err != nil {
			return t, err
		}
		t.OccurredAt, err = r.Time("date")
		return t, err
	})
}

func ParseInvoices(values [][]any) ([]core.Invoice, []error) {
	return Parse(values, []string{"id", "number", "amount", "issued_on"}, func(r Row) (core.Invoice, error) {
		inv := core.Invoice{
			ID:       r.String("id"),
			Number:   r.String("number"),
			Customer: r.String("customer"),
			Status:   strings.ToLower(r.String("status")),
		}
		var err error
		if inv.Amount, err = r.Money("amount"); err != nil {
			return inv, err
		}
		if inv.Paid, err = r.Money("paid"); err != nil {
			return inv, err
		}
		issued, err := r.Time("issued_on")
		if err != nil {
			return inv, err
		}
		due, err := r.Time("due_on")
		if err != nil {
			return inv, err
		}
		inv.IssuedOn, inv.DueOn = core.Date{Time: issued}, core.Date{Time: due}
		return inv, nil
	})
}
