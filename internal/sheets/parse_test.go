package sheets

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vetrina/internal/core"
)

func TestParseProducts(t *testing.T) {
	values := [][]any{
		{"ID", "Name", "Brand", "Category", "Status", "Price", "Created At"},
		{"p1", "Desk lamp", "Lumen", "Home & Garden", "in_stock", "€ 1.234,50", "2025-03-01"},
		{"", "", "", "", "", "", ""},
		{"p2", "Mug", "", "Food", "archived", "6,5", "02/03/2025 10:30"},
		{"p3", "Broken", "", "", "in_stock", "abc", ""},
	}
	got, errs := ParseProducts(values)
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d (%v)", len(got), errs)
	}
	if got[0].Price.Cents != 123450 || got[0].Category != "Home & Garden" {
		t.Errorf("unexpected first product: %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created at = %v", got[0].CreatedAt)
	}
	if got[1].Price.Cents != 650 || got[1].CreatedAt.Month() != time.March || got[1].CreatedAt.Hour() != 10 {
		t.Errorf("unexpected second product: %+v", got[1])
	}

	if len(errs) != 1 {
		t.Fatalf("expected 1 row error, got %v", errs)
	}
	var rowErr *RowError
	if !errors.As(errs[0], &rowErr) || rowErr.Row != 5 {
		t.Errorf("expected error on row 5, got %v", errs[0])
	}
	if !errors.Is(errs[0], core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", errs[0])
	}
}

func TestParseMissingColumn(t *testing.T) {
	_, errs := ParseInvoices([][]any{{"id", "number", "amount"}})
	if len(errs) != 1 || !errors.Is(errs[0], ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", errs)
	}
	got, errs := ParseInvoices(nil)
	if got != nil || errs != nil {
		t.Fatalf("empty tab should parse to nothing")
	}
}

func TestParseTransactionsAndInvoices(t *testing.T) {
	txs, errs := ParseTransactions([][]any{
		{"id", "type", "status", "description", "amount", "date"},
		{"t1", "Payment", "Completed", "Groceries", "45.30", "2025-04-02T08:00:00Z"},
		{"t2", "deposit", "pending", "Salary", "2,500.00", "2025-04-01"},
	})
	if len(errs) != 0 || len(txs) != 2 {
		t.Fatalf("txs=%v errs=%v", txs, errs)
	}
	if txs[0].Type != core.TxPayment || txs[0].Status != "completed" || txs[0].Amount.Cents != 4530 {
		t.Errorf("unexpected tx: %+v", txs[0])
	}
	if txs[1].Amount.Cents != 250000 {
		t.Errorf("thousands separator not handled: %+v", txs[1])
	}

	invs, errs := ParseInvoices([][]any{
		{"id", "number", "customer", "status", "amount", "paid", "issued_on", "due_on"},
		{"i1", "2025-001", "Rossi", "Partially_Paid", "100", "40", "2025-01-10", "2025-02-10"},
		{"i2", "2025-002", "Verdi", "sent", "50", "", "10/01/2025", "not a date"},
	})
	if len(invs) != 1 || len(errs) != 1 {
		t.Fatalf("invs=%v errs=%v", invs, errs)
	}
	if invs[0].Status != "partially_paid" || invs[0].Outstanding().Cents != 6000 {
		t.Errorf("unexpected invoice: %+v", invs[0])
	}
	if invs[0].DueOn.Month() != time.February {
		t.Errorf("due on = %v", invs[0].DueOn)
	}
}

func TestParseFundraisersAndEvents(t *testing.T) {
	frs, errs := ParseFundraisers([][]any{
		{"id", "title", "category", "status", "goal", "raised"},
		{"f1", "Roof", "Animals & Pets", "active", "1000", "250,75"},
	})
	if len(errs) != 0 || len(frs) != 1 || frs[0].Raised.Cents != 25075 || frs[0].Goal.Cents != 100000 {
		t.Fatalf("frs=%+v errs=%v", frs, errs)
	}

	evs, errs := ParseEvents([][]any{
		{"id", "title", "venue", "status", "price", "starts-at"},
		{"e1", "Jazz night", "Blue Note", "scheduled", "", "2025-06-01 21:00"},
	})
	if len(errs) != 0 || len(evs) != 1 {
		t.Fatalf("evs=%+v errs=%v", evs, errs)
	}
	if evs[0].Price.Cents != 0 || evs[0].StartsAt.Hour() != 21 {
		t.Errorf("unexpected event: %+v", evs[0])
	}
}

func TestParseTabs(t *testing.T) {
	tabs, err := ParseTabs(" products = Prodotti , events,,Invoices=2025 Fatture")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Tab{
		{Kind: core.KindProducts, Name: "Prodotti"},
		{Kind: core.KindEvents, Name: "events"},
		{Kind: core.KindInvoices, Name: "2025 Fatture"},
	}
	if len(tabs) != len(want) {
		t.Fatalf("tabs = %+v", tabs)
	}
	for i := range want {
		if tabs[i] != want[i] {
			t.Errorf("tab %d = %+v, want %+v", i, tabs[i], want[i])
		}
	}

	for _, bad := range []string{"widgets=W", "search=S", "products=", "events,events=E"} {
		if _, err := ParseTabs(bad); !errors.Is(err, ErrInvalidTabs) {
			t.Errorf("ParseTabs(%q) error = %v", bad, err)
		}
	}
	if tabs, err := ParseTabs(""); err != nil || len(tabs) != 0 {
		t.Errorf("empty mapping: %v %v", tabs, err)
	}
}

type fakeSource struct {
	rows  map[string][][]any
	fail  string
	calls atomic.Int32
}

func (f *fakeSource) Rows(ctx context.Context, tab string) ([][]any, error) {
	f.calls.Add(1)
	if tab == f.fail {
		return nil, errors.New("quota exceeded")
	}
	return f.rows[tab], ctx.Err()
}

func TestFetchAll(t *testing.T) {
	src := &fakeSource{rows: map[string][][]any{
		"P": {{"id"}, {"p1"}},
		"E": {{"id"}},
	}}
	tabs := []Tab{{Kind: core.KindProducts, Name: "P"}, {Kind: core.KindEvents, Name: "E"}}

	got, err := FetchAll(context.Background(), src, tabs)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got[core.KindProducts]) != 2 || len(got[core.KindEvents]) != 1 {
		t.Fatalf("unexpected result: %v", got)
	}

	src.fail = "E"
	if _, err := FetchAll(context.Background(), src, tabs); err == nil {
		t.Fatal("expected error when a tab fails")
	}
}
