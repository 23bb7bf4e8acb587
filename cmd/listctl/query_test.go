package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"vetrina/internal/backend"
	"vetrina/internal/core"
	"vetrina/internal/listing"
)

func TestQueryKind(t *testing.T) {
	ctx := context.Background()
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backend.Config{Type: backend.MemoryBackend, CacheSize: 4})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	inv := core.Invoice{
		ID: "i1", Number: "2025-001", Customer: "Rossi", Status: "partially_paid",
		Amount: core.Money{Cents: 10000}, Paid: core.Money{Cents: 2550}, IssuedOn: core.NewDate(2025, 2, 1),
	}
	if _, err := res.Backend.Invoices.Create(ctx, inv); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var out bytes.Buffer
	q := listing.Query{Page: 1, PageSize: 10, Status: "bogus"}
	if err := queryKind(ctx, res.Backend, core.KindInvoices, q, &out, false); err != nil {
		t.Fatalf("queryKind: %v", err)
	}
	text := out.String()
	for _, want := range []string{"i1", "Page 1 of 1", "outstanding", "74.5", "ignored"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	out.Reset()
	if err := queryKind(ctx, res.Backend, core.KindEvents, q, &out, true); err != nil {
		t.Fatalf("queryKind json: %v", err)
	}
	if !strings.Contains(out.String(), `"total_matches": 0`) || !strings.Contains(out.String(), `"ignored_filters"`) {
		t.Errorf("unexpected json output:\n%s", out.String())
	}

	if err := queryKind(ctx, res.Backend, "widgets", q, &out, false); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := queryKind(ctx, res.Backend, core.KindProducts, listing.Query{Page: 1}, &out, false); err == nil {
		t.Error("expected error for zero page size")
	}
}

func TestWriteResultEmpty(t *testing.T) {
	var out bytes.Buffer
	res := listing.Result[core.Event]{Page: 1, TotalPages: 1}
	if err := writeResult(&out, res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "No results.") {
		t.Errorf("unexpected output %q", out.String())
	}
}
