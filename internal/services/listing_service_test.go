package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vetrina/internal/amqp"
	"vetrina/internal/cache"
	"vetrina/internal/catalog"
	"vetrina/internal/core"
	"vetrina/internal/listing"
	"vetrina/internal/storage"
	"vetrina/internal/storage/memory"
)

type event struct {
	kind core.Kind
	id   string
	op   amqp.Op
}

type fakePublisher struct {
	events []event
	err    error
}

func (p *fakePublisher) PublishRecordChanged(_ context.Context, kind core.Kind, id string, op amqp.Op) error {
	p.events = append(p.events, event{kind, id, op})
	return p.err
}

type countingRepo struct {
	storage.Repository[core.Product]
	lists int
}

func (r *countingRepo) List(ctx context.Context) ([]core.Product, error) {
	r.lists++
	return r.Repository.List(ctx)
}

// pausingRepo holds the first List call after its snapshot is taken until
// release is closed.
type pausingRepo struct {
	storage.Repository[core.Product]
	pause   atomic.Bool
	listed  chan struct{}
	release chan struct{}
}

func (r *pausingRepo) List(ctx context.Context) ([]core.Product, error) {
	recs, err := r.Repository.List(ctx)
	if r.pause.CompareAndSwap(true, false) {
		close(r.listed)
		<-r.release
	}
	return recs, err
}

func product(id, category string, cents int64) core.Product {
	return core.Product{
		ID:        id,
		Name:      "Item " + id,
		Category:  category,
		Status:    "in_stock",
		Price:     core.Money{Cents: cents},
		CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newProductService(t *testing.T, pub Publisher, seed ...core.Product) (*ListingService[core.Product], *countingRepo) {
	t.Helper()
	repo := &countingRepo{Repository: memory.New(core.KindProducts, seed...)}
	results := cache.NewLRUCache[listing.Result[core.Product]](16, time.Minute)
	return NewListingService[core.Product](core.KindProducts, repo, catalog.Products(nil), results, pub), repo
}

var firstPage = listing.Query{Page: 1, PageSize: 10}

func TestListingService_QueryIsCachedUntilMutation(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newProductService(t, pub, product("a", "electronics", 1000))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := svc.Query(ctx, firstPage)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if res.TotalMatches != 1 {
			t.Fatalf("matches = %d", res.TotalMatches)
		}
	}
	if repo.lists != 1 {
		t.Fatalf("repository listed %d times, want 1", repo.lists)
	}

	created, err := svc.Create(ctx, product("", "electronics", 500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	res, err := svc.Query(ctx, firstPage)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.TotalMatches != 2 || repo.lists != 2 {
		t.Fatalf("matches = %d, lists = %d", res.TotalMatches, repo.lists)
	}
	if len(pub.events) != 1 || pub.events[0] != (event{core.KindProducts, created.ID, amqp.OpCreated}) {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestListingService_QueryRacingMutationIsNotCached(t *testing.T) {
	repo := &pausingRepo{
		Repository: memory.New[core.Product](core.KindProducts),
		listed:     make(chan struct{}),
		release:    make(chan struct{}),
	}
	repo.pause.Store(true)
	results := cache.NewLRUCache[listing.Result[core.Product]](16, time.Hour)
	svc := NewListingService[core.Product](core.KindProducts, repo, catalog.Products(nil), results, nil)
	ctx := context.Background()

	type outcome struct {
		res listing.Result[core.Product]
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.Query(ctx, firstPage)
		done <- outcome{res, err}
	}()

	<-repo.listed
	if _, err := svc.Create(ctx, product("p1", "electronics", 1000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	close(repo.release)

	first := <-done
	if first.err != nil {
		t.Fatalf("query: %v", first.err)
	}
	if first.res.TotalMatches != 0 {
		t.Fatalf("query listed before the create saw %d matches", first.res.TotalMatches)
	}

	res, err := svc.Query(ctx, firstPage)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.TotalMatches != 1 {
		t.Fatalf("after create, TotalMatches = %d, want 1", res.TotalMatches)
	}
}

func TestListingService_InvalidQuery(t *testing.T) {
	svc, _ := newProductService(t, nil)
	_, err := svc.Query(context.Background(), listing.Query{Page: 1})
	if !errors.Is(err, listing.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestListingService_PublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newProductService(t, pub)
	if _, err := svc.Create(context.Background(), product("x", "fashion", 100)); err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if _, err := svc.Get(context.Background(), "x"); err != nil {
		t.Fatalf("record not stored: %v", err)
	}
}

func TestListingService_MutationErrors(t *testing.T) {
	svc, _ := newProductService(t, nil, product("a", "fashion", 100))
	ctx := context.Background()

	bad := product("b", "fashion", 100)
	bad.Name = ""
	if _, err := svc.Create(ctx, bad); !errors.Is(err, ErrValidation) || !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, product("a", "fashion", 100)); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := svc.Update(ctx, product("zzz", "fashion", 100)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, "zzz"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestListingService_Import(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newProductService(t, pub, product("a", "fashion", 100))

	invalid := product("c", "fashion", 100)
	invalid.Status = "unknown"
	stats, err := svc.Import(context.Background(), []core.Product{
		product("a", "fashion", 999),
		product("b", "fashion", 200),
		invalid,
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats != (ImportStats{Created: 1, Updated: 1, Skipped: 1}) {
		t.Fatalf("stats = %+v", stats)
	}
	got, _ := svc.Get(context.Background(), "a")
	if got.Price.Cents != 999 {
		t.Fatalf("a not updated: %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].op != amqp.OpImported {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestListingService_DefaultSort(t *testing.T) {
	older := product("old", "fashion", 100)
	newer := product("new", "fashion", 100)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	svc, _ := newProductService(t, nil, older, newer)
	svc.WithDefaultSort(listing.SortNewest)

	res, err := svc.Query(context.Background(), firstPage)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Items[0].ID != "new" {
		t.Fatalf("default sort not applied: %v", res.Items)
	}

	res, err = svc.Query(context.Background(), listing.Query{Sort: listing.SortOldest, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Items[0].ID != "old" {
		t.Fatalf("explicit sort not applied: %v", res.Items)
	}
}

func TestListingService_Ready(t *testing.T) {
	svc, _ := newProductService(t, nil)
	if err := svc.Ready(context.Background()); err != nil {
		t.Fatalf("memory store should always be ready: %v", err)
	}
}
