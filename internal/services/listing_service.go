// Package services orchestrates listings and mutations across the
// repositories, the result cache and the change publisher.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vetrina/internal/amqp"
	"vetrina/internal/cache"
	"vetrina/internal/core"
	"vetrina/internal/listing"
	applog "vetrina/internal/log"
	"vetrina/internal/storage"
)

var ErrValidation = errors.New("validation failed")

// Publisher announces record changes to other processes.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, kind core.Kind, id string, op amqp.Op) error
}

// ListingService serves the listing of one kind of record.
type ListingService[T core.Record] struct {
	kind        core.Kind
	repo        storage.Repository[T]
	engine      *listing.Engine[T]
	results     cache.Cache[listing.Result[T]]
	publisher   Publisher
	defaultSort listing.SortKey
	logger      *applog.Logger

	// generation counts invalidations. A result computed from records
	// listed before an invalidation is not cached.
	cacheMu    sync.Mutex
	generation uint64
}

// NewListingService wires a service. results and publisher may be nil.
func NewListingService[T core.Record](kind core.Kind, repo storage.Repository[T], engine *listing.Engine[T], results cache.Cache[listing.Result[T]], publisher Publisher) *ListingService[T] {
	return &ListingService[T]{
		kind:      kind,
		repo:      repo,
		engine:    engine,
		results:   results,
		publisher: publisher,
		logger:    applog.FromContext(context.Background()).WithComponent(applog.ComponentListing),
	}
}

// WithDefaultSort sets the order used when a query does not name one.
func (s *ListingService[T]) WithDefaultSort(key listing.SortKey) *ListingService[T] {
	s.defaultSort = key
	return s
}

func (s *ListingService[T]) Kind() core.Kind {
	return s.kind
}

func (s *ListingService[T]) Engine() *listing.Engine[T] {
	return s.engine
}

// Query runs q over the current records. Results are cached per query
// until the next mutation.
func (s *ListingService[T]) Query(ctx context.Context, q listing.Query) (listing.Result[T], error) {
	if q.Sort == listing.SortNone {
		q.Sort = s.defaultSort
	}
	if err := q.Validate(); err != nil {
		return listing.Result[T]{}, err
	}

	key := cacheKey(q)
	if s.results != nil {
		if res, ok := s.results.Get(key); ok {
			return res, nil
		}
	}

	gen := s.currentGeneration()
	records, err := s.repo.List(ctx)
	if err != nil {
		return listing.Result[T]{}, fmt.Errorf("list %s: %w", s.kind, err)
	}

	res, err := s.engine.Run(records, q)
	if err != nil {
		return listing.Result[T]{}, err
	}

	if len(res.Ignored) > 0 {
		s.logger.DebugContext(ctx, "Listing filters ignored",
			applog.NewFields().WithListing(string(s.kind), res.TotalMatches, res.Page, ErrorStrings(res.Ignored)).ToSlice()...)
	}

	s.store(gen, key, res)
	return res, nil
}

func (s *ListingService[T]) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// store caches res unless the cache was invalidated since gen was read.
func (s *ListingService[T]) store(gen uint64, key string, res listing.Result[T]) {
	if s.results == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		return
	}
	s.results.Set(key, res)
}

func (s *ListingService[T]) Get(ctx context.Context, id string) (T, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores rec, assigning a fresh id when it has none.
func (s *ListingService[T]) Create(ctx context.Context, rec T) (T, error) {
	if strings.TrimSpace(rec.Key()) == "" {
		if ider, ok := any(&rec).(core.Identifier); ok {
			ider.AssignID(uuid.NewString())
		}
	}
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return rec, fmt.Errorf("create %s: %w", s.kind, err)
	}
	s.changed(ctx, rec.Key(), amqp.OpCreated)
	return rec, nil
}

func (s *ListingService[T]) Update(ctx context.Context, rec T) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("update %s: %w", s.kind, err)
	}
	s.changed(ctx, rec.Key(), amqp.OpUpdated)
	return nil
}

func (s *ListingService[T]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	s.changed(ctx, id, amqp.OpDeleted)
	return nil
}

// ImportStats counts the outcome of an Import.
type ImportStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Import upserts recs. Invalid records are skipped and logged; a storage
// error stops the import. One change event covers the whole batch.
func (s *ListingService[T]) Import(ctx context.Context, recs []T) (ImportStats, error) {
	var stats ImportStats
	defer func() {
		if stats.Created+stats.Updated > 0 {
			s.changed(ctx, "", amqp.OpImported)
		}
	}()

	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			stats.Skipped++
			s.logger.WarnContext(ctx, "Skipping invalid record",
				applog.NewFields().WithRecord(string(s.kind), rec.Key()).WithError(err).ToSlice()...)
			continue
		}
		err := s.repo.Create(ctx, rec)
		if errors.Is(err, storage.ErrConflict) {
			err = s.repo.Update(ctx, rec)
			if err == nil {
				stats.Updated++
				continue
			}
		} else if err == nil {
			stats.Created++
			continue
		}
		return stats, fmt.Errorf("import %s %s: %w", s.kind, rec.Key(), err)
	}
	return stats, nil
}

// Invalidate drops cached results. Called after local mutations and when
// another process announces a change.
func (s *ListingService[T]) Invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if s.results != nil {
		s.results.Clear()
	}
}

// Ready reports whether the backing store is reachable.
func (s *ListingService[T]) Ready(ctx context.Context) error {
	if p, ok := s.repo.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *ListingService[T]) changed(ctx context.Context, id string, op amqp.Op) {
	s.Invalidate()

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping change event", applog.FieldKind, s.kind)
		return
	}
	if err := s.publisher.PublishRecordChanged(ctx, s.kind, id, op); err != nil {
		// The change is already stored; other processes catch up on their TTL.
		s.logger.ErrorContext(ctx, "Failed to publish record change",
			applog.NewFields().WithRecord(string(s.kind), id).WithOperation(string(op)).WithError(err).ToSlice()...)
	}
}

func cacheKey(q listing.Query) string {
	return strings.Join([]string{
		q.Search, q.Category, q.Status, string(q.Sort),
		strconv.Itoa(q.Page), strconv.Itoa(q.PageSize),
	}, "\x1f")
}

// ErrorStrings renders errors for logs and API responses.
func ErrorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
