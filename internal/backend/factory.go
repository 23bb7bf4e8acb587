package backend

import (
	"context"
	"errors"
	"fmt"

	"vetrina/internal/amqp"
	"vetrina/internal/cache"
	"vetrina/internal/catalog"
	"vetrina/internal/category"
	"vetrina/internal/core"
	"vetrina/internal/listing"
	applog "vetrina/internal/log"
	"vetrina/internal/services"
	"vetrina/internal/storage"
	"vetrina/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	categories, err := category.FromFileOrDefault(config.CategoryAliasesFile)
	if err != nil {
		return nil, fmt.Errorf("load category aliases: %w", err)
	}
	cat, err := catalog.New(categories)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	var stores storeSource
	var cleanups []CleanupFunc
	switch config.Type {
	case SQLiteBackend:
		db, err := storage.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		cleanups = append(cleanups, db.Close)
		stores = storeSource{db: db}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		stores = storeSource{dataDir: config.DataDirectory}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP client (optional)
	var client *amqp.Client
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", applog.FieldError, err)
			client = nil
		} else {
			publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	caches := cache.NewManager()
	b := &Backend{
		Type:       config.Type,
		Categories: categories,
		Catalog:    cat,
		Publisher:  client,
		Caches:     caches,
	}
	w := wiring{config: config, stores: stores, publisher: publisher, caches: caches}

	err = errors.Join(
		build(&b.Products, w, core.KindProducts, cat.Products),
		build(&b.Fundraisers, w, core.KindFundraisers, cat.Fundraisers),
		build(&b.Events, w, core.KindEvents, cat.Events),
		build(&b.Transactions, w, core.KindTransactions, cat.Transactions),
		build(&b.Invoices, w, core.KindInvoices, cat.Invoices),
		build(&b.Search, w, core.KindSearch, cat.Search),
	)

	cleanup := func() error {
		caches.Stop()
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i]())
		}
		return errors.Join(errs...)
	}
	if err != nil {
		cleanup()
		return nil, err
	}

	if config.CacheTTL > 0 {
		caches.StartCleanup(config.CacheTTL)
	}

	f.logger.InfoContext(ctx, "Backend ready",
		"type", config.Type,
		"categories", len(categories.Keys()),
		"amqp_enabled", client != nil)

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

// storeSource opens repositories on the SQLite database, or in memory when
// db is nil.
type storeSource struct {
	db      *storage.DB
	dataDir string
}

type wiring struct {
	config    Config
	stores    storeSource
	publisher services.Publisher
	caches    *cache.Manager
}

func openRepository[T core.Record](s storeSource, kind core.Kind) (storage.Repository[T], error) {
	if s.db != nil {
		return storage.NewSQLiteStore[T](s.db, kind), nil
	}
	if s.dataDir == "" {
		return memory.New[T](kind), nil
	}
	store, err := memory.NewFromFiles[T](s.dataDir, kind)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", kind, err)
	}
	return store, nil
}

func build[T core.Record](dst **services.ListingService[T], w wiring, kind core.Kind, engine *listing.Engine[T]) error {
	repo, err := openRepository[T](w.stores, kind)
	if err != nil {
		return err
	}

	var results cache.Cache[listing.Result[T]]
	if w.config.CacheTTL > 0 {
		lru := cache.NewLRUCache[listing.Result[T]](w.config.CacheSize, w.config.CacheTTL)
		w.caches.Register(lru)
		results = lru
	}

	*dst = services.NewListingService(kind, repo, engine, results, w.publisher).
		WithDefaultSort(catalog.DefaultSort(kind))
	return nil
}
