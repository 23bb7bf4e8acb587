package backend

import (
	"context"
	"time"

	"vetrina/internal/amqp"
	"vetrina/internal/cache"
	"vetrina/internal/catalog"
	"vetrina/internal/category"
	"vetrina/internal/core"
	"vetrina/internal/services"
	"vetrina/internal/sheets"
	"vetrina/internal/worker"
)

// Backend holds one listing service per kind, built over the same storage
// and sharing the category table.
type Backend struct {
	Type       BackendType
	Categories *category.Normalizer
	Catalog    *catalog.Catalog

	Products     *services.ListingService[core.Product]
	Fundraisers  *services.ListingService[core.Fundraiser]
	Events       *services.ListingService[core.Event]
	Transactions *services.ListingService[core.Transaction]
	Invoices     *services.ListingService[core.Invoice]
	Search       *services.ListingService[core.SearchResult]

	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	Caches    *cache.Manager
}

// Targets exposes the services to the change worker. Search results are
// never imported from a sheet.
func (b *Backend) Targets() []worker.Target {
	return []worker.Target{
		worker.Bind(b.Products, sheets.ParseProducts),
		worker.Bind(b.Fundraisers, sheets.ParseFundraisers),
		worker.Bind(b.Events, sheets.ParseEvents),
		worker.Bind(b.Transactions, sheets.ParseTransactions),
		worker.Bind(b.Invoices, sheets.ParseInvoices),
		worker.Bind(b.Search, nil),
	}
}

// Ready reports whether the storage answers. All services share it, so
// asking one is enough.
func (b *Backend) Ready(ctx context.Context) error {
	return b.Products.Ready(ctx)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific; empty starts with no records
	DataDirectory string

	CategoryAliasesFile string
	CacheTTL            time.Duration
	CacheSize           int

	// Optional change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
