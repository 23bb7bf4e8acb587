// Package worker keeps listings fresh: it drops cached results when another
// process announces a change and periodically imports records from the
// configured spreadsheet tabs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vetrina/internal/amqp"
	"vetrina/internal/core"
	applog "vetrina/internal/log"
	"vetrina/internal/services"
	"vetrina/internal/sheets"
)

var ErrNoSource = errors.New("no record source configured")

// Target is one kind of record the worker maintains.
type Target interface {
	Kind() core.Kind
	Invalidate()
	ImportRows(ctx context.Context, values [][]any) (services.ImportStats, []error, error)
}

type binding[T core.Record] struct {
	*services.ListingService[T]
	parse func([][]any) ([]T, []error)
}

// Bind makes a listing service a worker target. parse may be nil for kinds
// that are never imported from a sheet.
func Bind[T core.Record](svc *services.ListingService[T], parse func([][]any) ([]T, []error)) Target {
	return binding[T]{ListingService: svc, parse: parse}
}

func (b binding[T]) ImportRows(ctx context.Context, values [][]any) (services.ImportStats, []error, error) {
	if b.parse == nil {
		return services.ImportStats{}, nil, fmt.Errorf("%s cannot be imported from a sheet", b.Kind())
	}
	recs, rowErrs := b.parse(values)
	stats, err := b.Import(ctx, recs)
	stats.Skipped += len(rowErrs)
	return stats, rowErrs, err
}

type Config struct {
	// Interval between two imports; zero disables the periodic import.
	Interval time.Duration
	Tabs     []sheets.Tab
}

// ChangeWorker reacts to change events and runs sheet imports.
type ChangeWorker struct {
	source  sheets.RecordSource
	targets map[core.Kind]Target
	config  Config
	logger  *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewChangeWorker builds a worker. source may be nil when no spreadsheet is
// configured; the worker then only handles change events.
func NewChangeWorker(source sheets.RecordSource, config Config, targets ...Target) *ChangeWorker {
	w := &ChangeWorker{
		source:  source,
		targets: make(map[core.Kind]Target, len(targets)),
		config:  config,
		logger:  applog.FromContext(context.Background()).WithComponent(applog.ComponentWorker),
	}
	for _, t := range targets {
		w.targets[t.Kind()] = t
	}
	return w
}

// HandleRecordChanged drops the cached listings of the changed kind.
// Events for kinds this process does not serve are acknowledged and ignored.
func (w *ChangeWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	target, ok := w.targets[msg.Kind]
	if !ok {
		w.logger.DebugContext(ctx, "Ignoring change for unserved kind", applog.FieldKind, msg.Kind)
		return nil
	}
	target.Invalidate()
	w.logger.DebugContext(ctx, "Invalidated cached listings",
		applog.NewFields().WithRecord(string(msg.Kind), msg.ID).WithOperation(string(msg.Op)).ToSlice()...)
	return nil
}

// ImportAll reads every configured tab and upserts its records. Rows that
// fail to parse are logged and counted as skipped. A tab whose kind has no
// target is skipped.
func (w *ChangeWorker) ImportAll(ctx context.Context) (map[core.Kind]services.ImportStats, error) {
	if w.source == nil {
		return nil, ErrNoSource
	}

	var tabs []sheets.Tab
	for _, tab := range w.config.Tabs {
		if _, ok := w.targets[tab.Kind]; ok {
			tabs = append(tabs, tab)
			continue
		}
		w.logger.WarnContext(ctx, "No service for sheet tab", applog.FieldKind, tab.Kind, applog.FieldTab, tab.Name)
	}

	values, err := sheets.FetchAll(ctx, w.source, tabs)
	if err != nil {
		return nil, err
	}

	out := make(map[core.Kind]services.ImportStats, len(tabs))
	for _, tab := range tabs {
		stats, rowErrs, err := w.targets[tab.Kind].ImportRows(ctx, values[tab.Kind])
		out[tab.Kind] = stats
		for _, rowErr := range rowErrs {
			w.logger.WarnContext(ctx, "Skipping sheet row",
				applog.NewFields().WithRecord(string(tab.Kind), "").WithTab(tab.Name).WithError(rowErr).ToSlice()...)
		}
		if err != nil {
			return out, fmt.Errorf("import tab %q: %w", tab.Name, err)
		}
		w.logger.InfoContext(ctx, "Imported sheet tab",
			applog.FieldKind, tab.Kind,
			applog.FieldTab, tab.Name,
			"created", stats.Created,
			"updated", stats.Updated,
			"skipped", stats.Skipped)
	}
	return out, nil
}

// Start runs an import immediately and then every Interval. Returns an
// error if already running or if the periodic import is disabled.
func (w *ChangeWorker) Start(ctx context.Context) error {
	if w.config.Interval <= 0 {
		return errors.New("sync interval must be positive")
	}
	if w.source == nil {
		return ErrNoSource
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("change worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Change worker started",
		"interval", w.config.Interval,
		"tabs", len(w.config.Tabs))
	return nil
}

// Stop signals the loop and waits for the running import to finish.
func (w *ChangeWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Change worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Change worker stop timed out")
		return ctx.Err()
	}
}

func (w *ChangeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ChangeWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.importOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.importOnce(ctx)
		}
	}
}

func (w *ChangeWorker) importOnce(ctx context.Context) {
	start := time.Now()
	if _, err := w.ImportAll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Sheet import failed",
			applog.NewFields().WithOperation(applog.OpImport).WithError(err).ToSlice()...)
		return
	}
	w.logger.DebugContext(ctx, "Sheet import finished", applog.FieldDuration, time.Since(start).Milliseconds())
}
