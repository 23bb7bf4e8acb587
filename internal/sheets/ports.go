// Package sheets imports listing records from spreadsheet tabs.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"vetrina/internal/core"
)

// RecordSource reads the raw cell matrix of one tab. The first row holds
// the column headers.
type RecordSource interface {
	Rows(ctx context.Context, tab string) ([][]any, error)
}

// Tab binds a kind of record to the tab it is imported from.
type Tab struct {
	Kind core.Kind
	Name string
}

var ErrInvalidTabs = errors.New("invalid sheet tab mapping")

// ParseTabs reads a mapping like "products=Products,events=Eventi".
// A bare kind uses the kind as tab name.
func ParseTabs(s string) ([]Tab, error) {
	var tabs []Tab
	seen := map[core.Kind]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, name, found := strings.Cut(part, "=")
		k := core.Kind(strings.ToLower(strings.TrimSpace(kind)))
		name = strings.TrimSpace(name)
		if !found {
			name = string(k)
		}
		if !k.IsValid() || k == core.KindSearch || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTabs, part)
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidTabs, k)
		}
		seen[k] = true
		tabs = append(tabs, Tab{Kind: k, Name: name})
	}
	return tabs, nil
}

// FetchAll reads every tab concurrently. The first error cancels the
// remaining reads.
func FetchAll(ctx context.Context, src RecordSource, tabs []Tab) (map[core.Kind][][]any, error) {
	results := make([][][]any, len(tabs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, tab := range tabs {
		g.Go(func() error {
			rows, err := src.Rows(ctx, tab.Name)
			if err != nil {
				return fmt.Errorf("read tab %q: %w", tab.Name, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[core.Kind][][]any, len(tabs))
	for i, tab := range tabs {
		out[tab.Kind] = results[i]
	}
	return out, nil
}
