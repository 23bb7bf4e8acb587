// Package http serves the listing API.
//
// This file implements utilities for parsing and validating HTTP request data:
// listing query parameters and JSON record bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vetrina/internal/listing"
)

// maxBodyBytes bounds the size of a record sent to the API.
const maxBodyBytes = 1 << 20

// ErrBadBody is returned when a request body cannot be decoded.
var ErrBadBody = errors.New("malformed request body")

// PageLimits holds the page size applied when none is requested and the
// largest page size a client may ask for.
type PageLimits struct {
	Default int
	Max     int
}

// ParseListQuery builds a listing query from URL parameters.
//
// The search term is read from q, falling back to search; type is accepted
// in place of category for transactions. A missing page means the first
// one. A missing page_size uses the default; one above the maximum is
// capped. Non-numeric page values and non-positive page sizes are
// reported as listing.ErrInvalidQuery.
func ParseListQuery(values url.Values, limits PageLimits) (listing.Query, error) {
	q := listing.Query{
		Search:   sanitizeInput(firstNonEmpty(values.Get("q"), values.Get("search"))),
		Category: sanitizeInput(firstNonEmpty(values.Get("category"), values.Get("type"))),
		Status:   sanitizeInput(values.Get("status")),
		Sort:     listing.ParseSortKey(values.Get("sort")),
		Page:     1,
		PageSize: limits.Default,
	}

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("%w: page %q is not a number", listing.ErrInvalidQuery, v)
		}
		q.Page = page
	}
	if v := strings.TrimSpace(values.Get("page_size")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("%w: page_size %q is not a number", listing.ErrInvalidQuery, v)
		}
		q.PageSize = size
	}
	if limits.Max > 0 && q.PageSize > limits.Max {
		q.PageSize = limits.Max
	}
	return q, q.Validate()
}

// DecodeRecord reads one JSON record from the request body. Unknown fields
// and trailing data are rejected.
func DecodeRecord[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var rec T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return rec, fmt.Errorf("%w: unexpected data after record", ErrBadBody)
	}
	return rec, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
