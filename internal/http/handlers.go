package http

import (
	"errors"
	"net/http"
	"strings"

	"vetrina/internal/core"
	"vetrina/internal/listing"
	applog "vetrina/internal/log"
	"vetrina/internal/services"
)

// listResponse is the JSON form of one listing page.
type listResponse[T any] struct {
	listing.Result[T]
	HasPrev        bool     `json:"has_prev"`
	HasNext        bool     `json:"has_next"`
	IgnoredFilters []string `json:"ignored_filters"`
}

func newListResponse[T any](res listing.Result[T]) listResponse[T] {
	if res.Items == nil {
		res.Items = []T{}
	}
	return listResponse[T]{
		Result:         res,
		HasPrev:        res.HasPrev(),
		HasNext:        res.HasNext(),
		IgnoredFilters: services.ErrorStrings(res.Ignored),
	}
}

// kindHandlers serves the CRUD and listing routes of one record kind.
type kindHandlers[T core.Record] struct {
	svc    *services.ListingService[T]
	limits PageLimits
	events *applog.StructuredLogger
}

// mountKind registers /api/{kind} and /api/{kind}/{id} on mux.
func mountKind[T core.Record](mux *http.ServeMux, svc *services.ListingService[T], limits PageLimits, events *applog.StructuredLogger) {
	if svc == nil {
		return
	}
	h := &kindHandlers[T]{svc: svc, limits: limits, events: events}
	base := "/api/" + string(svc.Kind())

	mux.HandleFunc("GET "+base, h.handleList)
	mux.HandleFunc("POST "+base, h.handleCreate)
	mux.HandleFunc("GET "+base+"/{id}", h.handleGet)
	mux.HandleFunc("PUT "+base+"/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE "+base+"/{id}", h.handleDelete)
}

func (h *kindHandlers[T]) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := ParseListQuery(r.URL.Query(), h.limits)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	res, err := h.svc.Query(r.Context(), q)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newListResponse(res)).Write(w)
}

func (h *kindHandlers[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rec).Write(w)
}

func (h *kindHandlers[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	rec, err := DecodeRecord[T](w, r)
	if err != nil {
		BadRequestError("invalid record", err.Error()).Write(w)
		return
	}

	created, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	h.events.LogRecordChanged(r.Context(), applog.OpCreate, string(h.svc.Kind()), created.Key())

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/"+string(h.svc.Kind())+"/"+created.Key()).
		Body(created).
		Write(w)
}

func (h *kindHandlers[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := DecodeRecord[T](w, r)
	if err != nil {
		BadRequestError("invalid record", err.Error()).Write(w)
		return
	}
	if err := bindID(&rec, id); err != nil {
		BadRequestError("invalid record", err.Error()).Write(w)
		return
	}

	if err := h.svc.Update(r.Context(), rec); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	h.events.LogRecordChanged(r.Context(), applog.OpUpdate, string(h.svc.Kind()), id)
	NewJSONResponse().Body(rec).Write(w)
}

func (h *kindHandlers[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	h.events.LogRecordChanged(r.Context(), applog.OpDelete, string(h.svc.Kind()), id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

var errIDMismatch = errors.New("id in body does not match the URL")

// bindID makes the path id authoritative. A body carrying a different id
// is rejected.
func bindID[T core.Record](rec *T, id string) error {
	if body := strings.TrimSpace((*rec).Key()); body != "" && body != id {
		return errIDMismatch
	}
	if ider, ok := any(rec).(core.Identifier); ok {
		ider.AssignID(id)
	}
	return nil
}
