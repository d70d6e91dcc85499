package orders

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/galley-erp/galley-erp/internal/identity"
	"github.com/galley-erp/galley-erp/internal/platform/httpx"
	"github.com/galley-erp/galley-erp/internal/shared"
)

// Handler exposes the purchase order endpoints.
type Handler struct {
	svc   *Service
	cache *StatsCache
	now   func() time.Time
}

func NewHandler(svc *Service, cache *StatsCache) *Handler {
	return &Handler{svc: svc, cache: cache, now: time.Now}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAny(identity.RoleAdmin, identity.RoleStaff))
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Get("/{id}/history", h.history)
		r.Post("/{id}/review", h.submitForReview)
	})

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAny(identity.RoleAdmin))
		r.Post("/", h.create)
		r.Post("/{id}/assign", h.assign)
		r.Post("/{id}/verify", h.verify)
		r.Put("/{id}", h.update)
	})

	return r
}

func orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actor(r *http.Request) identity.Actor {
	a, _ := identity.ActorFrom(r.Context())
	return a
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Create(r.Context(), actor(r), input)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"order": order, "message": "order created"})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	history, err := h.svc.History(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if history == nil {
		history = []StatusChange{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{"statusHistory": history})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	page := shared.ParsePage(r)
	list, total, err := h.svc.List(r.Context(), filter, page)
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		list = []Order{}
	}
	pages := (total + int64(page.Size) - 1) / int64(page.Size)
	httpx.OK(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
		"pages":  pages,
	})
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("staff_id"); raw != "" {
		staffID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilter{}, errors.New("invalid staff_id")
		}
		filter.StaffID = &staffID
	}
	if raw := q.Get("date_from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return ListFilter{}, errors.New("invalid date_from")
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("date_to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return ListFilter{}, errors.New("invalid date_to")
		}
		filter.DateTo = &to
	}
	filter.Supplier = q.Get("supplier")
	filter.Search = q.Get("search")
	filter.SortBy = q.Get("sort_by")
	filter.Order = q.Get("order")
	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

type assignRequest struct {
	StaffID int64 `json:"staffId"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.Assign(r.Context(), actor(r), id, req.StaffID)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"order": order, "message": "order assigned"})
}

func (h *Handler) submitForReview(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var input ReviewInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.SubmitForReview(r.Context(), actor(r), id, input)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"order": order, "message": "order submitted for review"})
}

type verifyRequest struct {
	WarehouseID int64 `json:"warehouseId,omitempty"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req verifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, stockCount, err := h.svc.Verify(r.Context(), actor(r), id, req.WarehouseID)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"order":      order,
		"stockCount": stockCount,
		"message":    "order verified",
	})
}

type updateRequest struct {
	Status *Status `json:"status,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

// update handles the remaining lifecycle actions: marking paid,
// canceling, and appending notes.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := orderID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		order   Order
		message string
	)
	switch {
	case req.Status != nil && *req.Status == StatusPaid:
		order, err = h.svc.MarkPaid(r.Context(), actor(r), id)
		message = "order marked paid"
	case req.Status != nil && *req.Status == StatusCanceled:
		order, err = h.svc.Cancel(r.Context(), actor(r), id, req.Notes)
		message = "order canceled"
	case req.Status != nil:
		httpx.Fail(w, http.StatusBadRequest, "status must be paid or canceled")
		return
	case req.Notes != "":
		order, err = h.svc.AppendNote(r.Context(), actor(r), id, req.Notes)
		message = "note added"
	default:
		httpx.Fail(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"order": order, "message": message})
}

// stats serves the summary, cached for the global (unfiltered) case.
// Filtered summaries aggregate in SQL over the same WHERE clause the
// listing uses, so they stay exact however many orders match.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	loader := func(ctx context.Context) (Stats, error) {
		return h.svc.StatsFor(ctx, filter, h.now())
	}
	var stats Stats
	if filter == (ListFilter{}) && h.cache != nil {
		stats, err = h.cache.Get(r.Context(), loader)
	} else {
		stats, err = loader(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stats": stats})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPrecondition):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Fail(w, http.StatusConflict, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
