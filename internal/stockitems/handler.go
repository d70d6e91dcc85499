package stockitems

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/galley-erp/galley-erp/internal/identity"
	"github.com/galley-erp/galley-erp/internal/platform/httpx"
	"github.com/galley-erp/galley-erp/internal/shared"
)

// Handler exposes stock item endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAny(identity.RoleAdmin, identity.RoleStaff))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAny(identity.RoleAdmin))
		r.Post("/bulk", h.createBatch)
	})
	return r
}

type batchRequest struct {
	WarehouseID int64       `json:"warehouseId"`
	Items       []ItemInput `json:"items"`
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var actorID *int64
	if actor, ok := identity.ActorFrom(r.Context()); ok {
		actorID = &actor.ID
	}

	created, err := h.svc.CreateBatch(r.Context(), actorID, BatchInput{
		WarehouseID: req.WarehouseID,
		Items:       req.Items,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	httpx.OK(w, http.StatusCreated, map[string]any{
		"stockItems": created,
		"count":      len(created),
		"message":    "stock items created",
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "warehouse_id is required")
		return
	}

	items, err := h.svc.ListByWarehouse(r.Context(), warehouseID, shared.ParsePage(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []StockItem{}
	}
	httpx.OK(w, http.StatusOK, map[string]any{"stockItems": items})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
