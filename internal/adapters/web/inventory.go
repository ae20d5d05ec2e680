package web

import (
	"net/http"

	"foodcost/internal/app"
)

func (h *Handler) apiStockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetStockLevels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiStockLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	level, err := h.svc.GetStockLevel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, level)
}

func (h *Handler) apiAddStock(w http.ResponseWriter, r *http.Request) {
	var req app.AddStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.svc.AddStock(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, entry)
}

func (h *Handler) apiRemoveStock(w http.ResponseWriter, r *http.Request) {
	var req app.RemoveStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.svc.RemoveStock(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, entry)
}

func (h *Handler) apiListInventoryLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	logs, err := h.svc.ListInventoryLogs(r.Context(), id, dateRangeQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, logs)
}

func (h *Handler) apiVoidInventoryLog(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.VoidInventoryLog(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
