package web

import (
	"net/http"

	"foodcost/internal/app"
	"foodcost/internal/core"
	"foodcost/internal/report"
)

func (h *Handler) apiAddSpoilage(w http.ResponseWriter, r *http.Request) {
	var req app.AddSpoilageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sp, err := h.svc.AddSpoilage(r.Context(), req, logCallbacks[*core.Spoilage](h, r, "add_spoilage"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, sp)
}

func (h *Handler) apiVoidSpoilage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.VoidSpoilage(r.Context(), id, logCallbacks[int](h, r, "void_spoilage")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// spoilageQuery reads from, to, item_id, category_id, search, limit and offset.
func spoilageQuery(w http.ResponseWriter, r *http.Request) (app.SpoilageQuery, bool) {
	q := app.SpoilageQuery{DateRange: dateRangeQuery(r), Search: r.URL.Query().Get("search")}
	var ok bool
	if q.PageRequest, ok = pageQuery(w, r); !ok {
		return q, false
	}
	if q.ItemID, ok = optionalIntQuery(w, r, "item_id"); !ok {
		return q, false
	}
	if q.CategoryID, ok = optionalIntQuery(w, r, "category_id"); !ok {
		return q, false
	}
	return q, true
}

func (h *Handler) apiListSpoilages(w http.ResponseWriter, r *http.Request) {
	q, ok := spoilageQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetSpoilages(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiSpoilagesTotal(w http.ResponseWriter, r *http.Request) {
	q, ok := spoilageQuery(w, r)
	if !ok {
		return
	}
	total, err := h.svc.GetSpoilagesTotal(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, total)
}

// apiSpoilagesXLSX exports every matching row; paging parameters are ignored.
func (h *Handler) apiSpoilagesXLSX(w http.ResponseWriter, r *http.Request) {
	q, ok := spoilageQuery(w, r)
	if !ok {
		return
	}
	q.PageRequest = app.PageRequest{}
	result, err := h.svc.GetSpoilages(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeXLSXHeaders(w, "spoilages.xlsx")
	if err := report.WriteSpoilagesXLSX(w, result.Rows, result.Total); err != nil {
		h.log.WithError(err).Error("failed to stream spoilage workbook")
	}
}
