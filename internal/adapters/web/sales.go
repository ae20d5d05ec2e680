package web

import (
	"net/http"

	"foodcost/internal/app"
	"foodcost/internal/core"
	"foodcost/internal/report"
)

// apiConfirmSale confirms a cart. An empty cart writes nothing and answers 204.
func (h *Handler) apiConfirmSale(w http.ResponseWriter, r *http.Request) {
	var req app.ConfirmSaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SoldByAccountUID == "" {
		req.SoldByAccountUID = accountUID(r)
	}
	result, err := h.svc.ConfirmSaleEntries(r.Context(), req, logCallbacks[*core.SaleResult](h, r, "confirm_sale"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeCreated(w, result)
}

func (h *Handler) apiAddSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req app.AddSalesOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderedByAccountUID == "" {
		req.OrderedByAccountUID = accountUID(r)
	}
	result, err := h.svc.AddSaleEntriesToSalesOrders(r.Context(), req, logCallbacks[*core.SalesOrderGroupResult](h, r, "add_sales_order"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeCreated(w, result)
}

func (h *Handler) apiGetSalesOrderGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	group, err := h.svc.GetSalesOrderGroup(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, group)
}

// apiFulfillSalesOrder takes the group from the path; a body group id is ignored.
func (h *Handler) apiFulfillSalesOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.FulfillSalesOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SalesOrderGroupID = id
	if req.SoldByAccountUID == "" {
		req.SoldByAccountUID = accountUID(r)
	}
	result, err := h.svc.ConfirmFulfillingSalesOrders(r.Context(), req, logCallbacks[*core.SaleResult](h, r, "fulfill_sales_order"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeCreated(w, result)
}

func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	page, ok := pageQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListInvoices(r.Context(), dateRangeQuery(r), page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

func (h *Handler) apiVoidInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.VoidInvoice(r.Context(), id, logCallbacks[int](h, r, "void_invoice")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiSalesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetSalesSummary(r.Context(), dateRangeQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

func (h *Handler) apiSalesSummaryXLSX(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetSalesSummary(r.Context(), dateRangeQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeXLSXHeaders(w, "sales-summary.xlsx")
	if err := report.WriteSalesSummaryXLSX(w, summary); err != nil {
		h.log.WithError(err).Error("failed to stream sales summary workbook")
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func writeXLSXHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
