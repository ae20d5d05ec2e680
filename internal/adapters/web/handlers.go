package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"foodcost/internal/app"
	"foodcost/internal/core"
	"foodcost/internal/uom"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	log       logrus.FieldLogger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, jwtSecret string, log logrus.FieldLogger) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		log:       log.WithField("module", "web"),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(CORS(allowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/api/units", h.units)
	r.With(RequestBodyLimit(1<<16)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Catalog
		r.Get("/api/catalog", h.apiListCatalog)
		r.Post("/api/taxes", h.apiCreateTax)
		r.Post("/api/categories", h.apiCreateCategory)
		r.Post("/api/customers", h.apiCreateCustomer)
		r.Get("/api/customers/{id}", h.apiGetCustomer)
		r.Post("/api/items", h.apiCreateItem)
		r.Get("/api/items/{id}", h.apiGetItem)
		r.Get("/api/items/{id}/inventory-logs", h.apiListInventoryLogs)

		// Inventory
		r.Get("/api/stock", h.apiStockLevels)
		r.Get("/api/stock/{id}", h.apiStockLevel)
		r.Post("/api/stock/add", h.apiAddStock)
		r.Post("/api/stock/remove", h.apiRemoveStock)

		// Sales
		r.Post("/api/sales", h.apiConfirmSale)
		r.Post("/api/sales-orders", h.apiAddSalesOrder)
		r.Get("/api/sales-orders/{id}", h.apiGetSalesOrderGroup)
		r.Post("/api/sales-orders/{id}/fulfill", h.apiFulfillSalesOrder)
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/{id}", h.apiGetInvoice)

		// Spoilage
		r.Post("/api/spoilages", h.apiAddSpoilage)
		r.Get("/api/spoilages", h.apiListSpoilages)
		r.Get("/api/spoilages/total", h.apiSpoilagesTotal)
		r.Get("/api/spoilages.xlsx", h.apiSpoilagesXLSX)

		// Reports
		r.Get("/api/reports/sales-summary", h.apiSalesSummary)
		r.Get("/api/reports/sales-summary.xlsx", h.apiSalesSummaryXLSX)

		// Voids are manager-only.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleManager))
			r.Post("/api/accounts", h.apiCreateAccount)
			r.Post("/api/inventory-logs/{id}/void", h.apiVoidInventoryLog)
			r.Post("/api/invoices/{id}/void", h.apiVoidInvoice)
			r.Post("/api/spoilages/{id}/void", h.apiVoidSpoilage)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// units lists the unit abbreviations of a dimension, or of every dimension
// when none is given.
func (h *Handler) units(w http.ResponseWriter, r *http.Request) {
	dims := []uom.Dimension{uom.Mass, uom.Volume, uom.Count, uom.Length}
	if d := r.URL.Query().Get("dimension"); d != "" {
		dims = []uom.Dimension{uom.Dimension(d)}
	}
	out := make(map[string][]string, len(dims))
	for _, d := range dims {
		units := uom.Possibilities(d)
		if len(units) == 0 {
			writeError(w, r, "unknown dimension: "+string(d), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		out[string(d)] = units
	}
	writeJSON(w, out)
}

// idParam parses the {id} URL parameter. Returns false and writes 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// optionalIntQuery parses an optional positive integer query parameter.
func optionalIntQuery(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &v, true
}

func dateRangeQuery(r *http.Request) app.DateRange {
	q := r.URL.Query()
	return app.DateRange{From: q.Get("from"), To: q.Get("to")}
}

func pageQuery(w http.ResponseWriter, r *http.Request) (app.PageRequest, bool) {
	var page app.PageRequest
	limit, ok := optionalIntQuery(w, r, "limit")
	if !ok {
		return page, false
	}
	offset, ok := optionalIntQuery(w, r, "offset")
	if !ok {
		return page, false
	}
	if limit != nil {
		page.Limit = *limit
	}
	if offset != nil {
		page.Offset = *offset
	}
	return page, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// logCallbacks returns callbacks that record the outcome of an engine mutation.
func logCallbacks[T any](h *Handler, r *http.Request, op string) app.Callbacks[T] {
	entry := h.log.WithFields(logrus.Fields{
		"op":         op,
		"request_id": requestIDFromContext(r.Context()),
		"account":    accountUID(r),
	})
	return app.Callbacks[T]{
		OnSuccess:      func(T) { entry.Debug("mutation succeeded") },
		OnLimitReached: func() { entry.Warn("write rejected: limit reached") },
		OnError: func(err error) {
			if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrUnitConversion) {
				entry.WithError(err).Info("mutation rejected")
			}
		},
	}
}
