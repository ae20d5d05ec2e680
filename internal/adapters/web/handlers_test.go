package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foodcost/internal/app"
	"foodcost/internal/core"
	"foodcost/internal/uom"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const testSecret = "test-secret"

// fakeApp embeds the interface so only the methods a test needs are implemented.
type fakeApp struct {
	app.ApplicationService
	gotSale     app.ConfirmSaleRequest
	gotFill     app.FulfillSalesOrderRequest
	gotSpoilage app.SpoilageQuery
	saleResult  *core.SaleResult
	err         error
	voided      int
}

func (f *fakeApp) ConfirmSaleEntries(_ context.Context, req app.ConfirmSaleRequest, _ ...app.Callbacks[*core.SaleResult]) (*core.SaleResult, error) {
	f.gotSale = req
	return f.saleResult, f.err
}

func (f *fakeApp) ConfirmFulfillingSalesOrders(_ context.Context, req app.FulfillSalesOrderRequest, _ ...app.Callbacks[*core.SaleResult]) (*core.SaleResult, error) {
	f.gotFill = req
	return &core.SaleResult{Invoice: core.Invoice{ID: 2, InvoiceNumber: "INV-000002"}}, f.err
}

func (f *fakeApp) Login(_ context.Context, req app.LoginRequest) (*core.Account, error) {
	if req.Username == "maria" && req.Password == "correct-horse" {
		return &core.Account{UID: "uid-maria", Username: "maria", Role: core.RoleManager}, nil
	}
	return nil, core.ErrInvalidCredentials
}

func (f *fakeApp) GetItem(_ context.Context, id int) (*core.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.Item{ID: id, Name: "Beef Brisket"}, nil
}

func (f *fakeApp) VoidInvoice(_ context.Context, id int, _ ...app.Callbacks[int]) error {
	f.voided = id
	return f.err
}

func (f *fakeApp) GetSpoilages(_ context.Context, q app.SpoilageQuery) (*app.SpoilageReportResult, error) {
	f.gotSpoilage = q
	return &app.SpoilageReportResult{
		Rows:  []core.SpoilageRow{{Spoilage: core.Spoilage{ID: 1, InSpoilageQty: decimal.NewFromInt(2), InSpoilageDate: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)}, ItemName: "Beef Brisket"}},
		Total: &core.SpoilageTotal{Count: 1, RowsWithoutCost: 1},
	}, f.err
}

func newTestHandler(f *fakeApp) http.Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHandler(f, []string{"http://pos.local"}, testSecret, log)
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	tok, err := SignToken(testSecret, uid, role, time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	rec := do(t, newTestHandler(&fakeApp{}), http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated X-Request-ID")
	}
}

func TestUnits(t *testing.T) {
	h := newTestHandler(&fakeApp{})

	rec := do(t, h, http.MethodGet, "/api/units?dimension=mass", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || len(got["mass"]) != len(uom.Possibilities(uom.Mass)) {
		t.Errorf("Unexpected units %v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/units?dimension=time", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown dimension, got %d", rec.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	h := newTestHandler(&fakeApp{})

	if rec := do(t, h, http.MethodGet, "/api/items/1", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/items/1", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad token, got %d", rec.Code)
	}
	other, _ := SignToken("other-secret", "u1", RoleCashier, time.Hour)
	if rec := do(t, h, http.MethodGet, "/api/items/1", other, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for foreign signature, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token(t, "u42", RoleManager)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"account_uid":"u42"`) {
		t.Errorf("Expected cookie auth to work, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmSale(t *testing.T) {
	f := &fakeApp{saleResult: &core.SaleResult{Invoice: core.Invoice{ID: 1, InvoiceNumber: "INV-000001"}}}
	h := newTestHandler(f)
	tok := token(t, "cashier-1", RoleCashier)

	rec := do(t, h, http.MethodPost, "/api/sales", tok, map[string]any{
		"lines":    []map[string]any{{"item_id": 1, "qty": "2", "unit": "kg"}},
		"payments": []map[string]any{{"method": "cash", "amount": "500"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.gotSale.SoldByAccountUID != "cashier-1" {
		t.Errorf("Expected seller from token, got %q", f.gotSale.SoldByAccountUID)
	}
	if len(f.gotSale.Lines) != 1 || !f.gotSale.Lines[0].Qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Unexpected lines %+v", f.gotSale.Lines)
	}

	// An empty cart is a no-op.
	f.saleResult = nil
	rec = do(t, h, http.MethodPost, "/api/sales", tok, map[string]any{"lines": []any{}})
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for empty cart, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/sales", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing body, got %d", rec.Code)
	}
}

func TestFulfillTakesGroupFromPath(t *testing.T) {
	f := &fakeApp{}
	h := newTestHandler(f)

	rec := do(t, h, http.MethodPost, "/api/sales-orders/7/fulfill", token(t, "u1", RoleCashier), map[string]any{
		"sales_order_group_id": 99,
		"lines":                []map[string]any{{"sales_order_id": 3, "qty": "3"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if f.gotFill.SalesOrderGroupID != 7 || f.gotFill.SoldByAccountUID != "u1" {
		t.Errorf("Unexpected request %+v", f.gotFill)
	}

	if rec := do(t, h, http.MethodPost, "/api/sales-orders/abc/fulfill", token(t, "u1", RoleCashier), map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", rec.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &core.ValidationError{Field: "lines[0].qty", Details: "must be greater than 0"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conversion", &uom.ConversionError{From: "ea", To: "kg", Msg: "incompatible"}, http.StatusUnprocessableEntity, "UNIT_CONVERSION"},
		{"limit", fmt.Errorf("read-only: %w", core.ErrLimitReached), http.StatusPaymentRequired, "LIMIT_REACHED"},
		{"not found", fmt.Errorf("item 9: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeApp{err: tt.err})
			rec := do(t, h, http.MethodGet, "/api/items/9", token(t, "u1", RoleCashier), nil)
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, resp.Code)
			}
			if resp.RequestID == "" {
				t.Error("Expected request_id in error body")
			}
			if tt.code == "VALIDATION_ERROR" && resp.Field != "lines[0].qty" {
				t.Errorf("Expected field in error body, got %q", resp.Field)
			}
			if tt.code == "INTERNAL_ERROR" && strings.Contains(resp.Error, "connection reset") {
				t.Error("Internal error details must not leak")
			}
		})
	}
}

func TestVoidRequiresManager(t *testing.T) {
	f := &fakeApp{}
	h := newTestHandler(f)

	if rec := do(t, h, http.MethodPost, "/api/invoices/5/void", token(t, "u1", RoleCashier), nil); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for cashier, got %d", rec.Code)
	}
	if f.voided != 0 {
		t.Fatal("Void must not reach the service for a cashier")
	}
	if rec := do(t, h, http.MethodPost, "/api/invoices/5/void", token(t, "m1", RoleManager), nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for manager, got %d", rec.Code)
	}
	if f.voided != 5 {
		t.Errorf("Expected invoice 5 voided, got %d", f.voided)
	}
}

func TestSpoilageQueryAndExport(t *testing.T) {
	f := &fakeApp{}
	h := newTestHandler(f)
	tok := token(t, "u1", RoleCashier)

	rec := do(t, h, http.MethodGet, "/api/spoilages?from=2026-02-01&to=2026-02-28&category_id=3&search=brisk&limit=10&offset=20", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	q := f.gotSpoilage
	if q.From != "2026-02-01" || q.To != "2026-02-28" || q.Search != "brisk" || q.Limit != 10 || q.Offset != 20 {
		t.Errorf("Unexpected query %+v", q)
	}
	if q.CategoryID == nil || *q.CategoryID != 3 || q.ItemID != nil {
		t.Errorf("Unexpected filters %+v", q)
	}

	if rec := do(t, h, http.MethodGet, "/api/spoilages?item_id=x", tok, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad item_id, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/spoilages.xlsx?limit=1", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Unexpected content type %q", ct)
	}
	if f.gotSpoilage.Limit != 0 {
		t.Errorf("Export must ignore paging, got limit %d", f.gotSpoilage.Limit)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("Expected a zip payload")
	}
}

func TestCORS(t *testing.T) {
	h := newTestHandler(&fakeApp{})

	req := httptest.NewRequest(http.MethodOptions, "/api/sales", nil)
	req.Header.Set("Origin", "http://pos.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://pos.local" {
		t.Errorf("Expected preflight to pass, got %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Unknown origin must not get CORS headers")
	}
}

func TestRequestIDAcceptsSafeValues(t *testing.T) {
	h := newTestHandler(&fakeApp{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("Expected caller id kept, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "bad id\n")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got == "bad id\n" || got == "" {
		t.Errorf("Expected unsafe id replaced, got %q", got)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	h := newTestHandler(&fakeApp{})

	rec := do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "maria", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad credentials, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "maria", "password": "correct-horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("Expected token in body: %v", err)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("Expected auth cookie")
	}

	rec = do(t, h, http.MethodGet, "/api/auth/me", body.Token, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"manager"`) {
		t.Errorf("Expected manager session, got %d %s", rec.Code, rec.Body.String())
	}
}
