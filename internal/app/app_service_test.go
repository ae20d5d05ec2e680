package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"foodcost/internal/core"

	"github.com/shopspring/decimal"
)

// fakeSales embeds the interface so only the methods a test needs are implemented.
type fakeSales struct {
	core.SaleService
	gotSale  core.SaleInput
	gotFill  core.FulfillmentInput
	err      error
	calls    int
	voidedID int
}

func (f *fakeSales) ConfirmSaleEntries(_ context.Context, in core.SaleInput) (*core.SaleResult, error) {
	f.calls++
	f.gotSale = in
	if f.err != nil {
		return nil, f.err
	}
	if len(in.Lines) == 0 {
		return nil, nil
	}
	return &core.SaleResult{Invoice: core.Invoice{ID: 1, InvoiceNumber: "INV-000001"}}, nil
}

func (f *fakeSales) ConfirmFulfillingSalesOrders(_ context.Context, in core.FulfillmentInput) (*core.SaleResult, error) {
	f.calls++
	f.gotFill = in
	return &core.SaleResult{}, f.err
}

func (f *fakeSales) VoidInvoice(_ context.Context, id int) error {
	f.voidedID = id
	return f.err
}

type fakeCatalog struct {
	core.CatalogService
	gotItem core.ItemInput
}

func (f *fakeCatalog) GetTax(_ context.Context, id int) (*core.Tax, error) {
	return &core.Tax{ID: id, RatePercentage: decimal.NewFromInt(12)}, nil
}

func (f *fakeCatalog) CreateItem(_ context.Context, in core.ItemInput) (*core.Item, error) {
	f.gotItem = in
	return &core.Item{ID: 1, Name: in.Name, UnitSellingPrice: in.UnitSellingPrice}, nil
}

type recorder[T any] struct {
	success, failed, limited int
	lastErr                  error
	lastResult               T
}

func (r *recorder[T]) callbacks() Callbacks[T] {
	return Callbacks[T]{
		OnSuccess:      func(v T) { r.success++; r.lastResult = v },
		OnError:        func(err error) { r.failed++; r.lastErr = err },
		OnLimitReached: func() { r.limited++ },
	}
}

func saleRequest() ConfirmSaleRequest {
	return ConfirmSaleRequest{
		SaleDate: "2026-03-01",
		Lines:    []CartLineRequest{{ItemID: 7, Qty: decimal.NewFromInt(2), Unit: "kg", UnitSellingPrice: ptr(decimal.NewFromInt(5))}},
		Payments: []PaymentRequest{{Method: "cash"}},
	}
}

func ptr[T any](v T) *T { return &v }

func TestConfirmSaleEntries_MapsRequestAndFiresSuccess(t *testing.T) {
	sales := &fakeSales{}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)
	rec := &recorder[*core.SaleResult]{}

	result, err := svc.ConfirmSaleEntries(context.Background(), saleRequest(), rec.callbacks())
	if err != nil {
		t.Fatalf("ConfirmSaleEntries: %v", err)
	}
	if result.Invoice.InvoiceNumber != "INV-000001" || rec.success != 1 || rec.lastResult != result {
		t.Errorf("Expected OnSuccess with the result, got %+v", rec)
	}
	if rec.failed != 0 || rec.limited != 0 {
		t.Errorf("Only OnSuccess should fire, got %+v", rec)
	}

	in := sales.gotSale
	if !in.SaleDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected sale date %s", in.SaleDate)
	}
	if len(in.Lines) != 1 || in.Lines[0].ItemID != 7 || in.Lines[0].Unit != "kg" {
		t.Fatalf("Unexpected lines %+v", in.Lines)
	}
	if !in.Lines[0].UnitSellingPrice.Valid || !in.Lines[0].UnitSellingPrice.Decimal.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Price override lost: %+v", in.Lines[0].UnitSellingPrice)
	}
	if len(in.Payments) != 1 || in.Payments[0].Method != "cash" {
		t.Errorf("Unexpected payments %+v", in.Payments)
	}
}

func TestConfirmSaleEntries_LimitReachedRoutesToCallback(t *testing.T) {
	sales := &fakeSales{err: fmt.Errorf("license expired: %w", core.ErrLimitReached)}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)
	rec := &recorder[*core.SaleResult]{}

	_, err := svc.ConfirmSaleEntries(context.Background(), saleRequest(), rec.callbacks())
	if !errors.Is(err, core.ErrLimitReached) {
		t.Fatalf("Expected ErrLimitReached returned, got %v", err)
	}
	if rec.limited != 1 || rec.failed != 0 || rec.success != 0 {
		t.Errorf("Expected only OnLimitReached, got %+v", rec)
	}

	// Without OnLimitReached the condition falls back to OnError.
	var gotErr error
	_, _ = svc.ConfirmSaleEntries(context.Background(), saleRequest(), Callbacks[*core.SaleResult]{
		OnError: func(err error) { gotErr = err },
	})
	if !errors.Is(gotErr, core.ErrLimitReached) {
		t.Errorf("Expected OnError fallback, got %v", gotErr)
	}
}

func TestConfirmSaleEntries_ValidationFailsBeforeCore(t *testing.T) {
	sales := &fakeSales{}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)
	rec := &recorder[*core.SaleResult]{}

	req := saleRequest()
	req.Lines[0].Qty = decimal.Zero
	_, err := svc.ConfirmSaleEntries(context.Background(), req, rec.callbacks())

	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if ve.Field != "lines[0].qty" {
		t.Errorf("Expected field lines[0].qty, got %q", ve.Field)
	}
	if sales.calls != 0 {
		t.Error("Core must not be called for invalid requests")
	}
	if rec.failed != 1 {
		t.Errorf("Expected OnError, got %+v", rec)
	}

	req = saleRequest()
	req.SaleDate = "01/03/2026"
	if _, err := svc.ConfirmSaleEntries(context.Background(), req); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for bad date, got %v", err)
	}
}

func TestConfirmSaleEntries_EmptyCartSucceeds(t *testing.T) {
	sales := &fakeSales{}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)
	rec := &recorder[*core.SaleResult]{}

	result, err := svc.ConfirmSaleEntries(context.Background(), ConfirmSaleRequest{}, rec.callbacks())
	if err != nil || result != nil {
		t.Fatalf("Expected (nil, nil), got (%v, %v)", result, err)
	}
	if rec.success != 1 {
		t.Errorf("Expected OnSuccess for no-op, got %+v", rec)
	}
}

func TestConfirmFulfillingSalesOrders_MapsLines(t *testing.T) {
	sales := &fakeSales{}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)

	_, err := svc.ConfirmFulfillingSalesOrders(context.Background(), FulfillSalesOrderRequest{
		SalesOrderGroupID: 3,
		Lines:             []FulfillmentLineRequest{{SalesOrderID: 9, Qty: decimal.NewFromInt(3)}},
		Payments:          []PaymentRequest{{Method: "card", Amount: decimal.NewFromInt(500)}},
	})
	if err != nil {
		t.Fatalf("ConfirmFulfillingSalesOrders: %v", err)
	}
	if sales.gotFill.SalesOrderGroupID != 3 || sales.gotFill.Lines[0].SalesOrderID != 9 {
		t.Errorf("Unexpected input %+v", sales.gotFill)
	}

	if _, err := svc.ConfirmFulfillingSalesOrders(context.Background(), FulfillSalesOrderRequest{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation without group id, got %v", err)
	}
}

func TestVoidInvoice_Callbacks(t *testing.T) {
	sales := &fakeSales{}
	svc := NewAppService(nil, nil, nil, sales, nil, nil)
	rec := &recorder[int]{}

	if err := svc.VoidInvoice(context.Background(), 42, rec.callbacks()); err != nil {
		t.Fatalf("VoidInvoice: %v", err)
	}
	if sales.voidedID != 42 || rec.success != 1 || rec.lastResult != 42 {
		t.Errorf("Unexpected void outcome: id=%d rec=%+v", sales.voidedID, rec)
	}
}

func TestCreateItem_GrossesUpTaxExclusivePrices(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewAppService(nil, catalog, nil, nil, nil, nil)

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{
		Name:             "Beef Brisket",
		UOMAbbrev:        "kg",
		UnitSellingPrice: decimal.NewFromInt(100),
		UnitCost:         decimal.NewFromInt(50),
		PricesExcludeTax: true,
		TaxID:            ptr(1),
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !catalog.gotItem.UnitSellingPrice.Equal(decimal.NewFromInt(112)) {
		t.Errorf("Expected gross price 112, got %s", catalog.gotItem.UnitSellingPrice)
	}
	if !catalog.gotItem.UnitCost.Equal(decimal.NewFromInt(56)) {
		t.Errorf("Expected gross cost 56, got %s", catalog.gotItem.UnitCost)
	}

	_, err = svc.CreateItem(context.Background(), CreateItemRequest{Name: "Wine", UOMAbbrev: "pc", UseMeasurementPerPiece: true})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "uom_abbrev_per_piece" {
		t.Errorf("Expected uom_abbrev_per_piece to be required, got %v", err)
	}
}

type fakeAccounts struct {
	core.AccountService
	authCalls int
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) (*core.Account, error) {
	f.authCalls++
	if username == "maria" && password == "correct-horse" {
		return &core.Account{UID: "uid-1", Username: username, Role: core.RoleManager}, nil
	}
	return nil, core.ErrInvalidCredentials
}

func TestLogin_HidesValidationDetails(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := NewAppService(accounts, nil, nil, nil, nil, nil)

	acc, err := svc.Login(context.Background(), LoginRequest{Username: "maria", Password: "correct-horse"})
	if err != nil || acc.UID != "uid-1" {
		t.Fatalf("Login: %v %+v", err, acc)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "maria"}); !errors.Is(err, core.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for empty password, got %v", err)
	}
	if accounts.authCalls != 1 {
		t.Errorf("Invalid requests must not reach the account store, got %d calls", accounts.authCalls)
	}
}

func TestCreateAccount_ValidatesRole(t *testing.T) {
	svc := NewAppService(&fakeAccounts{}, nil, nil, nil, nil, nil)
	_, err := svc.CreateAccount(context.Background(), CreateAccountRequest{Username: "joe", Password: "long-enough", Role: "owner"})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "role" {
		t.Errorf("Expected role validation error, got %v", err)
	}
}
