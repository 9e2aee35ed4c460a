package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	cartsvc "github.com/pharmakart/cartsync/internal/cart"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

type stubEngine struct {
	snapshot cartsvc.Snapshot
	err      error

	lastItem    types.LineItem
	lastDelta   int
	lastProduct string
	lastQty     int
	cleared     bool
	refreshed   bool
}

func (s *stubEngine) Snapshot() cartsvc.Snapshot { return s.snapshot }

func (s *stubEngine) Load(context.Context) error { return s.err }

func (s *stubEngine) Refresh(context.Context) error {
	s.refreshed = true
	return s.err
}

func (s *stubEngine) AddItem(_ context.Context, item types.LineItem, delta int) error {
	s.lastItem = item
	s.lastDelta = delta
	return s.err
}

func (s *stubEngine) RemoveItem(_ context.Context, productID string) error {
	s.lastProduct = productID
	return s.err
}

func (s *stubEngine) SetQuantity(_ context.Context, productID string, quantity int) error {
	s.lastProduct = productID
	s.lastQty = quantity
	return s.err
}

func (s *stubEngine) Clear(context.Context) error {
	s.cleared = true
	return s.err
}

func (s *stubEngine) ScopeName() string { return "guest" }

func withProductID(req *http.Request, productID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productID", productID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestFetchReturnsCartView(t *testing.T) {
	engine := &stubEngine{snapshot: cartsvc.Snapshot{
		Items:    []types.LineItem{{ProductID: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 2}},
		Subtotal: decimal.NewFromInt(20),
		Count:    2,
	}}
	handler := Fetch(engine, nil)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data CartView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Count != 2 || envelope.Data.Subtotal != "20.00" {
		t.Fatalf("unexpected view %+v", envelope.Data)
	}
	if envelope.Data.Scope != "guest" {
		t.Fatalf("unexpected scope %q", envelope.Data.Scope)
	}
}

func TestAddItemRejectsMissingProductID(t *testing.T) {
	handler := AddItem(&stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"qty":1}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAddItemMapsStockConflict(t *testing.T) {
	engine := &stubEngine{err: pkgerrors.New(pkgerrors.CodeOutOfStock, "only 1 left")}
	handler := AddItem(engine, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"a","qty":2}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeOutOfStock) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	engine := &stubEngine{}
	handler := AddItem(engine, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"a"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if engine.lastDelta != 1 || engine.lastItem.ProductID != "a" {
		t.Fatalf("unexpected call item=%+v delta=%d", engine.lastItem, engine.lastDelta)
	}
}

func TestSetQuantityPassesURLParam(t *testing.T) {
	engine := &stubEngine{}
	handler := SetQuantity(engine, nil)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/a", strings.NewReader(`{"qty":4}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withProductID(req, "a"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if engine.lastProduct != "a" || engine.lastQty != 4 {
		t.Fatalf("unexpected call product=%q qty=%d", engine.lastProduct, engine.lastQty)
	}
}

func TestRemoveItemRequiresProductID(t *testing.T) {
	handler := RemoveItem(&stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withProductID(req, ""))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestClearSurfacesRemoteFailure(t *testing.T) {
	engine := &stubEngine{err: pkgerrors.New(pkgerrors.CodeRemoteFailure, "gateway down")}
	handler := Clear(engine, nil)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !engine.cleared {
		t.Fatal("clear was never invoked")
	}
}
