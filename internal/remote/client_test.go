package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pharmakart/cartsync/pkg/config"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, serverURL string, timeout time.Duration) *Client {
	t.Helper()

	client, err := NewClient(config.RemoteConfig{
		BaseURL:      serverURL,
		Timeout:      timeout,
		OrderTimeout: timeout,
	}, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	return client
}

func TestFetchCartTranslatesItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/cart" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"items":[{"productId":"p1","name":"Aspirin","price":4.5,"qty":2,"dosage":"500mg"}]}`))
	}))
	defer server.Close()

	items, err := newTestClient(t, server.URL, time.Second).FetchCart(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}

	item := items[0]
	if item.ProductID != "p1" || item.Quantity != 2 || item.DosageLabel != "500mg" {
		t.Fatalf("bad translation: %+v", item)
	}
	if !item.UnitPrice.Equal(decimal.NewFromFloat(4.5)) {
		t.Fatalf("unexpected price %s", item.UnitPrice)
	}
	// absent remote fields must land on defined defaults
	if item.ImageRef != "" || item.Manufacturer != "" || item.Category != "" || item.StockHint != nil {
		t.Fatalf("absent fields should default: %+v", item)
	}
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, time.Second).FetchCart(context.Background(), "stale")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServerErrorMapsToRemoteFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := newTestClient(t, server.URL, time.Second).ReplaceCart(context.Background(), "tok", nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemoteFailure) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if !pkgerrors.Retryable(err) {
		t.Fatal("remote failures must be retryable")
	}
}

func TestTimeoutMapsToRemoteFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	err := newTestClient(t, server.URL, 20*time.Millisecond).ClearCart(context.Background(), "tok")
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemoteFailure) {
		t.Fatalf("expected remote failure on timeout, got %v", err)
	}
}

func TestPlaceOrderAggregatesStockIssues(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"insufficient stock","items":[{"productId":"p1","name":"Aspirin","available":1},{"productId":"p2","message":"discontinued"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	_, err := client.PlaceOrder(context.Background(), "tok", []types.LineItem{{ProductID: "p1", Quantity: 3}}, types.ShippingInfo{Address: "a", Phone: "p"})

	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidOrder) {
		t.Fatalf("expected invalid order, got %v", err)
	}

	typed := pkgerrors.As(err)
	details, ok := typed.Details().([]string)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two aggregated issues, got %v", typed.Details())
	}
	if !strings.Contains(details[0], "Aspirin") || !strings.Contains(details[0], "1 left") {
		t.Fatalf("unexpected issue text %q", details[0])
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":"ord-1","status":"placed","total":130}`))
	}))
	defer server.Close()

	record, err := newTestClient(t, server.URL, time.Second).PlaceOrder(context.Background(), "tok", nil, types.ShippingInfo{Address: "a", Phone: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.OrderID != "ord-1" || record.Status != "placed" {
		t.Fatalf("unexpected record %+v", record)
	}
}
