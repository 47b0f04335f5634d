package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posterminal/pkg/config"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Token: "secret", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.BackendConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestSearchPathsAndQueryKeys(t *testing.T) {
	tests := []struct {
		name      string
		call      func(*Client) error
		wantPath  string
		wantQuery string
	}{
		{"items", func(c *Client) error { _, err := c.SearchItems(context.Background(), " ric "); return err }, "/api/search/suggestions", "q=ric"},
		{"dealers", func(c *Client) error { _, err := c.SearchDealers(context.Background(), "acme"); return err }, "/api/search/dealer-suggestions", "q=acme"},
		{"inventory", func(c *Client) error { _, err := c.SearchInventory(context.Background(), "soap"); return err }, "/api/search/inventory-suggestions", "q=soap"},
		{"customers", func(c *Client) error { _, err := c.SearchCustomers(context.Background(), "98765"); return err }, "/api/customers/search", "query=98765"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery, gotAuth string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				gotAuth = r.Header.Get("Authorization")
				_, _ = io.WriteString(w, `[]`)
			})
			require.NoError(t, tt.call(client))
			assert.Equal(t, tt.wantPath, gotPath)
			assert.Equal(t, tt.wantQuery, gotQuery)
			assert.Equal(t, "Bearer secret", gotAuth)
		})
	}
}

func TestLookupBarcodeDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search/inventory/8901234" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"data":{"id":"inv-1","name":"Soap","barcode":"8901234","unitPrice":30,"salePrice":"45.50","gstPercentage":18,"currentQuantity":7}}`)
	})

	item, err := client.LookupBarcode(context.Background(), "8901234")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", item.ID)
	assert.True(t, item.SalePrice.Equal(decimal.RequireFromString("45.50")))
	assert.True(t, item.CostPrice.Equal(decimal.NewFromInt(30)))
	require.NotNil(t, item.CurrentQuantity)
	assert.Equal(t, 7, *item.CurrentQuantity)
}

func TestLookupBarcodeNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Item not found"}`)
	})

	_, err := client.LookupBarcode(context.Background(), "000")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Equal(t, "Item not found", typed.Message())

	dump := pkgerrors.Dump(err)
	assert.Equal(t, http.StatusNotFound, dump.RemoteStatus)
	assert.Equal(t, "inventory_lookup", dump.RemoteEndpoint)
}

func TestCreateOrderBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sales/create-order" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["counterNumber"] != "3" {
			t.Fatalf("unexpected counter %v", body["counterNumber"])
		}
		items := body["items"].([]any)
		first := items[0].(map[string]any)
		if first["barcode"] != "A1" || first["quantity"].(float64) != 2 {
			t.Fatalf("unexpected item %v", first)
		}
		if _, ok := body["customerDetails"]; ok {
			t.Fatalf("customerDetails should be omitted")
		}
		_, _ = io.WriteString(w, `{"saleId":"sale-9","total":210}`)
	})

	sale, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		CounterNumber: "3",
		Items:         []OrderItem{{Barcode: "A1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sale-9", sale.ID)
	assert.Equal(t, "210", sale.Total.String())
}

func TestCompleteTransactionSendsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sales/sale-9/complete-transaction" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get(IdempotencyHeader); got != "key-1" {
			t.Fatalf("expected idempotency key, got %q", got)
		}
		_, _ = io.WriteString(w, `{"items":[{"name":"Soap","quantity":2,"price":100,"total":210}],"subtotal":200,"tax":10,"discount":0,"total":210,"paymentMethod":"cash","pointsEarned":210,"invoiceNumber":"INV-1","date":"2026-10-18T10:00:00Z","status":"completed"}`)
	})

	received := decimal.NewFromInt(250)
	receipt, err := client.CompleteTransaction(context.Background(), "sale-9", "key-1", CompleteTransactionRequest{
		PaymentMethod:  "cash",
		AmountReceived: &received,
	})
	require.NoError(t, err)
	assert.Equal(t, "sale-9", receipt.SaleID)
	assert.Equal(t, "INV-1", receipt.InvoiceNumber)
	assert.Equal(t, 210, receipt.PointsEarned)
	require.Len(t, receipt.Items, 1)
}

func TestServerErrorMapsToDependency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"database down"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: time.Second}, nil, WithMetrics(m))
	require.NoError(t, err)

	_, err = client.CreatePurchaseOrder(context.Background(), PurchaseOrderRequest{DealerID: "d1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	assert.Equal(t, "database down", pkgerrors.As(err).Message())

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, mf := range mfs {
		if mf.GetName() == "backend_request_failures_total" {
			failures = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), failures)
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		body   string
		status int
		want   string
	}{
		{`{"message":"Insufficient stock"}`, 400, "Insufficient stock"},
		{`{"error":"Invalid barcode"}`, 400, "Invalid barcode"},
		{`{"error":{"message":"nested"}}`, 500, "nested"},
		{`{"errors":[{"message":"first"}]}`, 422, "first"},
		{`gateway timeout`, 504, "gateway timeout"},
		{``, 502, "bad gateway"},
		{`{"unrelated":true}`, 500, "internal server error"},
	}
	for _, tt := range tests {
		if got := extractMessage([]byte(tt.body), tt.status); got != tt.want {
			t.Fatalf("body %q expected %q got %q", tt.body, tt.want, got)
		}
	}
}

func TestUnreachableBackend(t *testing.T) {
	client, err := NewClient(config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = client.SearchItems(context.Background(), "x")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
