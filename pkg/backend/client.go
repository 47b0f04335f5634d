package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/posterminal/pkg/config"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/metrics"
)

const (
	errorBodyReadLimit int64 = 4096

	pathItemSuggestions      = "/api/search/suggestions"
	pathDealerSuggestions    = "/api/search/dealer-suggestions"
	pathInventorySuggestions = "/api/search/inventory-suggestions"
	pathInventoryByBarcode   = "/api/search/inventory/%s"
	pathCustomerSearch       = "/api/customers/search"
	pathPurchaseProduct      = "/api/sales/purchaseproduct"
	pathCreateOrder          = "/api/sales/create-order"
	pathCompleteTransaction  = "/api/sales/%s/complete-transaction"

	// IdempotencyHeader is forwarded on settlement so a retried submit is not charged twice.
	IdempotencyHeader = "Idempotency-Key"
)

var (
	errBaseURLRequired = errors.New("backend base url is required")
)

// Client talks to the remote sales/inventory REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logger.Logger
	metrics    *metrics.BackendMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMetrics attaches latency/failure metrics.
func WithMetrics(m *metrics.BackendMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the backend client from config.
func NewClient(cfg config.BackendConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		logger:     logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SearchItems returns catalogue suggestions by name or barcode prefix.
func (c *Client) SearchItems(ctx context.Context, query string) ([]ItemSuggestion, error) {
	var out []ItemSuggestion
	err := c.do(ctx, "item_suggestions", http.MethodGet, c.withQuery(pathItemSuggestions, "q", query), nil, nil, &out)
	return out, err
}

// SearchDealers returns dealer suggestions.
func (c *Client) SearchDealers(ctx context.Context, query string) ([]Dealer, error) {
	var out []Dealer
	err := c.do(ctx, "dealer_suggestions", http.MethodGet, c.withQuery(pathDealerSuggestions, "q", query), nil, nil, &out)
	return out, err
}

// SearchInventory returns sellable items matching free text.
func (c *Client) SearchInventory(ctx context.Context, query string) ([]InventoryItem, error) {
	var out []InventoryItem
	err := c.do(ctx, "inventory_suggestions", http.MethodGet, c.withQuery(pathInventorySuggestions, "q", query), nil, nil, &out)
	return out, err
}

// LookupBarcode resolves an exact barcode to a sellable item.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*InventoryItem, error) {
	trimmed := strings.TrimSpace(barcode)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	var out InventoryItem
	path := fmt.Sprintf(pathInventoryByBarcode, url.PathEscape(trimmed))
	if err := c.do(ctx, "inventory_lookup", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCustomers looks customers up by name, phone or email.
func (c *Client) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	var out []Customer
	err := c.do(ctx, "customer_search", http.MethodGet, c.withQuery(pathCustomerSearch, "query", query), nil, nil, &out)
	return out, err
}

// CreatePurchaseOrder submits a composed purchase order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, req PurchaseOrderRequest) (*PurchaseOrder, error) {
	var out PurchaseOrder
	if err := c.do(ctx, "purchase_order_create", http.MethodPost, pathPurchaseProduct, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder opens a pending sale for the counter.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Sale, error) {
	var out Sale
	if err := c.do(ctx, "sale_create", http.MethodPost, pathCreateOrder, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteTransaction settles payment against a pending sale and returns the receipt data.
func (c *Client) CompleteTransaction(ctx context.Context, saleID, idempotencyKey string, req CompleteTransactionRequest) (*Receipt, error) {
	trimmed := strings.TrimSpace(saleID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	headers := map[string]string{}
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		headers[IdempotencyHeader] = key
	}
	var out Receipt
	path := fmt.Sprintf(pathCompleteTransaction, url.PathEscape(trimmed))
	if err := c.do(ctx, "sale_complete", http.MethodPost, path, headers, req, &out); err != nil {
		return nil, err
	}
	if out.SaleID == "" {
		out.SaleID = trimmed
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, headers map[string]string, body any, out any) (err error) {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	started := time.Now()
	defer func() {
		c.metrics.ObserveDuration(endpoint, time.Since(started))
		if err != nil {
			c.metrics.IncFailure(endpoint)
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, fmt.Sprintf("marshal %s request", endpoint))
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", endpoint))
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	c.log(ctx, "request", endpoint, map[string]any{"method": method, "path": path})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log(ctx, "error", endpoint, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend unreachable, check the connection and try again")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		statusErr := &StatusError{
			status:   resp.StatusCode,
			endpoint: endpoint,
			message:  extractMessage(raw, resp.StatusCode),
		}
		c.log(ctx, "error", endpoint, map[string]any{"status": resp.StatusCode, "error": statusErr.message})
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), statusErr, statusErr.message)
	}

	if out != nil {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, fmt.Sprintf("read %s response", endpoint))
		}
		if err := decodeBody(raw, out); err != nil {
			c.log(ctx, "error", endpoint, map[string]any{"error": err.Error()})
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", endpoint))
		}
	}

	c.log(ctx, "response", endpoint, map[string]any{"status": resp.StatusCode, "duration_ms": time.Since(started).Milliseconds()})
	return nil
}

func (c *Client) withQuery(path, key, value string) string {
	params := url.Values{}
	params.Set(key, strings.TrimSpace(value))
	return path + "?" + params.Encode()
}

func (c *Client) log(ctx context.Context, phase, endpoint string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"endpoint": endpoint,
		"phase":    phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("backend %s", endpoint), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("backend %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "last_four", "card", "authorization"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// decodeBody accepts either a bare payload or one wrapped in a {"data": ...} envelope.
func decodeBody(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if data, ok := envelope["data"]; ok && len(data) > 0 && string(data) != "null" {
				trimmed = data
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeDependency
	}
}
