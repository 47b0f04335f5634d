package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posterminal/internal/cart"
	"github.com/angelmondragon/posterminal/pkg/backend"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

type stubBackend struct {
	orderReq  *backend.CreateOrderRequest
	sale      *backend.Sale
	orderErr  error
	payReq    *backend.CompleteTransactionRequest
	payKey    string
	paySaleID string
	receipt   *backend.Receipt
	payErr    error
	payCalls  int
}

func (s *stubBackend) CreateOrder(_ context.Context, req backend.CreateOrderRequest) (*backend.Sale, error) {
	s.orderReq = &req
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	return s.sale, nil
}

func (s *stubBackend) CompleteTransaction(_ context.Context, saleID, key string, req backend.CompleteTransactionRequest) (*backend.Receipt, error) {
	s.payCalls++
	s.paySaleID = saleID
	s.payKey = key
	s.payReq = &req
	if s.payErr != nil {
		return nil, s.payErr
	}
	return s.receipt, nil
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func soap(stock int) backend.InventoryItem {
	return backend.InventoryItem{
		ID:              "inv-1",
		Name:            "Soap",
		Barcode:         "890",
		SalePrice:       d("100"),
		GSTPercentage:   d("5"),
		CurrentQuantity: &stock,
	}
}

func newService(t *testing.T, b Backend) *Service {
	t.Helper()
	svc, err := NewService(b, "3", nil)
	require.NoError(t, err)
	return svc
}

func TestChangeAndCanPay(t *testing.T) {
	total := d("210.00")
	assert.Equal(t, "40.00", Change(total, d("250")).StringFixed(2))

	if !CanPay(total, Payment{Method: MethodCash, AmountReceived: d("250")}) {
		t.Fatalf("expected payment enabled for 250")
	}
	if CanPay(total, Payment{Method: MethodCash, AmountReceived: d("200")}) {
		t.Fatalf("expected payment disabled below total")
	}
	if !CanPay(total, Payment{Method: MethodCash, AmountReceived: d("210")}) {
		t.Fatalf("exact amount should be accepted")
	}
}

func TestPaymentValidation(t *testing.T) {
	total := d("10")
	tests := []struct {
		name    string
		payment Payment
		field   string
	}{
		{"missing method", Payment{}, "paymentMethod"},
		{"unknown method", Payment{Method: "cheque"}, "paymentMethod"},
		{"card without last four", Payment{Method: MethodCard, TransactionID: "t"}, "lastFour"},
		{"card with letters", Payment{Method: MethodCard, LastFour: "12a4", TransactionID: "t"}, "lastFour"},
		{"card without txn", Payment{Method: MethodCard, LastFour: "1234"}, "transactionId"},
		{"upi without txn", Payment{Method: MethodUPI}, "transactionId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payment.Validate(total)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, ok := typed.Details().(map[string]string)
			require.True(t, ok, "details should be a field map")
			assert.Contains(t, details, tt.field)
		})
	}

	require.NoError(t, Payment{Method: MethodCard, LastFour: "4242", TransactionID: "txn"}.Validate(total))
	require.NoError(t, Payment{Method: MethodUPI, TransactionID: "upi-1"}.Validate(total))
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	stub := &stubBackend{}
	svc := newService(t, stub)
	_, err := svc.CreateOrder(context.Background(), NewOrder())
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Nil(t, stub.orderReq)
}

func TestCreateOrderBuildsRequest(t *testing.T) {
	stub := &stubBackend{sale: &backend.Sale{ID: "sale-1"}}
	svc := newService(t, stub)
	order := NewOrder()
	require.NoError(t, svc.AddInventoryItem(order, soap(10), 2))
	require.NoError(t, svc.SelectCustomer(order, backend.Customer{ID: "c1", Name: "Asha", Phone: "999"}))

	sale, err := svc.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "3", stub.orderReq.CounterNumber)
	assert.Equal(t, []backend.OrderItem{{Barcode: "890", Quantity: 2}}, stub.orderReq.Items)
	require.NotNil(t, stub.orderReq.CustomerDetails)
	assert.Equal(t, "c1", stub.orderReq.CustomerDetails.ID)
	assert.Equal(t, "210.00", sale.Total.StringFixed(2), "missing backend total falls back to cart totals")
	assert.NotEmpty(t, order.PaymentKey)

	err = svc.AddInventoryItem(order, soap(10), 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected cart frozen while sale is open, got %v", err)
	}
}

func TestCompleteTransactionSuccessClearsOrder(t *testing.T) {
	stub := &stubBackend{
		sale:    &backend.Sale{ID: "sale-1", Total: d("210")},
		receipt: &backend.Receipt{InvoiceNumber: "INV-7", PointsEarned: 210, Status: "completed"},
	}
	svc := newService(t, stub)
	order := NewOrder()
	require.NoError(t, svc.AddInventoryItem(order, soap(10), 2))
	require.NoError(t, svc.SelectCustomer(order, backend.Customer{ID: "c1", Name: "Asha"}))
	_, err := svc.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	key := order.PaymentKey

	receipt, err := svc.CompleteTransaction(context.Background(), order, Payment{Method: MethodCash, AmountReceived: d("250")}, "")
	require.NoError(t, err)
	assert.Equal(t, "sale-1", stub.paySaleID)
	assert.Equal(t, key, stub.payKey)
	require.NotNil(t, stub.payReq.AmountReceived)
	assert.Equal(t, "250", stub.payReq.AmountReceived.String())

	assert.Equal(t, "sale-1", receipt.SaleID)
	assert.Equal(t, "cash", receipt.PaymentMethod)
	require.NotNil(t, receipt.Change)
	assert.Equal(t, "40.00", receipt.Change.StringFixed(2))
	require.NotNil(t, receipt.Customer)
	assert.Equal(t, "Asha", receipt.Customer.Name)
	require.Len(t, receipt.Items, 1)

	assert.True(t, order.Cart.IsEmpty())
	assert.Nil(t, order.Customer)
	assert.Nil(t, order.Sale)
}

func TestCompleteTransactionFailureRetainsState(t *testing.T) {
	stub := &stubBackend{
		sale:   &backend.Sale{ID: "sale-1", Total: d("210")},
		payErr: pkgerrors.New(pkgerrors.CodeDependency, "card declined"),
	}
	svc := newService(t, stub)
	order := NewOrder()
	require.NoError(t, svc.AddInventoryItem(order, soap(10), 2))
	_, err := svc.CreateOrder(context.Background(), order)
	require.NoError(t, err)

	payment := Payment{Method: MethodCard, LastFour: "4242", TransactionID: "t-1"}
	_, err = svc.CompleteTransaction(context.Background(), order, payment, "")
	require.Error(t, err)
	firstKey := stub.payKey

	_, err = svc.CompleteTransaction(context.Background(), order, payment, "")
	require.Error(t, err)
	assert.Equal(t, firstKey, stub.payKey, "retries of one sale reuse the settlement key")

	assert.Equal(t, 1, order.Cart.LineCount())
	require.NotNil(t, order.Sale)
	assert.Equal(t, 2, stub.payCalls)
}

func TestCompleteTransactionGuards(t *testing.T) {
	stub := &stubBackend{sale: &backend.Sale{ID: "sale-1", Total: d("210")}}
	svc := newService(t, stub)
	order := NewOrder()

	_, err := svc.CompleteTransaction(context.Background(), order, Payment{Method: MethodCash, AmountReceived: d("300")}, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict without sale, got %v", err)
	}

	require.NoError(t, svc.AddInventoryItem(order, soap(10), 2))
	_, err = svc.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	_, err = svc.CompleteTransaction(context.Background(), order, Payment{Method: MethodCash, AmountReceived: d("200")}, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for short cash, got %v", err)
	}
	assert.Equal(t, 0, stub.payCalls)
}

func TestLineFromInventory(t *testing.T) {
	item := soap(4)
	line := LineFromInventory(item)
	assert.True(t, line.UnitPrice.Equal(d("100")), "missing cost uses sale price")
	assert.Equal(t, 4, line.Stock())

	item.CostPrice = d("70")
	line = LineFromInventory(item)
	assert.True(t, line.UnitPrice.Equal(d("70")))

	c := cart.New(cart.FlowPointOfSale)
	require.NoError(t, c.AddOrMerge(line, 1))
}

func TestSelectCustomer(t *testing.T) {
	svc := newService(t, &stubBackend{})
	order := NewOrder()
	err := svc.SelectCustomer(order, backend.Customer{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	require.NoError(t, svc.SelectCustomer(order, backend.Customer{ID: "a"}))
	require.NoError(t, svc.SelectCustomer(order, backend.Customer{ID: "b"}))
	assert.Equal(t, "b", order.Customer.ID)
	svc.ClearCustomer(order)
	assert.Nil(t, order.Customer)
}
