package backend

import (
	"github.com/shopspring/decimal"
)

// ItemSuggestion is a catalogue hit returned by the item search used when composing purchase orders.
type ItemSuggestion struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Barcode         string          `json:"barcode"`
	Category        string          `json:"category,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	GSTPercentage   decimal.Decimal `json:"gstPercentage"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	CurrentQuantity *int            `json:"currentQuantity,omitempty"`
}

type Dealer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	GSTNumber string `json:"gstNumber,omitempty"`
	Address   string `json:"address,omitempty"`
}

// InventoryItem is a sellable item as seen at the counter.
type InventoryItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Barcode         string          `json:"barcode"`
	Category        string          `json:"category,omitempty"`
	CostPrice       decimal.Decimal `json:"unitPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	GSTPercentage   decimal.Decimal `json:"gstPercentage"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	CurrentQuantity *int            `json:"currentQuantity,omitempty"`
}

type Customer struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	LoyaltyPoints int    `json:"loyaltyPoints,omitempty"`
}

// PurchaseOrderItem references an existing item by ID or describes a new one in full.
type PurchaseOrderItem struct {
	ItemID          string          `json:"itemId,omitempty"`
	IsNew           bool            `json:"isNew"`
	Name            string          `json:"name,omitempty"`
	Barcode         string          `json:"barcode,omitempty"`
	Category        string          `json:"category,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	GSTPercentage   decimal.Decimal `json:"gstPercentage"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Quantity        int             `json:"quantity"`
}

type PurchaseOrderRequest struct {
	DealerID      string              `json:"dealerId"`
	PONumber      string              `json:"poNumber,omitempty"`
	InvoiceNumber string              `json:"invoiceNumber,omitempty"`
	OrderDate     string              `json:"orderDate,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Tax           decimal.Decimal     `json:"tax"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	Items         []PurchaseOrderItem `json:"items"`
}

type PurchaseOrder struct {
	ID       string `json:"id"`
	PONumber string `json:"poNumber,omitempty"`
	Message  string `json:"message,omitempty"`
}

type OrderItem struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

type CustomerDetails struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type CreateOrderRequest struct {
	CounterNumber   string           `json:"counterNumber"`
	Items           []OrderItem      `json:"items"`
	CustomerDetails *CustomerDetails `json:"customerDetails,omitempty"`
}

// Sale is the pending sale the backend opens before payment is settled.
type Sale struct {
	ID       string          `json:"saleId"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Status   string          `json:"status,omitempty"`
}

// CompleteTransactionRequest carries the method-specific settlement fields.
type CompleteTransactionRequest struct {
	PaymentMethod  string           `json:"paymentMethod"`
	AmountReceived *decimal.Decimal `json:"amountReceived,omitempty"`
	LastFour       string           `json:"lastFour,omitempty"`
	TransactionID  string           `json:"transactionId,omitempty"`
}

type ReceiptItem struct {
	Name           string          `json:"name"`
	Barcode        string          `json:"barcode,omitempty"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	GSTPercentage  decimal.Decimal `json:"gstPercentage"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
}

// Receipt is the settlement result returned by complete-transaction.
type Receipt struct {
	SaleID         string           `json:"saleId,omitempty"`
	Items          []ReceiptItem    `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	Tax            decimal.Decimal  `json:"tax"`
	Discount       decimal.Decimal  `json:"discount"`
	Total          decimal.Decimal  `json:"total"`
	PaymentMethod  string           `json:"paymentMethod"`
	PaymentDetails map[string]any   `json:"paymentDetails,omitempty"`
	PointsEarned   int              `json:"pointsEarned"`
	InvoiceNumber  string           `json:"invoiceNumber"`
	Date           string           `json:"date"`
	Status         string           `json:"status"`
	Customer       *CustomerDetails `json:"customer,omitempty"`
	Change         *decimal.Decimal `json:"change,omitempty"`
}
