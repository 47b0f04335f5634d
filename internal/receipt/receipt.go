package receipt

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/pkg/backend"
	"github.com/angelmondragon/posterminal/pkg/config"
	"github.com/angelmondragon/posterminal/pkg/money"
	"github.com/angelmondragon/posterminal/pkg/printer"
)

// Header is the store block printed on top of every receipt.
type Header struct {
	StoreName string
	Address   string
	Phone     string
	TaxID     string
}

func HeaderFromConfig(cfg config.ReceiptConfig) Header {
	return Header{
		StoreName: strings.TrimSpace(cfg.StoreName),
		Address:   strings.TrimSpace(cfg.Address),
		Phone:     strings.TrimSpace(cfg.Phone),
		TaxID:     strings.TrimSpace(cfg.TaxID),
	}
}

//go:embed receipt.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"amount": money.Format,
}).Parse(htmlSource))

type detail struct {
	Label string
	Value string
}

type view struct {
	Header   Header
	Receipt  backend.Receipt
	Details  []detail
	HasTotal bool
}

// RenderHTML produces a standalone printable page that prints itself once loaded.
func RenderHTML(r backend.Receipt, h Header) ([]byte, error) {
	var buf bytes.Buffer
	data := view{
		Header:   h,
		Receipt:  r,
		Details:  paymentDetails(r.PaymentDetails),
		HasTotal: !r.Total.IsZero() || len(r.Items) > 0,
	}
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering receipt %s: %w", r.SaleID, err)
	}
	return buf.Bytes(), nil
}

// RenderESCPOS lays the receipt out for a thermal printer of the given width.
func RenderESCPOS(r backend.Receipt, h Header, width int) []byte {
	doc := printer.NewDocument(width)

	doc.Align(printer.AlignCenter).Bold(true).Size(printer.FontDouble)
	doc.Line(h.StoreName)
	doc.Size(printer.FontNormal).Bold(false)
	for _, line := range []string{h.Address, h.Phone} {
		if line != "" {
			doc.Line(line)
		}
	}
	if h.TaxID != "" {
		doc.Linef("Tax ID: %s", h.TaxID)
	}

	doc.Align(printer.AlignLeft).Separator('=')
	if r.InvoiceNumber != "" {
		doc.Columns("Invoice", r.InvoiceNumber)
	}
	if r.Date != "" {
		doc.Columns("Date", r.Date)
	}
	if r.Customer != nil {
		doc.Columns("Customer", firstNonEmpty(r.Customer.Name, r.Customer.Phone))
	}
	doc.Separator('-')

	for _, item := range r.Items {
		doc.Columns(fmt.Sprintf("%dx %s", item.Quantity, item.Name), money.Format(item.Total))
		if item.DiscountAmount.IsPositive() {
			doc.Columns("   discount", "-"+money.Format(item.DiscountAmount))
		}
	}

	doc.Separator('-')
	doc.Columns("Subtotal", money.Format(r.Subtotal))
	doc.Columns("Tax", money.Format(r.Tax))
	if r.Discount.IsPositive() {
		doc.Columns("Discount", "-"+money.Format(r.Discount))
	}
	doc.Bold(true).Columns("TOTAL", money.Format(r.Total)).Bold(false)
	doc.Separator('-')

	doc.Columns("Payment", strings.ToUpper(r.PaymentMethod))
	for _, d := range paymentDetails(r.PaymentDetails) {
		doc.Columns(d.Label, d.Value)
	}
	if r.Change != nil {
		doc.Columns("Change", money.Format(*r.Change))
	}
	if r.PointsEarned > 0 {
		doc.Columns("Points earned", fmt.Sprintf("%d", r.PointsEarned))
	}

	doc.Align(printer.AlignCenter).Feed(1).Line("Thank you!").Feed(3).Cut()
	return doc.Bytes()
}

// paymentDetails flattens the backend's free-form payment details in a stable order.
func paymentDetails(details map[string]any) []detail {
	if len(details) == 0 {
		return nil
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]detail, 0, len(keys))
	for _, k := range keys {
		value := formatValue(details[k])
		if value == "" {
			continue
		}
		out = append(out, detail{Label: labelFor(k), Value: value})
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return money.Format(decimal.NewFromFloat(val))
	case decimal.Decimal:
		return money.Format(val)
	default:
		return fmt.Sprint(val)
	}
}

var labels = map[string]string{
	"amountReceived": "Received",
	"lastFour":       "Card",
	"transactionId":  "Txn ID",
}

func labelFor(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
