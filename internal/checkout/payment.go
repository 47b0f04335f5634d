package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posterminal/api/validators"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/money"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
	MethodUPI  Method = "upi"
)

// Payment is what the cashier enters on the payment screen.
type Payment struct {
	Method         Method          `json:"paymentMethod" validate:"required,oneof=cash card upi"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	LastFour       string          `json:"lastFour" validate:"required_if=Method card"`
	TransactionID  string          `json:"transactionId" validate:"required_unless=Method cash"`
}

// Change is what the cashier hands back for a cash payment, rounded for display.
func Change(total, received decimal.Decimal) decimal.Decimal {
	return money.Round(received.Sub(total))
}

// CanPay reports whether the payment action should be enabled for the amount due.
func CanPay(total decimal.Decimal, p Payment) bool {
	return p.Validate(total) == nil
}

// Validate checks the method-specific fields against the amount due.
func (p Payment) Validate(total decimal.Decimal) error {
	p.LastFour = strings.TrimSpace(p.LastFour)
	p.TransactionID = strings.TrimSpace(p.TransactionID)
	if err := validators.Struct(p); err != nil {
		return err
	}

	switch p.Method {
	case MethodCash:
		if p.AmountReceived.LessThan(money.Round(total)) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "amount received %s is below the total %s", money.Format(p.AmountReceived), money.Format(total)).
				WithDetails(map[string]string{"amountReceived": "must be at least the total"})
		}
	case MethodCard:
		if !isDigits(p.LastFour, 4) {
			return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"lastFour": "must be 4 digits"})
		}
	}
	return nil
}

// details is the method-specific summary printed on the receipt.
func (p Payment) details() map[string]any {
	switch p.Method {
	case MethodCash:
		return map[string]any{"amountReceived": money.Format(p.AmountReceived)}
	case MethodCard:
		return map[string]any{"lastFour": strings.TrimSpace(p.LastFour), "transactionId": strings.TrimSpace(p.TransactionID)}
	default:
		return map[string]any{"transactionId": strings.TrimSpace(p.TransactionID)}
	}
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
