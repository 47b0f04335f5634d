package terminal

import (
	"context"

	"github.com/angelmondragon/posterminal/internal/receipt"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

// ReceiptHTML renders a settled sale as a printable page. Nothing is stored.
func (t *Terminal) ReceiptHTML(saleID string) ([]byte, error) {
	r, err := t.Receipt(saleID)
	if err != nil {
		return nil, err
	}
	page, err := receipt.RenderHTML(r, t.header)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering receipt")
	}
	return page, nil
}

// PrintReceipt sends a settled sale to the counter's thermal printer.
func (t *Terminal) PrintReceipt(ctx context.Context, saleID string) error {
	ctx = t.logger.WithSaleID(t.ctx(ctx), saleID)
	r, err := t.Receipt(saleID)
	if err != nil {
		return err
	}
	if err := t.printer.Print(ctx, receipt.RenderESCPOS(r, t.header, t.width)); err != nil {
		t.logger.Error(ctx, "printing receipt", err)
		return pkgerrors.Wrap(pkgerrors.CodeDeviceUnavailable, err, "printer unavailable")
	}
	t.logger.Info(ctx, "receipt printed")
	return nil
}

// PrinterReady reports whether the configured printer answers.
func (t *Terminal) PrinterReady() bool {
	return t.printer.Ready()
}
