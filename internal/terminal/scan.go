package terminal

import (
	"context"
	"time"

	"github.com/angelmondragon/posterminal/internal/scanner"
	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
)

// ScanOutcome records what happened to the last captured code.
type ScanOutcome struct {
	Code     string    `json:"code"`
	DeviceID string    `json:"deviceId"`
	At       time.Time `json:"at"`
	Added    bool      `json:"added"`
	Item     string    `json:"item,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type ScannerView struct {
	State    scanner.State `json:"state"`
	LastScan *ScanOutcome  `json:"lastScan,omitempty"`
}

// Run feeds captured codes into the cart until ctx is done or the scanner closes.
// After each code the scanner is re-armed so the next item can be scanned; the
// same code is only taken again after ResetScanner.
func (t *Terminal) Run(ctx context.Context) error {
	if t.scanner == nil {
		<-ctx.Done()
		return nil
	}
	events := t.scanner.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.handleScan(ctx, ev)
		}
	}
}

func (t *Terminal) handleScan(ctx context.Context, ev scanner.Event) {
	ctx = t.logger.WithFields(t.ctx(ctx), map[string]any{"barcode": ev.Code, "device_id": ev.DeviceID})
	outcome := ScanOutcome{Code: ev.Code, DeviceID: ev.DeviceID, At: ev.At}

	view, err := t.AddByBarcode(ctx, ev.Code, 1)
	if err != nil {
		outcome.Error = publicMessage(err)
		t.logger.Warn(ctx, "scanned code not added: "+err.Error())
	} else {
		outcome.Added = true
		for _, line := range view.Items {
			if line.Barcode == ev.Code {
				outcome.Item = line.Name
				break
			}
		}
	}

	t.mu.Lock()
	t.lastScan = &outcome
	t.mu.Unlock()

	if err := t.scanner.Reset(ctx); err != nil {
		t.logger.Warn(ctx, "re-arming scanner: "+err.Error())
	}
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func (t *Terminal) Scanner() ScannerView {
	t.mu.Lock()
	last := t.lastScan
	t.mu.Unlock()

	v := ScannerView{LastScan: last}
	if t.scanner == nil {
		v.State = scanner.State{Status: scanner.StatusUnavailable, LastError: "no scanner configured"}
		return v
	}
	v.State = t.scanner.State()
	return v
}

func (t *Terminal) StartScanner(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(ctx context.Context, s Scanner) error { return s.Initialize(ctx) })
}

func (t *Terminal) RetryScanner(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(ctx context.Context, s Scanner) error { return s.RetryPermission(ctx) })
}

func (t *Terminal) SwitchCamera(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(ctx context.Context, s Scanner) error { return s.SwitchCamera(ctx) })
}

func (t *Terminal) ToggleTorch(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(ctx context.Context, s Scanner) error {
		_, err := s.ToggleTorch(ctx)
		return err
	})
}

// ResetScanner forgets the last code so the same barcode can be scanned again.
func (t *Terminal) ResetScanner(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(ctx context.Context, s Scanner) error { return s.Rescan(ctx) })
}

// StopScanner releases the device. A stopped session cannot be restarted.
func (t *Terminal) StopScanner(ctx context.Context) (ScannerView, error) {
	return t.scannerOp(ctx, func(_ context.Context, s Scanner) error { return s.Close() })
}

func (t *Terminal) scannerOp(ctx context.Context, fn func(context.Context, Scanner) error) (ScannerView, error) {
	if t.scanner == nil {
		return ScannerView{}, pkgerrors.New(pkgerrors.CodeDeviceUnavailable, "no scanner configured")
	}
	if err := fn(t.ctx(ctx), t.scanner); err != nil {
		return ScannerView{}, err
	}
	return t.Scanner(), nil
}
