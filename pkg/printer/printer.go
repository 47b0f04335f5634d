package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/angelmondragon/posterminal/pkg/config"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// Printer sends a finished ESC/POS stream to hardware. Each call opens and
// closes its own connection so a printer power cycle never wedges the terminal.
type Printer interface {
	Print(ctx context.Context, data []byte) error
	Ready() bool
}

// New builds the printer selected by the receipt configuration.
func New(cfg config.ReceiptConfig) (Printer, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.PrinterKind))
	switch kind {
	case config.PrinterKindNone, "":
		return Null{}, nil
	case config.PrinterKindNetwork:
		if strings.TrimSpace(cfg.PrinterAddress) == "" {
			return nil, fmt.Errorf("printer: address is required for network printers")
		}
		return NewNetwork(cfg.PrinterAddress), nil
	case config.PrinterKindDevice:
		if strings.TrimSpace(cfg.PrinterAddress) == "" {
			return nil, fmt.Errorf("printer: device path is required for device printers")
		}
		return NewDevice(cfg.PrinterAddress), nil
	default:
		return nil, fmt.Errorf("printer: unknown kind %q", cfg.PrinterKind)
	}
}

// Network prints over raw TCP, usually port 9100.
type Network struct {
	address string
	dialer  net.Dialer
}

func NewNetwork(address string) *Network {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "9100")
	}
	return &Network{address: address, dialer: net.Dialer{Timeout: dialTimeout}}
}

func (p *Network) Print(ctx context.Context, data []byte) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

func (p *Network) Ready() bool {
	conn, err := net.DialTimeout("tcp", p.address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Device writes to a character device such as /dev/usb/lp0.
type Device struct {
	path string
}

func NewDevice(path string) *Device {
	return &Device{path: path}
}

func (p *Device) Print(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s: %w", p.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("printer: write %s: %w", p.path, err)
	}
	return f.Close()
}

func (p *Device) Ready() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// ErrNotConfigured is returned by Null so the cashier falls back to the HTML receipt.
var ErrNotConfigured = errors.New("printer: no printer configured")

// Null is used when no printer is attached.
type Null struct{}

func (Null) Print(context.Context, []byte) error { return ErrNotConfigured }

func (Null) Ready() bool { return false }
