package pos

import (
	"context"
	"net/http"

	"github.com/angelmondragon/posterminal/api/responses"
	"github.com/angelmondragon/posterminal/internal/terminal"
	"github.com/angelmondragon/posterminal/pkg/logger"
)

type ScannerService interface {
	Scanner() terminal.ScannerView
	StartScanner(ctx context.Context) (terminal.ScannerView, error)
	RetryScanner(ctx context.Context) (terminal.ScannerView, error)
	SwitchCamera(ctx context.Context) (terminal.ScannerView, error)
	ToggleTorch(ctx context.Context) (terminal.ScannerView, error)
	ResetScanner(ctx context.Context) (terminal.ScannerView, error)
	StopScanner(ctx context.Context) (terminal.ScannerView, error)
}

type scannerAction func(ScannerService, context.Context) (terminal.ScannerView, error)

func GetScanner(svc ScannerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Scanner())
	}
}

func StartScanner(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.StartScanner)
}

// RetryScanner asks for device access again after it was denied.
func RetryScanner(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.RetryScanner)
}

func SwitchCamera(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.SwitchCamera)
}

func ToggleTorch(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.ToggleTorch)
}

// ResetScanner clears the last capture so the same code can be scanned again.
func ResetScanner(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.ResetScanner)
}

func StopScanner(svc ScannerService, logg *logger.Logger) http.HandlerFunc {
	return scannerHandler(svc, logg, ScannerService.StopScanner)
}

func scannerHandler(svc ScannerService, logg *logger.Logger, action scannerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := action(svc, ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
