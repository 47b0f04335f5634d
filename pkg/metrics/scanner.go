package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScannerMetrics records decode-loop and device acquisition outcomes.
type ScannerMetrics struct {
	decoded     *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	decodeErrs  *prometheus.CounterVec
	acquireErrs *prometheus.CounterVec
}

// NewScannerMetrics registers the scanner metrics on the provided registerer.
func NewScannerMetrics(reg prometheus.Registerer) *ScannerMetrics {
	if reg == nil {
		return &ScannerMetrics{}
	}
	decoded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_codes_decoded_total",
		Help: "Barcodes captured and emitted to the terminal.",
	}, []string{"device"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_duplicates_suppressed_total",
		Help: "Repeated decodes of a code still in view.",
	}, []string{"device"})
	decodeErrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_decode_errors_total",
		Help: "Unexpected decoder failures.",
	}, []string{"device"})
	acquireErrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_acquire_failures_total",
		Help: "Device acquisition failures by reason.",
	}, []string{"reason"})
	reg.MustRegister(decoded, duplicates, decodeErrs, acquireErrs)
	return &ScannerMetrics{
		decoded:     decoded,
		duplicates:  duplicates,
		decodeErrs:  decodeErrs,
		acquireErrs: acquireErrs,
	}
}

func (s *ScannerMetrics) IncDecoded(device string) {
	if s == nil || s.decoded == nil {
		return
	}
	s.decoded.WithLabelValues(normalizeLabel(device)).Inc()
}

func (s *ScannerMetrics) IncDuplicate(device string) {
	if s == nil || s.duplicates == nil {
		return
	}
	s.duplicates.WithLabelValues(normalizeLabel(device)).Inc()
}

func (s *ScannerMetrics) IncDecodeError(device string) {
	if s == nil || s.decodeErrs == nil {
		return
	}
	s.decodeErrs.WithLabelValues(normalizeLabel(device)).Inc()
}

// IncAcquireFailure counts a failed acquisition; reason is "denied" or "unavailable".
func (s *ScannerMetrics) IncAcquireFailure(reason string) {
	if s == nil || s.acquireErrs == nil {
		return
	}
	s.acquireErrs.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
