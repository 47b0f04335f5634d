package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/posterminal/pkg/errors"
	"github.com/angelmondragon/posterminal/pkg/logger"
	"github.com/angelmondragon/posterminal/pkg/metrics"
)

type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusDenied       Status = "denied"
	StatusUnavailable  Status = "unavailable"
	StatusClosed       Status = "closed"
)

const (
	defaultRetryInterval = 100 * time.Millisecond
	defaultSettleDelay   = 300 * time.Millisecond
	defaultEventBuffer   = 8
)

// Event is one captured code.
type Event struct {
	Code     string    `json:"code"`
	DeviceID string    `json:"deviceId"`
	At       time.Time `json:"at"`
}

// State is a point-in-time copy of the session for display.
type State struct {
	Status          Status       `json:"status"`
	Scanning        bool         `json:"scanning"`
	HasScanned      bool         `json:"hasScanned"`
	LastScannedCode string       `json:"lastScannedCode,omitempty"`
	Devices         []DeviceInfo `json:"devices"`
	CurrentIndex    int          `json:"currentIndex"`
	FrontFacing     bool         `json:"frontFacing"`
	TorchSupported  bool         `json:"torchSupported"`
	TorchEnabled    bool         `json:"torchEnabled"`
	LastError       string       `json:"lastError,omitempty"`
}

type Options struct {
	RetryInterval time.Duration
	SettleDelay   time.Duration
	EventBuffer   int
	Logger        *logger.Logger
	Metrics       *metrics.ScannerMetrics
}

// Session owns one capture device at a time and runs at most one decode loop against it.
// Lifecycle operations are serialized; the decode loop only touches capture state.
type Session struct {
	devices Devices
	decoder Decoder
	opts    Options
	logger  *logger.Logger
	metrics *metrics.ScannerMetrics

	events chan Event
	base   context.Context
	cancel context.CancelFunc

	// opMu serializes lifecycle operations so devices are switched stop-then-start.
	opMu  sync.Mutex
	loops sync.WaitGroup

	mu         sync.Mutex
	status     Status
	stream     Stream
	list       []DeviceInfo
	index      int
	front      bool
	torch      bool
	hasScanned bool
	lastCode   string
	lastErr    string
	loopID     uint64
	loopActive bool
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	closed     bool
}

func NewSession(devices Devices, decoder Decoder, opts Options) *Session {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	base, cancel := context.WithCancel(context.Background())
	return &Session{
		devices: devices,
		decoder: decoder,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		events:  make(chan Event, opts.EventBuffer),
		base:    base,
		cancel:  cancel,
		status:  StatusInitializing,
	}
}

// Events delivers captured codes. The channel is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Status:          s.status,
		Scanning:        s.loopActive,
		HasScanned:      s.hasScanned,
		LastScannedCode: s.lastCode,
		Devices:         append([]DeviceInfo(nil), s.list...),
		CurrentIndex:    s.index,
		FrontFacing:     s.front,
		TorchEnabled:    s.torch,
		LastError:       s.lastErr,
	}
	if s.stream != nil {
		st.TorchSupported = s.stream.Capabilities().Torch
	}
	return st
}

// Initialize probes the hardware once so labels become readable, enumerates the
// devices, releases the probe and acquires the preferred device. Failures leave
// the session denied or unavailable until RetryPermission. Calling it on a live
// session stops the loop and releases the held device before probing again.
func (s *Session) Initialize(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.reinitialize(ctx, "releasing scanner before initialize")
}

// RetryPermission is the user-triggered recovery from denied or unavailable.
func (s *Session) RetryPermission(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.reinitialize(ctx, "releasing scanner before retry")
}

// reinitialize is stop-then-start: the device handle is never held twice. The caller holds s.opMu.
func (s *Session) reinitialize(ctx context.Context, warn string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.stopLoop()
	if err := s.releaseCurrent(); err != nil {
		s.logger.Warn(ctx, warn+": "+err.Error())
	}
	return s.initialize(ctx)
}

func (s *Session) initialize(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.setStatus(ctx, StatusInitializing, "")

	probe, err := s.devices.Acquire(ctx, "")
	if err != nil {
		return s.fail(ctx, err)
	}
	list, err := s.devices.Enumerate(ctx)
	if releaseErr := Release(probe); releaseErr != nil {
		s.logger.Warn(ctx, "releasing probe stream: "+releaseErr.Error())
	}
	if err != nil {
		return s.fail(ctx, err)
	}
	if len(list) == 0 {
		return s.fail(ctx, ErrNoDevice)
	}

	index, front := preferredDevice(list)
	s.mu.Lock()
	s.list = list
	s.index = index
	s.front = front
	s.mu.Unlock()

	return s.acquire(ctx, list[index])
}

// acquire opens device and starts scanning with capture state cleared.
func (s *Session) acquire(ctx context.Context, device DeviceInfo) error {
	stream, err := s.devices.Acquire(ctx, device.ID)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return multierr.Append(pkgerrors.New(pkgerrors.CodeStateConflict, "scanner session closed"), Release(stream))
	}
	s.stream = stream
	s.torch = false
	s.hasScanned = false
	s.lastCode = ""
	s.lastErr = ""
	s.status = StatusReady
	s.startLoopLocked(false)
	s.mu.Unlock()

	s.logger.Info(s.logger.WithDevice(ctx, device.ID), "scanner ready")
	return nil
}

// SwitchCamera moves to the next device cyclically. It is a no-op with fewer than two devices.
func (s *Session) SwitchCamera(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.list) < 2 {
		s.mu.Unlock()
		return nil
	}
	s.index = (s.index + 1) % len(s.list)
	next := s.list[s.index]
	s.front = !isRearFacing(next.Label)
	s.hasScanned = false
	s.lastCode = ""
	s.mu.Unlock()

	s.stopLoop()
	if err := s.releaseCurrent(); err != nil {
		s.logger.Warn(ctx, "releasing previous scanner: "+err.Error())
	}

	// Give the previous device time to let go of the hardware.
	if s.opts.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return s.fail(ctx, ctx.Err())
		case <-time.After(s.opts.SettleDelay):
		}
	}
	return s.acquire(ctx, next)
}

// ToggleTorch flips the device light. An unsupported light returns an UNSUPPORTED
// error and changes nothing; a failure applying it is only logged.
func (s *Session) ToggleTorch(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	stream, enabled := s.stream, s.torch
	s.mu.Unlock()

	if stream == nil {
		return false, pkgerrors.New(pkgerrors.CodeDeviceUnavailable, "no active scanner device")
	}
	if !stream.Capabilities().Torch {
		return enabled, pkgerrors.New(pkgerrors.CodeUnsupported, "torch is not supported on this device")
	}
	if err := stream.SetTorch(!enabled); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "torch toggle failed")
		return enabled, nil
	}

	s.mu.Lock()
	s.torch = !enabled
	s.mu.Unlock()
	return !enabled, nil
}

// Reset leaves the captured state and resumes scanning. The last code is kept, so
// a barcode still in front of the device is not read again; a different code is.
func (s *Session) Reset(ctx context.Context) error {
	return s.resume(ctx, false)
}

// Rescan is Reset that also forgets the last code, for scanning the same item again.
func (s *Session) Rescan(ctx context.Context) error {
	return s.resume(ctx, true)
}

func (s *Session) resume(_ context.Context, forget bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasScanned = false
	if forget {
		s.lastCode = ""
	}
	if s.status == StatusReady && !s.loopActive {
		s.startLoopLocked(true)
	}
	return nil
}

// Close stops the decode loop and every track of the active device. It is safe to call repeatedly.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stopLoop()
	err := s.releaseCurrent()
	s.cancel()
	s.loops.Wait()

	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()
	close(s.events)

	if err != nil {
		s.logger.Error(context.Background(), "scanner teardown", err)
	}
	return err
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "scanner session closed")
	}
	return nil
}

func (s *Session) releaseCurrent() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.torch = false
	s.mu.Unlock()
	return Release(stream)
}

// fail records a hard acquisition failure and maps it to the capability error taxonomy.
func (s *Session) fail(ctx context.Context, err error) error {
	status, code, msg := StatusUnavailable, pkgerrors.CodeDeviceUnavailable, "scanner unavailable"
	reason := "unavailable"
	switch {
	case errors.Is(err, ErrPermissionDenied):
		status, code, msg, reason = StatusDenied, pkgerrors.CodePermissionDenied, "scanner permission denied", "denied"
	case errors.Is(err, ErrNoDevice):
		msg = "no scanner device found"
	}
	s.metrics.IncAcquireFailure(reason)
	s.setStatus(ctx, status, err.Error())
	return pkgerrors.Wrap(code, err, msg)
}

func (s *Session) setStatus(ctx context.Context, status Status, detail string) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.lastErr = detail
	s.mu.Unlock()
	if changed {
		s.logger.Info(s.logger.WithField(ctx, "scanner_status", string(status)), "scanner status changed")
	}
}
