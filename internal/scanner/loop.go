package scanner

import (
	"context"
	"errors"
	"time"
)

// startLoopLocked starts a decode loop against the current stream. With delay set
// the first decode waits one retry interval so a code still in frame is not read
// the instant the loop resumes. The caller holds s.mu.
func (s *Session) startLoopLocked(delay bool) {
	if s.closed || s.stream == nil || s.hasScanned || s.loopActive {
		return
	}
	if s.loopCancel != nil {
		// The previous loop already captured and is on its way out.
		s.loopCancel()
	}
	s.loopID++
	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	s.loopActive = true

	deviceID := ""
	if s.index < len(s.list) {
		deviceID = s.list[s.index].ID
	}
	s.loops.Add(1)
	go s.run(ctx, s.loopID, s.stream, deviceID, delay, done)
}

// stopLoop cancels the running loop and waits for it to exit. The caller must not hold s.mu.
func (s *Session) stopLoop() {
	s.mu.Lock()
	cancel, done := s.loopCancel, s.loopDone
	s.loopCancel, s.loopDone = nil, nil
	s.loopActive = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Session) run(ctx context.Context, id uint64, stream Stream, deviceID string, delay bool, done chan struct{}) {
	defer s.loops.Done()
	defer close(done)
	ticker := time.NewTicker(s.opts.RetryInterval)
	defer ticker.Stop()

	if delay {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	for {
		if s.decodeOnce(ctx, id, stream, deviceID) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// decodeOnce makes one decode attempt and reports whether the loop should exit.
func (s *Session) decodeOnce(ctx context.Context, id uint64, stream Stream, deviceID string) bool {
	if ctx.Err() != nil {
		return true
	}
	code, err := s.decoder.Decode(ctx, stream)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if errors.Is(err, ErrNotFound) {
			return false
		}
		s.metrics.IncDecodeError(deviceID)
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error(s.logger.WithDevice(ctx, deviceID), "barcode decode failed", err)
		return false
	}
	if code == "" {
		return false
	}

	s.mu.Lock()
	if s.loopID != id || !s.loopActive || s.hasScanned {
		s.mu.Unlock()
		return true
	}
	if code == s.lastCode {
		s.mu.Unlock()
		s.metrics.IncDuplicate(deviceID)
		return false
	}
	s.hasScanned = true
	s.lastCode = code
	s.lastErr = ""
	s.loopActive = false
	s.mu.Unlock()

	s.metrics.IncDecoded(deviceID)
	select {
	case s.events <- Event{Code: code, DeviceID: deviceID, At: time.Now().UTC()}:
	case <-ctx.Done():
	}
	return true
}
