// Package scanner turns a barcode capture device into a stream of decoded codes,
// at most one per physical scan, with device selection and failure recovery.
package scanner

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrNotFound is returned by a Decoder when the current frame holds no code.
	// It is expected noise and never leaves this package.
	ErrNotFound = errors.New("no code in frame")
	// ErrPermissionDenied is returned by Devices when access to the hardware is refused.
	ErrPermissionDenied = errors.New("device permission denied")
	// ErrNoDevice is returned by Devices when no capture hardware is present.
	ErrNoDevice = errors.New("no capture device found")
	// ErrTorchUnsupported is returned by Stream.SetTorch on hardware without a light.
	ErrTorchUnsupported = errors.New("torch not supported")
)

// DeviceInfo describes one capture device. Labels may be empty before access is granted.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Devices enumerates and acquires capture hardware.
type Devices interface {
	Enumerate(ctx context.Context) ([]DeviceInfo, error)
	// Acquire opens the device. An empty id opens whatever the platform picks.
	Acquire(ctx context.Context, id string) (Stream, error)
}

type Capabilities struct {
	Torch bool `json:"torch"`
}

// Stream is an acquired device. Its tracks must be stopped to release the hardware.
type Stream interface {
	Tracks() []Track
	Capabilities() Capabilities
	SetTorch(on bool) error
}

type Track interface {
	Stop() error
}

// Decoder extracts a code from the stream's current frame.
type Decoder interface {
	Decode(ctx context.Context, stream Stream) (string, error)
}

// Release stops every track of stream and reports all failures together.
func Release(stream Stream) error {
	if stream == nil {
		return nil
	}
	var err error
	for _, track := range stream.Tracks() {
		if track == nil {
			continue
		}
		err = multierr.Append(err, track.Stop())
	}
	return err
}

var rearLabels = []string{"back", "rear", "environment"}

// isRearFacing matches labels that name the rear/environment device.
func isRearFacing(label string) bool {
	lower := strings.ToLower(label)
	for _, marker := range rearLabels {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// preferredDevice returns the index of the first rear-facing device, or 0 and
// front=true when none is labelled as such.
func preferredDevice(devices []DeviceInfo) (index int, front bool) {
	for i, d := range devices {
		if isRearFacing(d.Label) {
			return i, false
		}
	}
	return 0, true
}
