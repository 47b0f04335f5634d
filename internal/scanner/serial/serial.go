// Package serial adapts line-oriented barcode readers (USB HID/CDC devices that
// emit one code per line, e.g. /dev/ttyACM0) to the scanner capability interfaces.
package serial

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/angelmondragon/posterminal/internal/scanner"
	"github.com/angelmondragon/posterminal/pkg/config"
)

const lineBuffer = 16

var errDisconnected = errors.New("scanner device disconnected")

// Opener opens a device path. It is swapped in tests.
type Opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}

// Devices exposes the configured reader paths.
type Devices struct {
	specs []config.DeviceSpec
	open  Opener
	stat  func(string) (fs.FileInfo, error)
}

func NewDevices(specs []config.DeviceSpec) *Devices {
	return &Devices{specs: specs, open: openFile, stat: os.Stat}
}

// WithOpener replaces how device paths are opened and checked.
func (d *Devices) WithOpener(open Opener, stat func(string) (fs.FileInfo, error)) *Devices {
	if open != nil {
		d.open = open
	}
	if stat != nil {
		d.stat = stat
	}
	return d
}

// Enumerate lists configured devices that exist. A device we cannot stat for
// permission reasons is still listed so acquisition can report the denial.
func (d *Devices) Enumerate(ctx context.Context) ([]scanner.DeviceInfo, error) {
	var out []scanner.DeviceInfo
	for _, spec := range d.specs {
		if _, err := d.stat(spec.Path); err != nil && !errors.Is(err, fs.ErrPermission) {
			continue
		}
		out = append(out, scanner.DeviceInfo{ID: spec.Path, Label: spec.Label})
	}
	return out, nil
}

func (d *Devices) Acquire(ctx context.Context, id string) (scanner.Stream, error) {
	path := strings.TrimSpace(id)
	if path == "" {
		devices, _ := d.Enumerate(ctx)
		if len(devices) == 0 {
			return nil, scanner.ErrNoDevice
		}
		path = devices[0].ID
	}

	rc, err := d.open(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", scanner.ErrPermissionDenied, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", scanner.ErrNoDevice, path)
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return newStream(path, rc), nil
}

// Stream reads newline-terminated codes from an open device.
type Stream struct {
	path  string
	rc    io.ReadCloser
	lines chan string
	once  sync.Once
}

func newStream(path string, rc io.ReadCloser) *Stream {
	s := &Stream{path: path, rc: rc, lines: make(chan string, lineBuffer)}
	go s.read()
	return s
}

func (s *Stream) read() {
	defer close(s.lines)
	sc := bufio.NewScanner(s.rc)
	for sc.Scan() {
		code := strings.TrimSpace(sc.Text())
		if code == "" {
			continue
		}
		s.lines <- code
	}
}

func (s *Stream) Tracks() []scanner.Track {
	return []scanner.Track{s}
}

func (s *Stream) Capabilities() scanner.Capabilities {
	return scanner.Capabilities{}
}

func (s *Stream) SetTorch(bool) error {
	return scanner.ErrTorchUnsupported
}

// Stop closes the device. The reader goroutine exits once the read unblocks.
func (s *Stream) Stop() error {
	var err error
	s.once.Do(func() {
		err = s.rc.Close()
		// Drain so a reader blocked on a full buffer can finish.
		go func() {
			for range s.lines {
			}
		}()
	})
	return err
}

// Decoder takes the next line a Stream has read. With nothing buffered it reports
// scanner.ErrNotFound so the decode loop keeps polling.
type Decoder struct{}

func (Decoder) Decode(ctx context.Context, stream scanner.Stream) (string, error) {
	s, ok := stream.(*Stream)
	if !ok {
		return "", fmt.Errorf("serial decoder cannot read %T", stream)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case code, ok := <-s.lines:
		if !ok {
			return "", fmt.Errorf("%w: %s", errDisconnected, s.path)
		}
		return code, nil
	default:
		return "", scanner.ErrNotFound
	}
}
