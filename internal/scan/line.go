package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dukerupert/sokone/internal/barcode"
)

// ErrMisread is reported for a frame that produced no usable code.
var ErrMisread = errors.New("misread")

// LineDecoder reads newline-terminated codes from a character device, the
// way keyboard-wedge and serial barcode readers deliver them. Devices maps
// each camera facing to a device path; a facing without a path fails to
// start.
type LineDecoder struct {
	Devices map[Facing]string
	Open    func(path string) (io.ReadCloser, error)

	mu   sync.Mutex
	rc   io.ReadCloser
	done chan struct{}
}

func NewLineDecoder(rear, front string) *LineDecoder {
	return &LineDecoder{
		Devices: map[Facing]string{FacingRear: rear, FacingFront: front},
	}
}

func (d *LineDecoder) Start(ctx context.Context, facing Facing, onDecode func(string), onFrameError func(error)) error {
	path := d.Devices[facing]
	if path == "" {
		return fmt.Errorf("no device configured for %s camera", facing)
	}

	open := d.Open
	if open == nil {
		open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	rc, err := open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	done := make(chan struct{})
	d.mu.Lock()
	d.rc = rc
	d.done = done
	d.mu.Unlock()

	go func() {
		defer close(done)
		sc := bufio.NewScanner(rc)
		for sc.Scan() {
			if ctx.Err() != nil {
				return
			}
			code := barcode.Normalize(sc.Text())
			if code == "" || barcode.Misread(code) {
				onFrameError(fmt.Errorf("%w: %q", ErrMisread, code))
				continue
			}
			onDecode(code)
		}
	}()
	return nil
}

func (d *LineDecoder) Stop() error {
	d.mu.Lock()
	rc, done := d.rc, d.done
	d.rc, d.done = nil, nil
	d.mu.Unlock()

	if rc == nil {
		return nil
	}
	err := rc.Close()
	<-done
	return err
}
