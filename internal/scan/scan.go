// Package scan drives a barcode decoder through a single scan and turns the
// decoded text into the next navigation target.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// ModeAdd sends the decoded code to product registration instead of search.
const ModeAdd = "add"

// NoCameraMessage is shown when neither camera could be started.
const NoCameraMessage = "カメラを起動できませんでした。権限を確認して再読み込みしてください"

// ErrNoCamera is returned by Run when no camera could be acquired.
var ErrNoCamera = errors.New("no camera available")

// Facing selects which camera the decoder should open.
type Facing string

const (
	FacingRear  Facing = "environment"
	FacingFront Facing = "user"
)

// State is the scan lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateScanning     State = "scanning"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// Decoder is a camera-backed barcode decoder. Start returns once the
// camera is streaming; decoded tokens and per-frame failures are reported
// through the callbacks until Stop is called. Stop must be safe to call
// when Start failed or was never called.
type Decoder interface {
	Start(ctx context.Context, facing Facing, onDecode func(string), onFrameError func(error)) error
	Stop() error
}

// Route returns the navigation target for a decoded code.
func Route(mode, text string) string {
	if mode == ModeAdd {
		return "/add-product?" + url.Values{"jan": {text}}.Encode()
	}
	return "/?" + url.Values{"search": {text}}.Encode()
}

type Options struct {
	// StartDelay is waited before the camera is started.
	StartDelay time.Duration
	Logger     *slog.Logger
}

// Session runs one scan. Close must be called when the session is done,
// whatever Run returned.
type Session struct {
	decoder    Decoder
	mode       string
	startDelay time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	message string
	stopped bool

	decoded chan string
}

func NewSession(decoder Decoder, mode string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		decoder:    decoder,
		mode:       mode,
		startDelay: opts.StartDelay,
		logger:     logger,
		state:      StateInitializing,
		decoded:    make(chan string, 1),
	}
}

// State returns the current state and, in StateError, the user-facing message.
func (s *Session) State() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.message
}

func (s *Session) setState(st State, msg string) {
	s.mu.Lock()
	s.state = st
	s.message = msg
	s.mu.Unlock()
}

// Run starts the decoder on the rear camera, falling back to the front
// camera, and blocks until the first code is decoded. It returns the
// navigation target for that code.
func (s *Session) Run(ctx context.Context) (string, error) {
	if s.startDelay > 0 {
		timer := time.NewTimer(s.startDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if err := s.start(ctx); err != nil {
		s.setState(StateError, NoCameraMessage)
		return "", err
	}
	s.setState(StateScanning, "")

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-s.decoded:
		s.stop()
		target := Route(s.mode, text)
		s.setState(StateSuccess, "")
		s.logger.Info("barcode decoded", "text", text, "mode", s.mode, "target", target)
		return target, nil
	}
}

func (s *Session) start(ctx context.Context) error {
	rearErr := s.decoder.Start(ctx, FacingRear, s.onDecode, s.onFrameError)
	if rearErr == nil {
		return nil
	}
	s.logger.Warn("rear camera unavailable, trying front", "error", rearErr)

	frontErr := s.decoder.Start(ctx, FacingFront, s.onDecode, s.onFrameError)
	if frontErr == nil {
		return nil
	}
	s.logger.Error("no camera available", "rear_error", rearErr, "front_error", frontErr)
	return fmt.Errorf("%w: rear: %v; front: %v", ErrNoCamera, rearErr, frontErr)
}

func (s *Session) onDecode(text string) {
	select {
	case s.decoded <- text:
	default:
	}
}

func (s *Session) onFrameError(err error) {
	s.logger.Debug("frame not decoded", "error", err)
}

func (s *Session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	if err := s.decoder.Stop(); err != nil {
		s.logger.Warn("stop decoder", "error", err)
	}
}

// Close releases the camera. It is safe to call more than once and in any
// state.
func (s *Session) Close() {
	s.stop()
}
