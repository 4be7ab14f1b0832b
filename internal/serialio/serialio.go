// Package serialio owns the serial route: one open port per session,
// explicit line-ending policy, UTF-8 text out.
//
// Serial delivery has no window, no focus, and no paste. The engine
// treats the port as the target itself, so everything window-shaped is
// bypassed and only byte transport remains.
package serialio

import (
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaud is used when the configuration does not set a rate.
const DefaultBaud = 9600

// Config describes how to open the serial route.
type Config struct {
	// Device is the port path, e.g. "/dev/ttyUSB0".
	Device string
	// Baud is the line rate; zero means DefaultBaud.
	Baud int
	// LineEnding is the terminator written for line breaks and submits:
	// "lf" (default), "crlf", or "cr".
	LineEnding string
}

// Terminator maps a line-ending name to its byte sequence. Empty means lf.
func Terminator(ending string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(ending)) {
	case "", "lf":
		return "\n", nil
	case "crlf":
		return "\r\n", nil
	case "cr":
		return "\r", nil
	default:
		return "", fmt.Errorf("unknown line ending %q (supported: lf, crlf, cr)", ending)
	}
}

// EncodeLine renders text for the wire: line breaks in any convention
// become the configured terminator, everything else passes through as
// UTF-8. No terminator is appended; submission is the caller's move.
func EncodeLine(text, terminator string) []byte {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if terminator != "\n" {
		text = strings.ReplaceAll(text, "\n", terminator)
	}
	return []byte(text)
}

// Port is the write surface of an open serial device. go.bug.st/serial's
// Port satisfies it; tests inject buffers.
type Port interface {
	Write(p []byte) (int, error)
	Close() error
}

// Session is one open serial port plus its line-ending policy. Writes are
// serialized by an internal mutex; Close is idempotent.
type Session struct {
	mu         sync.Mutex
	port       Port
	device     string
	terminator string
	closed     bool
}

// Open opens the configured device. The port stays open until Close; the
// dispatcher reuses one session for the whole serial-mode stretch.
func Open(cfg Config) (*Session, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial: no device configured")
	}
	term, err := Terminator(cfg.LineEnding)
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return NewSession(port, cfg.Device, term), nil
}

// NewSession wraps an already open port.
func NewSession(port Port, device, terminator string) *Session {
	if terminator == "" {
		terminator = "\n"
	}
	return &Session{port: port, device: device, terminator: terminator}
}

// Device returns the port path this session writes to.
func (s *Session) Device() string { return s.device }

// WriteText encodes and writes text to the port. Returns bytes written.
func (s *Session) WriteText(text string) (int, error) {
	return s.write(EncodeLine(text, s.terminator))
}

// WriteTerminator writes one line terminator, the serial equivalent of
// pressing Enter.
func (s *Session) WriteTerminator() (int, error) {
	return s.write([]byte(s.terminator))
}

func (s *Session) write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("serial port %s is closed", s.device)
	}
	n, err := s.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("write to %s: %w", s.device, err)
	}
	if n < len(b) {
		return n, fmt.Errorf("short write to %s: %d of %d bytes", s.device, n, len(b))
	}
	return n, nil
}

// Close releases the port. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", s.device, err)
	}
	return nil
}
