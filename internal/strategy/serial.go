package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/timvw/term-courier/internal/model"
	tcotel "github.com/timvw/term-courier/internal/otel"
)

// SerialPort is the session surface the serial strategy writes through.
// serialio.Session satisfies it; tests inject recorders.
type SerialPort interface {
	WriteText(text string) (int, error)
	WriteTerminator() (int, error)
	Close() error
}

// Serial writes units to a serial device. The port opens lazily on the
// first send and stays open until Close, so a serial-mode stretch reuses
// one device handle. No window, no focus.
type Serial struct {
	// Open builds the port on first use, from config.
	Open    func() (SerialPort, error)
	Metrics *tcotel.Metrics // nil-safe

	mu   sync.Mutex
	port SerialPort
}

func (s *Serial) Kind() model.StrategyKind { return model.StrategySerial }

func (s *Serial) NeedsFocus() bool { return false }

func (s *Serial) Send(ctx context.Context, target *model.SendTarget, unit model.CommandUnit) error {
	port, err := s.session()
	if err != nil {
		return model.SendFailed(err)
	}
	n, err := port.WriteText(payload(unit))
	if err != nil {
		return model.SendFailed(err)
	}
	s.Metrics.RecordSerialBytes(ctx, int64(n))
	return nil
}

// Submit writes the line terminator, the serial equivalent of Enter.
func (s *Serial) Submit(ctx context.Context, target *model.SendTarget) error {
	port, err := s.session()
	if err != nil {
		return model.SendFailed(err)
	}
	n, err := port.WriteTerminator()
	if err != nil {
		return model.SendFailed(err)
	}
	s.Metrics.RecordSerialBytes(ctx, int64(n))
	return nil
}

func (s *Serial) session() (SerialPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return s.port, nil
	}
	if s.Open == nil {
		return nil, fmt.Errorf("serial route not configured")
	}
	port, err := s.Open()
	if err != nil {
		return nil, err
	}
	s.port = port
	return port, nil
}

// Close releases the open port, if any. The next send reopens. Safe to
// call more than once.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
