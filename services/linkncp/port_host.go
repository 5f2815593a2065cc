//go:build !(rp2040 || rp2350)

package linkncp

import (
	"context"
	"time"

	"go.bug.st/serial"
)

// SerialPort is a host serial device carrying the co-processor protocol.
type SerialPort struct {
	serial.Port
}

// OpenSerial opens path at baud, 8N1.
func OpenSerial(path string, baud int) (*SerialPort, error) {
	if baud <= 0 {
		baud = 115200
	}
	p, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	// Short reads let RecvSomeContext notice cancellation.
	if err := p.SetReadTimeout(50 * time.Millisecond); err != nil {
		p.Close()
		return nil, err
	}
	return &SerialPort{Port: p}, nil
}

func (s *SerialPort) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := s.Port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}
