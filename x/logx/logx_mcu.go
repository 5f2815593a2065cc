//go:build rp2040 || rp2350

package logx

import (
	"io"
	"strconv"
	"sync"

	"motionlink-go/x/shmring"
)

const ringSize = 2048

var (
	mu   sync.Mutex
	ring = shmring.New(ringSize)
	line [160]byte
)

// SetOutput starts draining buffered log lines into w. Call once at boot.
func SetOutput(w io.Writer) {
	go func() {
		for range ring.Readable() {
			_, _ = ring.WriteTo(w)
		}
	}()
}

func Info(args ...any)  { emit("I ", args) }
func Warn(args ...any)  { emit("W ", args) }
func Error(args ...any) { emit("E ", args) }
func Debug(args ...any) {}
func Flush()            {}

func emit(level string, args []any) {
	mu.Lock()
	b := append(line[:0], level...)
	for i, a := range args {
		if i > 0 {
			b = append(b, ' ')
		}
		b = appendValue(b, a)
	}
	b = append(b, '\n')
	// A full ring truncates the line.
	ring.WriteFrom(b)
	mu.Unlock()
}

func appendValue(b []byte, a any) []byte {
	switch v := a.(type) {
	case string:
		return append(b, v...)
	case error:
		return append(b, v.Error()...)
	case interface{ String() string }:
		return append(b, v.String()...)
	case bool:
		return strconv.AppendBool(b, v)
	case int:
		return strconv.AppendInt(b, int64(v), 10)
	case int32:
		return strconv.AppendInt(b, int64(v), 10)
	case int64:
		return strconv.AppendInt(b, v, 10)
	case uint8:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint64:
		return strconv.AppendUint(b, v, 10)
	case uint:
		return strconv.AppendUint(b, uint64(v), 10)
	case nil:
		return append(b, "<nil>"...)
	default:
		return append(b, '?')
	}
}
