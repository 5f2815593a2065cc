// Package shmring is a single-producer, single-consumer byte ring with edge
// notifications. The producer never blocks: writes that do not fit are cut
// short and the caller sees the short count.
package shmring

import (
	"io"
	"sync/atomic"
)

// Ring is a single-producer, single-consumer byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic, wraps)
	wr   atomic.Uint32 // producer index (monotonic, wraps)

	readable chan struct{} // 0->>0 available edge
}

// New allocates a ring. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Space is the number of bytes the producer may write now.
func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

// Available is the number of bytes the consumer may read now.
func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// WriteFrom copies as much of src as fits and returns the count.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	space := int(r.size() - before)
	if space <= 0 {
		return 0
	}
	n = len(src)
	if n > space {
		n = space
	}
	idx := wr & r.mask
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(r.buf[idx:idx+uint32(first)], src[:first])
	if rest := n - first; rest > 0 {
		copy(r.buf[:rest], src[first:n])
	}
	r.wr.Store(wr + uint32(n))

	if before == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return n
}

// ReadInto copies up to len(dst) buffered bytes into dst.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	avail := int(r.wr.Load() - rd)
	if avail <= 0 {
		return 0
	}
	n = len(dst)
	if n > avail {
		n = avail
	}
	idx := rd & r.mask
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[idx:idx+uint32(first)])
	if rest := n - first; rest > 0 {
		copy(dst[first:n], r.buf[:rest])
	}
	r.rd.Store(rd + uint32(n))
	return n
}

// WriteTo drains everything currently buffered into w.
func (r *Ring) WriteTo(w io.Writer) (int64, error) {
	var chunk [64]byte
	var total int64
	for {
		n := r.ReadInto(chunk[:])
		if n == 0 {
			return total, nil
		}
		m, err := w.Write(chunk[:n])
		total += int64(m)
		if err != nil {
			return total, err
		}
	}
}

// Readable fires when the ring goes from empty to non-empty.
func (r *Ring) Readable() <-chan struct{} { return r.readable }
