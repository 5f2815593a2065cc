package shmring

import (
	"bytes"
	"testing"
)

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, 0, N)
	var buf [5]byte
	for len(dst) < N {
		if len(p) > 0 {
			step := 7
			if step > len(p) {
				step = len(p)
			}
			n := r.WriteFrom(p[:step])
			p = p[n:]
		}
		n := r.ReadInto(buf[:])
		dst = append(dst, buf[:n]...)
	}
	if !bytes.Equal(src, dst) {
		t.Fatal("byte order not preserved across wrap")
	}
}

func TestWriteFromTruncatesWhenFull(t *testing.T) {
	r := New(8)
	if n := r.WriteFrom([]byte("0123456789")); n != 8 {
		t.Fatalf("WriteFrom = %d, want 8", n)
	}
	if r.Space() != 0 || r.Available() != 8 {
		t.Fatalf("space=%d avail=%d", r.Space(), r.Available())
	}
	if n := r.WriteFrom([]byte("x")); n != 0 {
		t.Fatalf("write into full ring = %d", n)
	}
}

func TestReadableEdge(t *testing.T) {
	r := New(16)
	r.WriteFrom([]byte("a"))
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected readable edge on first write")
	}
	r.WriteFrom([]byte("b"))
	select {
	case <-r.Readable():
		t.Fatal("no edge expected while non-empty")
	default:
	}
}

func TestWriteToDrains(t *testing.T) {
	r := New(128)
	r.WriteFrom(bytes.Repeat([]byte("ab"), 50))
	var out bytes.Buffer
	n, err := r.WriteTo(&out)
	if err != nil || n != 100 || out.Len() != 100 {
		t.Fatalf("WriteTo n=%d err=%v len=%d", n, err, out.Len())
	}
	if r.Available() != 0 {
		t.Fatal("ring not drained")
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non power of two")
		}
	}()
	New(12)
}
