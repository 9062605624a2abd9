package biobridge

import (
	"bytes"
	"testing"

	"github.com/candlefinance/tlsbio/bytebuf"
)

func writeBuffer(alloc bytebuf.Allocator, p []byte) bytebuf.Buffer {
	b := alloc.Allocate(len(p))
	b.Write(p)
	return b
}

// S1 — Write-extract round-trip.
func TestWriteExtractRoundTrip(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	want := []byte{1, 2, 3, 4, 5}
	if n := bio.Write(want); n != len(want) {
		t.Fatalf("Write = %d, want %d", n, len(want))
	}

	got, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected a buffer on first extraction")
	}
	if !bytes.Equal(got.Slice(0, got.Len()), want) {
		t.Fatalf("extracted = %v, want %v", got.Slice(0, got.Len()), want)
	}

	if _, ok := s.OutboundCiphertext(); ok {
		t.Fatal("second extraction with no intervening write must return none")
	}
}

// S2 — Coalesced writes.
func TestCoalescedWrites(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	chunk := []byte{1, 2, 3, 4, 5}
	for i := 0; i < 10; i++ {
		if n := bio.Write(chunk); n != len(chunk) {
			t.Fatalf("write %d: got %d, want %d", i, n, len(chunk))
		}
	}

	got, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected a buffer")
	}
	want := bytes.Repeat(chunk, 10)
	if !bytes.Equal(got.Slice(0, got.Len()), want) {
		t.Fatalf("extracted %d bytes, want %d bytes equal to chunk*10", got.Len(), len(want))
	}
}

// S3 — Drain-by-shorts.
func TestDrainByShorts(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	s.ReceiveFromNetwork(writeBuffer(bytebuf.HeapAllocator{}, []byte{1, 2, 3, 4, 5}))

	for i := byte(1); i <= 5; i++ {
		dst := make([]byte, 1)
		n := bio.Read(dst)
		if n != 1 || dst[0] != i {
			t.Fatalf("read %d: got n=%d byte=%d, want n=1 byte=%d", i, n, dst[0], i)
		}
	}

	dst := make([]byte, 1)
	if n := bio.Read(dst); n != -1 {
		t.Fatalf("drained read = %d, want -1", n)
	}
	if !bio.LastShouldRetry() || !bio.LastShouldRead() {
		t.Fatal("drained read must set should-retry and should-read")
	}
}

// S4 — Puts.
func TestPuts(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	const msg = "Hello, world!"
	if n := bio.Puts(msg); n != len(msg) {
		t.Fatalf("Puts = %d, want %d", n, len(msg))
	}

	got, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected a buffer")
	}
	if got.String() != msg {
		t.Fatalf("extracted %q, want %q", got.String(), msg)
	}
}

// S5 — Capacity trim.
func TestCapacityTrim(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, 64)
	bio := s.RetainedBIO()

	bio.Write(make([]byte, 1024))

	extracted, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected a buffer")
	}
	if got := extracted.Capacity(); got < 1024 {
		t.Fatalf("extracted buffer capacity = %d, want >= 1024", got)
	}

	bio.Write([]byte{0xFF})
	if got := s.OutboundCapacity(); got != 64 {
		t.Fatalf("post-trim working capacity = %d, want exactly 64", got)
	}
}

// S6 — CoW on hold.
func TestCoWOnHold(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	bio.Write([]byte{1, 2, 3, 4, 5})
	b1, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected first extraction")
	}

	bio.Write([]byte{1, 2, 3, 4, 5})
	b2, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected second extraction")
	}

	if b1.BackingAddress() == b2.BackingAddress() {
		t.Fatal("held extraction must force copy-on-write on the next write")
	}
}

// S7 — No CoW without hold.
func TestNoCoWWithoutHold(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	bio.Write([]byte{1, 2, 3})
	discarded, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected first extraction")
	}
	discarded.Release()

	// b1 is released immediately after its address is recorded, and no
	// write follows b2's extraction, so no extracted buffer is held across
	// a write: no copy-on-write is ever triggered and both extractions
	// land on the same backing storage.
	bio.Write([]byte{4, 5, 6})
	b1, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected second extraction")
	}
	addr1 := b1.BackingAddress()
	b1.Release()

	bio.Write([]byte{7, 8, 9})
	b2, ok := s.OutboundCiphertext()
	if !ok {
		t.Fatal("expected third extraction")
	}
	addr2 := b2.BackingAddress()

	if addr1 != addr2 {
		t.Fatal("extractions without a held prior copy should reuse the same backing")
	}
}

// S8 — Close cuts callbacks.
func TestCloseCutsCallbacks(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	s.Close()

	dst := make([]byte, 4)
	if n := bio.Read(dst); n != -1 {
		t.Fatalf("read through vtable after close = %d, want -1", n)
	}
	if bio.LastShouldRetry() {
		t.Fatal("read after close must clear should-retry (fatal, not would-block)")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	s.RetainedBIO()
	s.Close()
	s.Close()
}

func TestRetainedBIOAfterCloseReturnsNil(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	s.Close()
	if bio := s.RetainedBIO(); bio != nil {
		t.Fatal("RetainedBIO after close should return nil")
	}
}

func TestReceiveFromNetworkAppendsAcrossInjections(t *testing.T) {
	s := NewShim(bytebuf.HeapAllocator{}, Unbounded)
	bio := s.RetainedBIO()

	s.ReceiveFromNetwork(writeBuffer(bytebuf.HeapAllocator{}, []byte{1, 2}))
	s.ReceiveFromNetwork(writeBuffer(bytebuf.HeapAllocator{}, []byte{3, 4}))

	dst := make([]byte, 4)
	n := bio.Read(dst)
	if n != 4 || !bytes.Equal(dst, []byte{1, 2, 3, 4}) {
		t.Fatalf("got n=%d dst=%v, want a single stream [1 2 3 4]", n, dst)
	}
}

func TestNewShimFromConfigRejectsInvalidConfig(t *testing.T) {
	_, err := NewShimFromConfig(bytebuf.HeapAllocator{}, ShimConfig{MaxPreservedCapacity: -5})
	if err == nil {
		t.Fatal("expected an error for an invalid MaxPreservedCapacity")
	}
}
