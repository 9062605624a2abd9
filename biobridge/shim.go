package biobridge

import (
	"github.com/sirupsen/logrus"

	"github.com/candlefinance/tlsbio/bytebuf"
)

// Shim is the Go-side half of the bridge: the object a retained BIO
// handle forwards every callback to. It owns exactly two byte pipes —
// outbound ciphertext accumulated by the TLS engine's writes, and
// inbound ciphertext fed in from the network for the engine to read —
// plus the capacity governor's bookkeeping.
//
// Shim is not safe for concurrent use. The TLS engine's callbacks and
// the host's ReceiveFromNetwork/OutboundCiphertext calls are assumed to
// run on the same logical thread of control, exactly as a real BIO's
// calls into application code would be serialized by the engine that
// owns it.
type Shim struct {
	allocator            bytebuf.Allocator
	maxPreservedCapacity int

	outbound bytebuf.Buffer
	inbound  *bytebuf.Buffer

	shutdownFlag bool
	closed       bool

	vtable *BIO

	log *logrus.Entry
}

// NewShim constructs a Shim using the given allocator for all outbound
// storage, with maxPreservedCapacity governing how much backing storage
// survives an extraction (Unbounded disables trimming).
func NewShim(allocator bytebuf.Allocator, maxPreservedCapacity int) *Shim {
	return newShim(allocator, ShimConfig{
		MaxPreservedCapacity:    maxPreservedCapacity,
		InitialOutboundCapacity: 0,
	})
}

// NewShimFromConfig constructs a Shim from a validated ShimConfig.
func NewShimFromConfig(allocator bytebuf.Allocator, cfg ShimConfig) (*Shim, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newShim(allocator, cfg), nil
}

func newShim(allocator bytebuf.Allocator, cfg ShimConfig) *Shim {
	return &Shim{
		allocator:            allocator,
		maxPreservedCapacity: cfg.MaxPreservedCapacity,
		outbound:             allocator.Allocate(cfg.InitialOutboundCapacity),
		shutdownFlag:         true,
		log:                  logrus.WithField("component", "biobridge"),
	}
}

// RetainedBIO lazily constructs the shim's vtable instance on first
// call and returns a newly-retained handle to it. Every call — this one
// included — hands back a handle the caller owns one release of. The
// shim keeps one reference of its own, dropped by Close, so the
// underlying vtable instance is destroyed once the shim is closed and
// every retained handle has been released.
func (s *Shim) RetainedBIO() *BIO {
	if s.closed {
		return nil
	}
	if s.vtable == nil {
		s.vtable = newBIO(s)
	}
	return s.vtable.Retain()
}

// ReceiveFromNetwork appends ciphertext read off the wire to the shim's
// inbound pipe, for the TLS engine's subsequent read callbacks to drain.
// Calling it more than once between reads appends rather than replaces,
// so out-of-order or batched network deliveries are never silently
// dropped.
func (s *Shim) ReceiveFromNetwork(buf bytebuf.Buffer) {
	if s.inbound == nil {
		empty := s.allocator.Allocate(buf.ReadableBytes())
		s.inbound = &empty
	}
	if n := buf.ReadableBytes(); n > 0 {
		s.inbound.Write(buf.Slice(buf.ReaderIndex(), buf.ReaderIndex()+n))
	}
}

// OutboundCiphertext extracts whatever the TLS engine has written to the
// outbound pipe since the last extraction. It returns false if nothing
// has been written. The returned Buffer is the caller's to keep; the
// shim never writes through it again, though it may still share backing
// storage until the caller's first write or Release (see
// bytebuf.Buffer's copy-on-write discipline).
func (s *Shim) OutboundCiphertext() (bytebuf.Buffer, bool) {
	if s.outbound.ReadableBytes() == 0 {
		return bytebuf.Buffer{}, false
	}
	extracted := s.outbound
	s.outbound = nextOutbound(s.allocator, extracted, s.maxPreservedCapacity)
	s.log.WithField("bytes", extracted.ReadableBytes()).Debug("extracted outbound ciphertext")
	return extracted, true
}

// OutboundCapacity reports the backing capacity of the shim's current
// outbound working buffer. It exists for tests and diagnostics that need
// to observe the capacity governor's effect directly, separate from
// whatever capacity a previously-extracted buffer happens to still
// report.
func (s *Shim) OutboundCapacity() int {
	return s.outbound.Capacity()
}

// Close breaks the shim↔vtable cycle described in §3: it clears the
// vtable's back-reference to the shim, so that any callback still
// reachable through a handle the TLS engine has not yet released sees
// an empty user-data slot and fails hard rather than touching a shim the
// host considers gone, and it releases the shim's own strong reference
// to the vtable, so that once the TLS engine releases every handle it
// holds, the vtable instance is actually destroyed rather than pinned
// forever at a refcount of one. It does not free the vtable directly —
// the TLS engine may still hold it. It is safe to call more than once.
func (s *Shim) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.vtable != nil {
		vtable := s.vtable
		s.vtable = nil
		vtable.detach()
		vtable.Release()
	}
	s.log.Debug("shim closed")
}
