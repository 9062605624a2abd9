//go:build !cgo_bio

package biobridge

import "github.com/sirupsen/logrus"

// BIO is the in-process stand-in for the TLS engine's C-vtable instance
// when this binary is built without cgo_bio. It implements the exact
// retain/release and write/read/puts/gets/ctrl contract a real
// BIO_METHOD-backed handle would (see cvtable_cgo.go), so the dispatch
// core in vtable.go is exercised byte-for-byte without OpenSSL or
// BoringSSL headers available at build time.
type BIO struct {
	core vtableCore
}

func newBIO(s *Shim) *BIO {
	return &BIO{core: vtableCore{shim: s, refCount: 1}}
}

// Retain increments the handle's reference count and returns the same
// handle, mirroring BIO_up_ref.
func (b *BIO) Retain() *BIO {
	b.core.retain()
	return b
}

// Release decrements the handle's reference count. Once it reaches
// zero the handle is considered destroyed; releasing it again is a
// caller bug and is logged rather than acted on.
func (b *BIO) Release() {
	if b.core.destroyed {
		logrus.WithError(errVTableAlreadyDestroyed).Warn("biobridge: ignoring extra release")
		return
	}
	if b.core.release() <= 0 {
		b.core.destroyed = true
	}
}

func (b *BIO) Write(p []byte) int             { return b.core.doWrite(p) }
func (b *BIO) Read(dst []byte) int            { return b.core.doRead(dst) }
func (b *BIO) Puts(s string) int              { return b.core.doPuts(s) }
func (b *BIO) Gets() int                      { return b.core.doGets() }
func (b *BIO) Ctrl(cmd Cmd, arg1 int64) int64 { return b.core.doCtrl(cmd, arg1) }
func (b *BIO) LastShouldRetry() bool          { return b.core.lastShouldRetry }
func (b *BIO) LastShouldRead() bool           { return b.core.lastShouldRead }

func (b *BIO) detach() {
	b.core.detach()
}
