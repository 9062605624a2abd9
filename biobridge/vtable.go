package biobridge

import "sync/atomic"

// Cmd identifies a ctrl command. Values mirror OpenSSL/BoringSSL's
// BIO_CTRL_* numbering exactly, so the cgo binding (cvtable_cgo.go) needs
// no translation table between the C side's int and this type.
type Cmd int

const (
	CmdSetClose Cmd = 9
	CmdGetClose Cmd = 8
	CmdFlush    Cmd = 11
)

// CloseFlag and NoCloseFlag mirror BIO_CLOSE/BIO_NOCLOSE: the values
// ctrl(GET_CLOSE) returns and ctrl(SET_CLOSE) accepts.
const (
	NoCloseFlag = 0
	CloseFlag   = 1
)

// dispatchWrite implements the write callback's semantics (spec §4.2)
// against s. A nil s models "the vtable's user-data slot is empty
// because the shim was closed" and is the one path that returns a
// fatal, non-retryable error.
func dispatchWrite(s *Shim, p []byte) (n int, shouldRetry bool) {
	if s == nil {
		return -1, false
	}
	if len(p) == 0 {
		return 0, false
	}
	s.outbound.Write(p)
	return len(p), false
}

// dispatchRead implements the read callback's semantics (spec §4.2).
func dispatchRead(s *Shim, dst []byte) (n int, shouldRetry, shouldRead bool) {
	if s == nil {
		return -1, false, false
	}
	if len(dst) == 0 {
		return 0, false, false
	}
	if s.inbound == nil || s.inbound.ReadableBytes() == 0 {
		return -1, true, true
	}
	return s.inbound.Read(dst), false, false
}

// dispatchPuts implements puts by forwarding to write, per spec §4.2.
func dispatchPuts(s *Shim, str string) (n int, shouldRetry bool) {
	if s == nil {
		return -1, false
	}
	return dispatchWrite(s, []byte(str))
}

// dispatchGets always refuses, per spec §4.2 and the line-oriented-read
// non-goal.
func dispatchGets() int {
	return -2
}

// dispatchCtrl implements the three recognized ctrl commands; anything
// else returns 0, the "unrecognized" convention.
func dispatchCtrl(s *Shim, cmd Cmd, arg1 int64) int64 {
	if s == nil {
		return 0
	}
	switch cmd {
	case CmdGetClose:
		if s.shutdownFlag {
			return CloseFlag
		}
		return NoCloseFlag
	case CmdSetClose:
		s.shutdownFlag = arg1 != 0
		return 1
	case CmdFlush:
		return 1
	default:
		return 0
	}
}

// vtableCore holds the bookkeeping common to both the cgo-backed and the
// stub C-vtable bindings: the back-reference to the shim (cleared by
// Shim.Close to break the retain cycle described in spec §3 and §9),
// a manual reference count mirroring the "each caller releases one
// handle" contract of retainedBIO, and the should-retry/should-read
// flags a real BIO_should_retry/BIO_should_read pair would report after
// the most recent call.
type vtableCore struct {
	shim            *Shim
	refCount        int32
	lastShouldRetry bool
	lastShouldRead  bool
	destroyed       bool
}

func (c *vtableCore) retain() {
	atomic.AddInt32(&c.refCount, 1)
}

// release decrements the reference count and returns its new value.
func (c *vtableCore) release() int32 {
	return atomic.AddInt32(&c.refCount, -1)
}

func (c *vtableCore) detach() {
	c.shim = nil
}

func (c *vtableCore) doWrite(p []byte) int {
	n, retry := dispatchWrite(c.shim, p)
	c.lastShouldRetry = retry
	c.lastShouldRead = false
	return n
}

func (c *vtableCore) doRead(dst []byte) int {
	n, retry, shouldRead := dispatchRead(c.shim, dst)
	c.lastShouldRetry = retry
	c.lastShouldRead = shouldRead
	return n
}

func (c *vtableCore) doPuts(s string) int {
	n, retry := dispatchPuts(c.shim, s)
	c.lastShouldRetry = retry
	c.lastShouldRead = false
	return n
}

func (c *vtableCore) doGets() int {
	c.lastShouldRetry = false
	c.lastShouldRead = false
	return dispatchGets()
}

func (c *vtableCore) doCtrl(cmd Cmd, arg1 int64) int64 {
	return dispatchCtrl(c.shim, cmd, arg1)
}
