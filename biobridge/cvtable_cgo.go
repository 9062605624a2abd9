//go:build cgo_bio

package biobridge

/*
#cgo LDFLAGS: -lssl -lcrypto

#include <openssl/bio.h>
#include <stdint.h>
#include <string.h>

extern int goBIOWrite(uintptr_t handle, char *data, int len);
extern int goBIORead(uintptr_t handle, char *data, int len);
extern int goBIOPuts(uintptr_t handle, char *str);
extern int goBIOGets(uintptr_t handle, char *buf, int len);
extern long goBIOCtrl(uintptr_t handle, int cmd, long arg1, void *arg2);
extern int goBIODestroy(uintptr_t handle);

static int shim_bio_write(BIO *b, const char *data, int len) {
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	return goBIOWrite(h, data, len);
}

static int shim_bio_read(BIO *b, char *data, int len) {
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	return goBIORead(h, data, len);
}

static int shim_bio_puts(BIO *b, const char *str) {
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	return goBIOPuts(h, str);
}

static int shim_bio_gets(BIO *b, char *buf, int len) {
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	return goBIOGets(h, buf, len);
}

static long shim_bio_ctrl(BIO *b, int cmd, long arg1, void *arg2) {
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	return goBIOCtrl(h, cmd, arg1, arg2);
}

static int shim_bio_create(BIO *b) {
	BIO_set_init(b, 1);
	return 1;
}

static int shim_bio_destroy(BIO *b) {
	if (b == NULL) {
		return 0;
	}
	uintptr_t h = (uintptr_t)BIO_get_data(b);
	if (h != 0) {
		goBIODestroy(h);
		BIO_set_data(b, NULL);
	}
	return 1;
}

// build_method constructs the single, process-wide custom BIO_METHOD
// every shim's retained BIO shares. One statically-held method table,
// many BIO instances distinguished only by their user-data slot.
static BIO_METHOD *build_method() {
	BIO_METHOD *m = BIO_meth_new(BIO_get_new_index() | BIO_TYPE_SOURCE_SINK, "tlsbio bridge");
	if (m == NULL) {
		return NULL;
	}
	BIO_meth_set_write(m, shim_bio_write);
	BIO_meth_set_read(m, shim_bio_read);
	BIO_meth_set_puts(m, shim_bio_puts);
	BIO_meth_set_gets(m, shim_bio_gets);
	BIO_meth_set_ctrl(m, shim_bio_ctrl);
	BIO_meth_set_create(m, shim_bio_create);
	BIO_meth_set_destroy(m, shim_bio_destroy);
	return m;
}

static BIO *new_bio(BIO_METHOD *m, uintptr_t handle) {
	BIO *b = BIO_new(m);
	if (b == NULL) {
		return NULL;
	}
	BIO_set_data(b, (void *)handle);
	BIO_set_shutdown(b, 0);
	return b;
}

static void free_bio(BIO *b) {
	BIO_free(b);
}
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
)

var (
	methodOnce sync.Once
	sharedM    *C.BIO_METHOD
)

func sharedMethod() *C.BIO_METHOD {
	methodOnce.Do(func() {
		sharedM = C.build_method()
	})
	return sharedM
}

// BIO is the retained handle to the TLS engine's custom BIO instance.
// Its user-data slot carries a runtime/cgo.Handle pointing back at this
// value, which forwards callbacks to the Shim it was constructed from.
// Reference counting is managed entirely on the Go side (see
// vtableCore); the native *C.BIO is only ever freed when that count
// reaches zero, independent of whatever the TLS engine does internally
// with SSL_set_bio.
type BIO struct {
	core   vtableCore
	native *C.BIO
	handle cgo.Handle
}

func newBIO(s *Shim) *BIO {
	b := &BIO{core: vtableCore{shim: s, refCount: 1}}
	b.handle = cgo.NewHandle(b)

	m := sharedMethod()
	if m == nil {
		logrus.Error("biobridge: failed to construct BIO_METHOD")
		b.handle.Delete()
		return b
	}
	b.native = C.new_bio(m, C.uintptr_t(b.handle))
	if b.native == nil {
		logrus.Error("biobridge: BIO_new failed")
		b.handle.Delete()
	}
	return b
}

// Native returns the underlying *C.BIO as an unsafe.Pointer, for
// passing to SSL_set_bio or an equivalent TLS-engine API. It is nil if
// construction failed.
func (b *BIO) Native() unsafe.Pointer {
	return unsafe.Pointer(b.native)
}

// Retain increments the handle's reference count and returns the same
// handle, mirroring BIO_up_ref.
func (b *BIO) Retain() *BIO {
	b.core.retain()
	return b
}

// Release decrements the handle's reference count. At zero it frees the
// native BIO, which in turn fires shim_bio_destroy and deletes the
// backing cgo.Handle.
func (b *BIO) Release() {
	if b.core.destroyed {
		logrus.WithError(errVTableAlreadyDestroyed).Warn("biobridge: ignoring extra release")
		return
	}
	if b.core.release() <= 0 {
		b.core.destroyed = true
		if b.native != nil {
			C.free_bio(b.native)
			b.native = nil
		}
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

func lookupBIO(handle C.uintptr_t) *BIO {
	if handle == 0 {
		return nil
	}
	v := cgo.Handle(handle).Value()
	b, ok := v.(*BIO)
	if !ok {
		return nil
	}
	return b
}

//export goBIOWrite
func goBIOWrite(handle C.uintptr_t, data *C.char, length C.int) C.int {
	b := lookupBIO(handle)
	if b == nil {
		return -1
	}
	p := C.GoBytes(unsafe.Pointer(data), length)
	return C.int(b.Write(p))
}

//export goBIORead
func goBIORead(handle C.uintptr_t, data *C.char, length C.int) C.int {
	b := lookupBIO(handle)
	if b == nil {
		return -1
	}
	dst := make([]byte, int(length))
	n := b.Read(dst)
	if n > 0 {
		C.memcpy(unsafe.Pointer(data), unsafe.Pointer(&dst[0]), C.size_t(n))
	}
	return C.int(n)
}

//export goBIOPuts
func goBIOPuts(handle C.uintptr_t, str *C.char) C.int {
	b := lookupBIO(handle)
	if b == nil {
		return -1
	}
	return C.int(b.Puts(C.GoString(str)))
}

//export goBIOGets
func goBIOGets(handle C.uintptr_t, buf *C.char, length C.int) C.int {
	b := lookupBIO(handle)
	if b == nil {
		return -1
	}
	return C.int(b.Gets())
}

//export goBIOCtrl
func goBIOCtrl(handle C.uintptr_t, cmd C.int, arg1 C.long, arg2 unsafe.Pointer) C.long {
	b := lookupBIO(handle)
	if b == nil {
		return 0
	}
	return C.long(b.Ctrl(Cmd(cmd), int64(arg1)))
}

//export goBIODestroy
func goBIODestroy(handle C.uintptr_t) C.int {
	cgo.Handle(handle).Delete()
	return 1
}
