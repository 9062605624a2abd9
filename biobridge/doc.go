// Package biobridge adapts a TLS engine's pluggable I/O vtable (an
// OpenSSL/BoringSSL-style BIO_METHOD) onto in-memory byte buffers, so
// handshake and record traffic can be driven without a live socket.
//
// Build with CGO_ENABLED=1 and -tags cgo_bio to register a real
// BIO_METHOD against libssl/libcrypto. Without that tag, the package
// exercises the identical dispatch logic against an in-process stand-in
// vtable, with no cgo or TLS library dependency.
package biobridge
