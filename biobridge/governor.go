package biobridge

import "github.com/candlefinance/tlsbio/bytebuf"

// nextOutbound decides what backing storage the shim's outbound buffer
// should use for the writes that follow a successful extraction. It
// implements the capacity governor described by the shim's design: trim
// immediately after extraction, never mid-write, and only when the
// buffer that was just handed to the caller grew past the preserved
// cap.
//
// extracted is the buffer just returned to the caller. If its capacity
// exceeds maxPreserved (and maxPreserved is bounded), a brand-new,
// unshared buffer of exactly maxPreserved bytes is allocated from alloc
// and the old storage is abandoned entirely — the shim never touches it
// again, so the caller's copy is never at risk of a later copy-on-write
// surprising it. Otherwise, the same storage is retained for reuse: the
// caller's copy and the shim's next working buffer both reference it,
// so the next write triggers copy-on-write duplication (see
// bytebuf.Buffer.IsShared) unless the caller has Released its copy by
// then, in which case the write lands in place.
func nextOutbound(alloc bytebuf.Allocator, extracted bytebuf.Buffer, maxPreserved int) bytebuf.Buffer {
	if maxPreserved != Unbounded && extracted.Capacity() > maxPreserved {
		return alloc.Allocate(maxPreserved)
	}
	return extracted.RetainEmpty()
}
