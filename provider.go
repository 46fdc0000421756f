// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

// A PageProvider is the thin contract through which the arena grows: it is
// the only source of new virtual address space the allocator consumes. The
// default implementation, newOSPageProvider, is backed by the real OS
// primitives; tests may substitute their own to exercise exhaustion paths
// deterministically.
type PageProvider interface {
	// ExtendBreak extends the program break by n bytes and returns the
	// address of the first byte of the new region. Used only by the
	// heap, in pageBatch increments. Failure is fatal to the current
	// request (a nil, err return), never to the arena's existing state.
	ExtendBreak(n int) (base uintptr, err error)

	// MapAnonymous returns a fresh, zero-filled, page-aligned region of n
	// bytes, or an error. Used only for requests above mmapThreshold.
	MapAnonymous(n int) (base uintptr, err error)

	// Remap resizes a region previously obtained from MapAnonymous,
	// possibly relocating it. old is invalidated on success.
	Remap(addr uintptr, oldSize, newSize int) (base uintptr, err error)

	// Unmap releases a region previously obtained from MapAnonymous.
	Unmap(addr uintptr, size int) error
}
