// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import "unsafe"

// carveHeap returns the address of a fresh chunk of the given size cut from
// the virgin heap, extending the program break in pageBatch increments as
// needed.
func (a *Allocator) carveHeap(size int) (uintptr, error) {
	if a.heapOrigin == 0 {
		base, err := a.provide().ExtendBreak(pageBatch)
		if err != nil {
			return 0, err
		}

		a.heapOrigin = base
		a.heapFront = base
		a.heapLimit = base + pageBatch
		a.bytes += pageBatch
	}

	for a.heapFront+uintptr(size) > a.heapLimit {
		base, err := a.provide().ExtendBreak(pageBatch)
		if err != nil {
			return 0, err
		}

		a.heapLimit = base + pageBatch
		a.bytes += pageBatch
	}

	addr := a.heapFront
	a.heapFront += uintptr(size)
	return addr, nil
}

// UnsafeAlloc allocates at least n bytes and returns a payload pointer, or
// an error if the OS refused the request. UnsafeAlloc panics for n < 0 and
// returns (nil, nil) for n == 0.
func (a *Allocator) UnsafeAlloc(n int) (unsafe.Pointer, error) {
	if n < 0 {
		panic("chunkalloc: invalid alloc size")
	}

	if n == 0 {
		return nil, nil
	}

	size := chunkSize(n)
	if size > mmapThreshold {
		addr, err := a.provide().MapAnonymous(size)
		if err != nil {
			return nil, err
		}

		writeHeadOnly(addr, size, true, true)
		if a.mapped == nil {
			a.mapped = map[uintptr]int{}
		}
		a.mapped[addr] = size
		a.allocs++
		a.bytes += size
		return unsafe.Pointer(payloadOf(addr)), nil
	}

	if fc := fastClass(size); fc >= 0 {
		if addr := freeListPop(a.fast[:], fc); addr != 0 {
			writeHeadFoot(addr, size, true, false, false)
			a.allocs++
			return unsafe.Pointer(payloadOf(addr)), nil
		}
	} else {
		flushFast(a)
	}

	if addr := freeListFindFit(a.bins[:], binClass(size), numBinClasses-1); addr != 0 {
		fitSize, _, _, _ := readWord(*wordHead(addr))
		if fitSize-size >= minChunkSize {
			writeHeadFoot(addr, size, true, false, false)
			remAddr := chunkEnd(addr, size)
			remSize := fitSize - size
			writeHeadFoot(remAddr, remSize, false, false, false)
			freeListInsert(a.bins[:], binClass(remSize), remAddr)
		} else {
			writeHeadFoot(addr, fitSize, true, false, false)
		}
		a.allocs++
		return unsafe.Pointer(payloadOf(addr)), nil
	}

	addr, err := a.carveHeap(size)
	if err != nil {
		return nil, err
	}

	writeHeadFoot(addr, size, true, false, false)
	a.allocs++
	return unsafe.Pointer(payloadOf(addr)), nil
}

// UnsafeZalloc is like UnsafeAlloc except the allocated memory is zeroed
// and the size is given as count*size, as in C's calloc. It returns
// ErrOverflow instead of silently truncating if the multiplication
// overflows.
func (a *Allocator) UnsafeZalloc(count, size int) (unsafe.Pointer, error) {
	if count < 0 || size < 0 {
		panic("chunkalloc: invalid alloc size")
	}

	if count == 0 || size == 0 {
		return a.UnsafeAlloc(0)
	}

	total := count * size
	if total/count != size {
		return nil, ErrOverflow
	}

	p, err := a.UnsafeAlloc(total)
	if p == nil || err != nil {
		return p, err
	}

	b := unsafe.Slice((*byte)(p), total)
	for i := range b {
		b[i] = 0
	}
	return p, nil
}

// UnsafeRealloc changes the size of the chunk backing p to newSize bytes.
// If p is nil it behaves like UnsafeAlloc(newSize). The first
// min(oldSize, newSize) bytes of payload are preserved, including across a
// backward coalesce that moves the chunk's base address. Invalid pointers
// abort via Allocator.fatal.
func (a *Allocator) UnsafeRealloc(p unsafe.Pointer, newSize int) (unsafe.Pointer, error) {
	if p == nil {
		return a.UnsafeAlloc(newSize)
	}

	if newSize < 0 {
		panic("chunkalloc: invalid alloc size")
	}

	payload := uintptr(p)
	chunkAddr, oldSize, occupied, mapped, _, ok := validate(payload)
	if !ok || !occupied {
		a.fatal("chunkalloc: invalid pointer passed to Realloc")
		return nil, nil
	}

	newChunkSize := chunkSize(newSize)
	if mapped {
		newAddr, err := a.provide().Remap(chunkAddr, oldSize, newChunkSize)
		if err != nil {
			return nil, err
		}

		delete(a.mapped, chunkAddr)
		a.mapped[newAddr] = newChunkSize
		a.bytes += newChunkSize - oldSize
		writeHeadOnly(newAddr, newChunkSize, true, true)
		return unsafe.Pointer(payloadOf(newAddr)), nil
	}

	if newChunkSize <= oldSize {
		return p, nil
	}

	if grew, err := growTopChunk(a, chunkAddr, oldSize, newChunkSize); err != nil {
		return nil, err
	} else if grew {
		return p, nil
	}

	mergedAddr, mergedSize := coalesce(a, chunkAddr, oldSize, true)
	if mergedSize >= newChunkSize {
		if mergedAddr != chunkAddr {
			shift := chunkAddr - mergedAddr
			n := oldSize - 16
			dst := unsafe.Slice((*byte)(unsafe.Pointer(payloadOf(mergedAddr))), n)
			src := unsafe.Slice((*byte)(unsafe.Pointer(payloadOf(mergedAddr)+shift)), n)
			copy(dst, src)
		}
		return unsafe.Pointer(payloadOf(mergedAddr)), nil
	}

	newPayload, err := a.UnsafeAlloc(newSize)
	if err != nil {
		return nil, err
	}

	n := oldSize - 16
	if newSize < n {
		n = newSize
	}
	copy(unsafe.Slice((*byte)(newPayload), n), unsafe.Slice((*byte)(p), n))
	a.UnsafeFree(unsafe.Pointer(payloadOf(mergedAddr)))
	return newPayload, nil
}

// UnsafeFree releases the chunk backing p (acquired from UnsafeAlloc,
// UnsafeZalloc or UnsafeRealloc). A nil p is a no-op. An invalid or already
// free p aborts via Allocator.fatal.
func (a *Allocator) UnsafeFree(p unsafe.Pointer) {
	if p == nil {
		return
	}

	chunkAddr, size, occupied, mapped, _, ok := validate(uintptr(p))
	if !ok {
		a.fatal("chunkalloc: invalid pointer passed to Free")
		return
	}
	if !occupied {
		a.fatal("chunkalloc: Double free detected")
		return
	}

	a.allocs--
	if mapped {
		a.bytes -= size
		delete(a.mapped, chunkAddr)
		a.provide().Unmap(chunkAddr, size)
		return
	}

	if size >= fastConsolidate {
		flushFast(a)
	}

	if size <= fastMaxSize {
		writeHeadFoot(chunkAddr, size, false, false, true)
		freeListInsert(a.fast[:], fastClass(size), chunkAddr)
		return
	}

	releaseToBin(a, chunkAddr, size)
}

// UsableSize reports the number of bytes actually usable at p, which may be
// larger than what was requested from UnsafeAlloc/UnsafeZalloc/
// UnsafeRealloc.
func (a *Allocator) UsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}

	chunkAddr := chunkOf(uintptr(p))
	size, _, mapped, _ := readWord(*wordHead(chunkAddr))
	if mapped {
		return size - 8
	}
	return size - 16
}

// Malloc is like UnsafeAlloc but returns a byte slice view over the
// payload, for callers that would rather not juggle unsafe.Pointer
// directly.
func (a *Allocator) Malloc(size int) ([]byte, error) {
	p, err := a.UnsafeAlloc(size)
	if p == nil || err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}

// Calloc is like Malloc except the allocated memory is zeroed.
func (a *Allocator) Calloc(count, size int) ([]byte, error) {
	p, err := a.UnsafeZalloc(count, size)
	if p == nil || err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), count*size), nil
}

// Realloc is like UnsafeRealloc except both arguments and the result are
// byte slices.
func (a *Allocator) Realloc(b []byte, size int) ([]byte, error) {
	var p unsafe.Pointer
	if len(b) != 0 {
		p = unsafe.Pointer(&b[0])
	}

	r, err := a.UnsafeRealloc(p, size)
	if r == nil || err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(r), size), nil
}

// Free is like UnsafeFree except its argument is a byte slice returned from
// Malloc, Calloc or Realloc.
func (a *Allocator) Free(b []byte) {
	var p unsafe.Pointer
	if len(b) != 0 {
		p = unsafe.Pointer(&b[0])
	}
	a.UnsafeFree(p)
}
