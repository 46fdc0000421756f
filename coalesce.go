// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import "unsafe"

// coalesce merges chunkAddr (size bytes, about to become or remain the
// given occupied state) with its physically adjacent free heap neighbors.
// It detaches any absorbed neighbor from the bins array (never the fast
// array — fast-cached chunks carry the fastCached status bit and are
// invisible to this walk) and stamps the merged region's head/foot with
// occupied before returning its (possibly new) address and size.
//
// A neighbor word that fails isLegalWord is treated as "no free neighbor on
// that side" and never assumed to be in use.
func coalesce(a *Allocator, chunkAddr uintptr, size int, occupied bool) (uintptr, int) {
	if chunkAddr != a.heapOrigin {
		footBefore := *(*uintptr)(unsafe.Pointer(chunkAddr - 8))
		if isLegalWord(footBefore) {
			pSize, pOccupied, pMapped, pFastCached := readWord(footBefore)
			if !pOccupied && !pMapped && !pFastCached {
				predAddr := chunkAddr - uintptr(pSize)
				freeListDetach(a.bins[:], binClass(pSize), predAddr)
				chunkAddr = predAddr
				size += pSize
			}
		}
	}

	end := chunkEnd(chunkAddr, size)
	if end != a.heapFront {
		nextWord := *wordHead(end)
		if isLegalWord(nextWord) {
			nSize, nOccupied, nMapped, nFastCached := readWord(nextWord)
			if !nOccupied && !nMapped && !nFastCached {
				freeListDetach(a.bins[:], binClass(nSize), end)
				size += nSize
			}
		}
	}

	writeHeadFoot(chunkAddr, size, occupied, false, false)
	return chunkAddr, size
}

// growTopChunk extends chunkAddr in place when it is the last live chunk
// before the heap front — i.e. the space beyond it is virgin heap rather
// than a free neighbor coalesce could absorb. It extends the program break
// as needed and reports whether the growth happened.
func growTopChunk(a *Allocator, chunkAddr uintptr, oldSize, newSize int) (bool, error) {
	if chunkEnd(chunkAddr, oldSize) != a.heapFront {
		return false, nil
	}

	extra := uintptr(newSize - oldSize)
	for a.heapFront+extra > a.heapLimit {
		base, err := a.provide().ExtendBreak(pageBatch)
		if err != nil {
			return false, err
		}

		a.heapLimit = base + pageBatch
		a.bytes += pageBatch
	}

	a.heapFront += extra
	writeHeadFoot(chunkAddr, newSize, true, false, false)
	return true, nil
}

// releaseToBin coalesces chunkAddr with its neighbors and either retracts
// the heap front onto it (if the merged chunk abuts heapFront) or inserts
// it into the bins array.
func releaseToBin(a *Allocator, chunkAddr uintptr, size int) {
	chunkAddr, size = coalesce(a, chunkAddr, size, false)
	if chunkEnd(chunkAddr, size) == a.heapFront {
		a.heapFront = chunkAddr
		return
	}

	freeListInsert(a.bins[:], binClass(size), chunkAddr)
}

// flushFast drains every fast-array slot through releaseToBin, so that
// subsequent bin lookups and coalescing see fully-merged state. After
// flushFast every fast slot is empty.
func flushFast(a *Allocator) {
	for c := 0; c < numFastClasses; c++ {
		addr := a.fast[c]
		for addr != 0 {
			next := nodeAt(addr).next
			size, _, _, _ := readWord(*wordHead(addr))
			releaseToBin(a, addr, size)
			addr = next
		}
		a.fast[c] = 0
	}
}
