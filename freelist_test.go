// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import (
	"testing"
	"unsafe"
)

// makeFakeChunk carves a standalone heap-like region for free-list unit
// tests, bypassing the allocator's routing so the list primitives can be
// exercised directly.
func makeFakeChunk(t *testing.T, size int) uintptr {
	t.Helper()
	buf := make([]byte, size)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	t.Cleanup(func() { _ = buf }) // keeps buf reachable until the test ends
	writeHeadFoot(addr, size, false, false, false)
	return addr
}

func TestFreeListInsertPop(t *testing.T) {
	var array [numBinClasses]uintptr
	c1 := makeFakeChunk(t, 48)
	c2 := makeFakeChunk(t, 48)
	class := binClass(48)

	freeListInsert(array[:], class, c1)
	freeListInsert(array[:], class, c2)

	if got := freeListPop(array[:], class); got != c2 {
		t.Fatalf("pop order wrong: got %#x want c2 %#x", got, c2)
	}
	if got := freeListPop(array[:], class); got != c1 {
		t.Fatalf("pop order wrong: got %#x want c1 %#x", got, c1)
	}
	if array[class] != 0 {
		t.Fatalf("list should be empty, got head %#x", array[class])
	}
}

func TestFreeListFindFitSkipsEmptyClasses(t *testing.T) {
	var array [numBinClasses]uintptr
	c := makeFakeChunk(t, 1024)
	freeListInsert(array[:], binClass(1024), c)

	got := freeListFindFit(array[:], binClass(48), numBinClasses-1)
	if got != c {
		t.Fatalf("findFit = %#x, want %#x", got, c)
	}
}

func TestFreeListFindFitNone(t *testing.T) {
	var array [numBinClasses]uintptr
	if got := freeListFindFit(array[:], 0, numBinClasses-1); got != 0 {
		t.Fatalf("findFit on empty array = %#x, want 0", got)
	}
}

// TestFreeListHandlesClampedOversizeClass exercises a chunk large enough
// that bigClass's raw formula would index past the bins array: binClass
// must have already clamped it into the top class, so insert/find/detach
// all stay within bounds instead of panicking.
func TestFreeListHandlesClampedOversizeClass(t *testing.T) {
	var array [numBinClasses]uintptr
	huge := makeFakeChunk(t, 1<<22) // 4 MiB, well past bigClass's nominal top
	class := binClass(1 << 22)
	if class != numBinClasses-1 {
		t.Fatalf("binClass(4MiB) = %d, want clamped top class %d", class, numBinClasses-1)
	}

	freeListInsert(array[:], class, huge)
	if got := freeListFindFit(array[:], binClass(48), numBinClasses-1); got != huge {
		t.Fatalf("findFit did not reach the clamped top class: got %#x want %#x", got, huge)
	}
	freeListDetach(array[:], class, huge)
	if array[class] != 0 {
		t.Fatalf("top class should be empty after detach, got head %#x", array[class])
	}
}

func TestFreeListDetachMiddle(t *testing.T) {
	var array [numBinClasses]uintptr
	c1 := makeFakeChunk(t, 48)
	c2 := makeFakeChunk(t, 48)
	c3 := makeFakeChunk(t, 48)
	class := binClass(48)

	freeListInsert(array[:], class, c1) // list: c1
	freeListInsert(array[:], class, c2) // list: c2 -> c1
	freeListInsert(array[:], class, c3) // list: c3 -> c2 -> c1

	freeListDetach(array[:], class, c2)

	if nodeAt(c3).next != c1 {
		t.Fatalf("detach of middle node did not relink neighbors")
	}
	if nodeAt(c1).prev != c3 {
		t.Fatalf("detach of middle node did not relink prev pointer")
	}
}
