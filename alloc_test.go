// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import (
	"math"
	"testing"
	"unsafe"

	"github.com/cznic/mathutil"
)

func uintptrOfSlice(b []byte) uintptr { return uintptr(unsafe.Pointer(&b[0])) }

const quota = 4 << 20

var max = 4096

// test1 allocates until quota bytes have been requested, verifies every
// allocation still holds the bytes it was given, shuffles, then frees
// everything.
func test1(t *testing.T, max int) {
	var alloc Allocator
	rem := quota
	var a [][]byte
	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}

	rng.Seed(42)
	pos := rng.Pos()
	for rem > 0 {
		size := rng.Next()%max + 1
		rem -= size
		b, err := alloc.Malloc(size)
		if err != nil {
			t.Fatal(err)
		}

		a = append(a, b)
		for i := range b {
			b[i] = byte(rng.Next())
		}
	}

	rng.Seek(pos)
	for i, b := range a {
		if g, e := len(b), rng.Next()%max+1; g != e {
			t.Fatal(i, g, e)
		}
		for i, g := range b {
			if e := byte(rng.Next()); g != e {
				t.Fatalf("%v %p: %#02x %#02x", i, &b[i], g, e)
			}
		}
	}

	for i := range a {
		j := rng.Next() % len(a)
		a[i], a[j] = a[j], a[i]
	}

	for _, b := range a {
		alloc.Free(b)
	}

	if alloc.allocs != 0 {
		t.Fatalf("leaked allocations: %+v", alloc)
	}
}

func TestAllocFreeSmall(t *testing.T) { test1(t, max) }
func TestAllocFreeBig(t *testing.T)   { test1(t, 2*mmapThreshold) }

func TestAllocZero(t *testing.T) {
	var alloc Allocator
	b, err := alloc.Malloc(0)
	if err != nil {
		t.Fatal(err)
	}
	if b != nil {
		t.Fatalf("Malloc(0) = %v, want nil", b)
	}
}

func TestAllocAlignment(t *testing.T) {
	var alloc Allocator
	for _, size := range []int{1, 15, 16, 17, 1000, 200000} {
		b, err := alloc.Malloc(size)
		if err != nil {
			t.Fatal(err)
		}
		if len(b) == 0 {
			continue
		}
		if uintptrOfSlice(b)%16 != 0 {
			t.Fatalf("payload for size %d not 16-byte aligned", size)
		}
		alloc.Free(b)
	}
}

func TestCallocZeroed(t *testing.T) {
	var alloc Allocator
	b, err := alloc.Calloc(10, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %#02x", i, v)
		}
	}
	alloc.Free(b)
}

func TestCallocOverflow(t *testing.T) {
	var alloc Allocator
	_, err := alloc.Calloc(math.MaxInt64/2, math.MaxInt64/2)
	if err != ErrOverflow {
		t.Fatalf("Calloc overflow: got %v, want ErrOverflow", err)
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	var alloc Allocator
	alloc.Free(nil)
	if alloc.allocs != 0 {
		t.Fatal("Free(nil) must not touch bookkeeping")
	}
}

func TestDoubleFreeAborts(t *testing.T) {
	var alloc Allocator
	var gotMsg string
	alloc.OnFatal = func(msg string) { gotMsg = msg }

	b, err := alloc.Malloc(64)
	if err != nil {
		t.Fatal(err)
	}
	alloc.Free(b)
	alloc.Free(b)

	if gotMsg == "" {
		t.Fatal("expected OnFatal to be invoked on double free")
	}
}

func TestInvalidPointerAborts(t *testing.T) {
	var alloc Allocator
	var gotMsg string
	alloc.OnFatal = func(msg string) { gotMsg = msg }

	garbage := make([]byte, 64)
	alloc.Free(garbage)

	if gotMsg == "" {
		t.Fatal("expected OnFatal to be invoked on an invalid pointer")
	}
}
