// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import (
	"math"

	"github.com/cznic/mathutil"
)

// Size-class geometry. Small classes (used by both the fast array and the
// bin array) are linear, one exact size per class. Large classes (bins
// only) are geometric with a 1.125 base above the 1024-byte small/large
// boundary; the bins array holds 64 of them (62 through 125), and every
// chunk of about 1.63 MiB or more falls in the last one.
const (
	mallocAlign    = 16 // chunk sizes are always a multiple of this
	minChunkSize   = 32
	maxChunkSize   = 33554432
	mmapThreshold  = 131072
	pageBatch      = 131072
	fastMaxSize    = 104
	fastConsolidate = 65536

	numFastClasses = 10
	numBinClasses  = 126
	smallBinBound  = 1024
	bigBinBase     = 1.125
	smallBinOffset = 62
)

// if n%m != 0 { n += m-n%m }. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// chunkSize rounds a user request up to a legal chunk size: header, footer
// and 16-byte alignment included, with a minChunkSize floor.
func chunkSize(request int) int {
	size := roundup(request+16, mallocAlign)
	if size < minChunkSize {
		size = minChunkSize
	}
	return size
}

// smallClass returns the size class for a chunk of the given size, valid
// for sizes up to and including smallBinBound. Shared by the fast array and
// the low end of the bin array.
func smallClass(size int) int { return mathutil.Max(0, size/16-2) }

// bigClass returns the bin-array size class for a chunk larger than
// smallBinBound. The raw geometric formula passes numBinClasses-1 at about
// 1.83 MiB (it would reach class 150 at maxChunkSize), and a coalesced free
// chunk is not bounded by any allocation-time ceiling — repeated merging in
// coalesce/releaseToBin can grow a free chunk up to the whole heap. The
// result is clamped to numBinClasses-1, which bins treat as "this size or
// larger", so oversized chunks land in the top bin instead of indexing past
// the array.
func bigClass(size int) int {
	class := smallBinOffset + int(math.Log(float64(size)/smallBinBound)/math.Log(bigBinBase))
	return mathutil.Min(class, numBinClasses-1)
}

// binClass returns the bins-array class index for a chunk of the given
// size, covering the whole [minChunkSize, maxChunkSize] range.
func binClass(size int) int {
	if size <= smallBinBound {
		return smallClass(size)
	}
	return bigClass(size)
}

// fastClass returns the fast-array class index for size, or -1 if size
// exceeds fastMaxSize — the fast array only ever serves chunks up to that
// bound, which in practice spans a handful of the low small classes; the
// array itself is sized numFastClasses for headroom.
func fastClass(size int) int {
	if size > fastMaxSize {
		return -1
	}
	return smallClass(size)
}
