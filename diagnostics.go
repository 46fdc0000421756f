// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import (
	"io"
	"os"
)

// osStderr and osExit are indirections over os.Stderr/os.Exit so tests can
// capture a fatal diagnostic without actually tearing down the test binary,
// in addition to the OnFatal hook on Allocator itself.
var (
	osStderr io.Writer = os.Stderr
	osExit             = os.Exit
)

// validate reads the head word at payload-8 and reports whether it is a
// legal, trustworthy chunk head: its encoded size must lie in
// [minChunkSize, maxChunkSize]. An uninitialized region (occupied=0,
// mapped=0, size=0) is already excluded by the size-range check, since
// zeroed memory decodes to size 0.
func validate(payload uintptr) (chunkAddr uintptr, size int, occupied, mapped, fastCached bool, ok bool) {
	chunkAddr = chunkOf(payload)
	w := *wordHead(chunkAddr)
	size, occupied, mapped, fastCached = readWord(w)
	ok = size >= minChunkSize && size <= maxChunkSize
	return
}
