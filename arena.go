// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import "fmt"

// Allocator is a process-wide arena allocating and freeing memory (as in
// C's malloc/calloc/realloc/free). Its zero value is ready for use.
//
// Allocator is not safe for concurrent use: the fast/bin arrays and heap
// bookkeeping are mutated without synchronization, so callers sharing an
// Allocator across goroutines must provide their own locking.
type Allocator struct {
	heapOrigin uintptr // first byte of the heap region, 0 until first use
	heapFront  uintptr // head address of the next chunk to carve
	heapLimit  uintptr // one past the last byte obtained from the provider

	fast [numFastClasses]uintptr
	bins [numBinClasses]uintptr

	provider PageProvider
	mapped   map[uintptr]int // mapped chunk address -> size, for Close

	allocs int // live allocation count
	bytes  int // bytes currently held from the OS (heap + mapped)

	// OnFatal, if non-nil, is called instead of the default
	// stderr-and-exit behavior when the allocator detects caller misuse
	// (an invalid pointer or a double free). It lets tests observe these
	// conditions without terminating the process. Whether or not OnFatal
	// is set, the triggering call still aborts and returns its zero
	// value; OnFatal only controls whether the process also exits.
	OnFatal func(msg string)
}

func (a *Allocator) provide() PageProvider {
	if a.provider == nil {
		a.provider = newOSPageProvider()
	}
	return a.provider
}

// fatal reports caller misuse. The default behavior writes a short
// diagnostic straight to os.Stderr and terminates the process. Returns to
// the caller, which must stop processing the current request immediately
// after calling fatal.
func (a *Allocator) fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if a.OnFatal != nil {
		a.OnFatal(msg)
		return
	}

	fmt.Fprintln(osStderr, msg)
	osExit(2)
}

// Close releases every OS region this allocator still holds (the heap
// reservation and any outstanding mapped chunks) and resets the allocator
// to its zero value. It is not necessary to Close an Allocator when exiting
// a process.
func (a *Allocator) Close() error {
	var err error
	if a.heapOrigin != 0 {
		if e := a.provide().Unmap(a.heapOrigin, reserveSize); e != nil && err == nil {
			err = e
		}
	}
	for addr, size := range a.mapped {
		if e := a.provide().Unmap(addr, size); e != nil && err == nil {
			err = e
		}
	}
	*a = Allocator{}
	return err
}
