// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build darwin || dragonfly || freebsd || linux || openbsd || solaris || netbsd

package chunkalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// reserveSize is the size of the single address-space reservation backing
// ExtendBreak. The real process break belongs to the Go runtime to manage;
// calling sbrk(2) directly here would race the runtime's memory manager.
// Instead ExtendBreak simulates a program break inside one upfront
// PROT_NONE reservation, committing pages into it as the heap grows — safe
// to run alongside a live Go process, documented in DESIGN.md.
const reserveSize = 1 << 34

// osPageProvider is the default, real-OS-backed PageProvider for unix-like
// platforms. It uses golang.org/x/sys/unix rather than the raw syscall
// package so the arithmetic on mmap/munmap/mprotect arguments stays in one
// place instead of being re-derived at each call site.
type osPageProvider struct {
	reserved uintptr
	used     int
}

func newOSPageProvider() PageProvider { return &osPageProvider{} }

func (p *osPageProvider) ExtendBreak(n int) (uintptr, error) {
	if p.reserved == 0 {
		b, err := unix.Mmap(-1, 0, reserveSize, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
		if err != nil {
			return 0, err
		}

		p.reserved = uintptr(unsafe.Pointer(&b[0]))
	}

	if p.used+n > reserveSize {
		return 0, unix.ENOMEM
	}

	base := p.reserved + uintptr(p.used)
	region := unsafe.Slice((*byte)(unsafe.Pointer(base)), n)
	if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return 0, err
	}

	p.used += n
	return base, nil
}

func (p *osPageProvider) MapAnonymous(n int) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}

	return uintptr(unsafe.Pointer(&b[0])), nil
}

// Remap is implemented as allocate-copy-free rather than a native mremap(2)
// call, so the same code path works on every unix variant this provider
// targets (mremap is a Linux-only syscall; darwin/bsd have no equivalent).
func (p *osPageProvider) Remap(addr uintptr, oldSize, newSize int) (uintptr, error) {
	newBase, err := p.MapAnonymous(newSize)
	if err != nil {
		return 0, err
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(newBase)), n), unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
	if err := p.Unmap(addr, oldSize); err != nil {
		return 0, err
	}

	return newBase, nil
}

func (p *osPageProvider) Unmap(addr uintptr, size int) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return unix.Munmap(b)
}
