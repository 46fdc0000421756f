// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build windows

package chunkalloc

import (
	"syscall"
	"unsafe"
)

// reserveSize mirrors provider_unix.go's reservation strategy: Windows has
// no brk(2) equivalent at all, so extend_break is simulated the same way
// everywhere, committing pages into one upfront MEM_RESERVE region as the
// heap grows.
const reserveSize = 1 << 34

// osPageProvider is the default, real-OS-backed PageProvider for Windows.
// It uses CreateFileMapping/MapViewOfFile for anonymous mappings, and
// VirtualAlloc's MEM_RESERVE/MEM_COMMIT split for the simulated program
// break.
type osPageProvider struct {
	reserved uintptr
	used     int
}

// handleMap lets Unmap recover the file-mapping handle CreateFileMapping
// returned for a given base address, exactly as in mmap_windows.go.
var handleMap = map[uintptr]syscall.Handle{}

func newOSPageProvider() PageProvider { return &osPageProvider{} }

func (p *osPageProvider) ExtendBreak(n int) (uintptr, error) {
	if p.reserved == 0 {
		addr, err := syscall.VirtualAlloc(0, reserveSize, syscall.MEM_RESERVE, syscall.PAGE_READWRITE)
		if err != nil {
			return 0, err
		}

		p.reserved = addr
	}

	if p.used+n > reserveSize {
		return 0, syscall.ENOMEM
	}

	base := p.reserved + uintptr(p.used)
	if _, err := syscall.VirtualAlloc(base, uintptr(n), syscall.MEM_COMMIT, syscall.PAGE_READWRITE); err != nil {
		return 0, err
	}

	p.used += n
	return base, nil
}

func (p *osPageProvider) MapAnonymous(n int) (uintptr, error) {
	h, err := syscall.CreateFileMapping(syscall.InvalidHandle, nil, syscall.PAGE_READWRITE, 0, uint32(n), nil)
	if err != nil {
		return 0, err
	}

	addr, err := syscall.MapViewOfFile(h, syscall.FILE_MAP_WRITE, 0, 0, uintptr(n))
	if err != nil {
		syscall.CloseHandle(h)
		return 0, err
	}

	handleMap[addr] = h
	return addr, nil
}

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
	if err := syscall.UnmapViewOfFile(addr); err != nil {
		return err
	}

	h, ok := handleMap[addr]
	if !ok {
		return syscall.EINVAL
	}
	delete(handleMap, addr)
	return syscall.CloseHandle(h)
}
