// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

// Two doubly-linked intrusive free-list arrays (the arena's fast[10] and
// bins[126]) share the routines in this file. Each array slot holds the
// address of the head chunk of its list, or 0 for empty.

// freeListInsert prepends chunk to the list at array[class], updating the
// displaced head's prev.
func freeListInsert(array []uintptr, class int, chunkAddr uintptr) {
	n := nodeAt(chunkAddr)
	n.prev = 0
	n.next = array[class]
	if n.next != 0 {
		nodeAt(n.next).prev = chunkAddr
	}
	array[class] = chunkAddr
}

// freeListPop unlinks and returns the head chunk at array[class], or 0.
func freeListPop(array []uintptr, class int) uintptr {
	head := array[class]
	if head == 0 {
		return 0
	}
	n := nodeAt(head)
	array[class] = n.next
	if n.next != 0 {
		nodeAt(n.next).prev = 0
	}
	return head
}

// freeListFindFit scans array from class upward (inclusive) through
// maxClass (inclusive) for the first non-empty list, pops and returns its
// head. This is first-fit within the first non-empty class; there is no
// within-class best-fit. Returns 0 if nothing fits.
func freeListFindFit(array []uintptr, class, maxClass int) uintptr {
	for c := class; c <= maxClass; c++ {
		if array[c] != 0 {
			return freeListPop(array, c)
		}
	}
	return 0
}

// freeListDetach removes chunkAddr from whichever list it currently sits
// in, given the class its own recorded size maps to. chunkAddr must
// currently be a member of array[class].
func freeListDetach(array []uintptr, class int, chunkAddr uintptr) {
	n := nodeAt(chunkAddr)
	switch {
	case n.prev == 0:
		array[class] = n.next
		if n.next != 0 {
			nodeAt(n.next).prev = 0
		}
	case n.next == 0:
		nodeAt(n.prev).next = 0
	default:
		nodeAt(n.prev).next = n.next
		nodeAt(n.next).prev = n.prev
	}
}
