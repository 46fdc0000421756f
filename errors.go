// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkalloc

import "errors"

// ErrOverflow is returned by UnsafeZalloc/Calloc when count*size overflows an
// int, rather than silently under-allocating.
var ErrOverflow = errors.New("chunkalloc: zalloc size overflow")
