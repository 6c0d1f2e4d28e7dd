// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package seekbuf provides an in-memory io.WriteSeeker, used to stage
// output that needs back-patching before it reaches a non-seekable sink.
package seekbuf

import (
	"errors"
	"io"
)

// ErrNegativeOffset is returned when a seek would move before the start.
var ErrNegativeOffset = errors.New("seekbuf: negative position")

// Buffer is a growable byte buffer with a write cursor that can be moved.
// Writing past the end grows the buffer; writing before the end overwrites.
// The zero value is an empty buffer ready to use.
type Buffer struct {
	data []byte
	pos  int
}

// Write writes p at the current position.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		if end > cap(b.data) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek moves the write cursor. Seeking past the end is allowed; the gap is
// zero filled by the next write.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, errors.New("seekbuf: invalid whence")
	}
	pos := base + offset
	if pos < 0 {
		return 0, ErrNegativeOffset
	}
	b.pos = int(pos)
	return pos, nil
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the buffer content. The slice aliases the buffer until the
// next write.
func (b *Buffer) Bytes() []byte { return b.data }

// WriteTo writes the buffer content to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}
