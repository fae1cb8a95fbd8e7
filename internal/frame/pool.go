// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import "sync"

const (
	// SmallBufferSize covers the ready byte and status+ACK reads.
	SmallBufferSize = 16
	// FrameBufferSize covers the status byte plus the largest normal frame.
	FrameBufferSize = 1 + Overhead + 255
)

// BufferPool recycles bus read buffers. Buffers are zeroed on return so a
// stale frame can never be mistaken for a fresh one.
type BufferPool struct {
	smallPool sync.Pool
	framePool sync.Pool
}

var defaultPool = NewBufferPool()

// NewBufferPool creates a pool with small and frame-sized tiers
func NewBufferPool() *BufferPool {
	return &BufferPool{
		smallPool: sync.Pool{
			New: func() any {
				buf := make([]byte, SmallBufferSize)
				return &buf
			},
		},
		framePool: sync.Pool{
			New: func() any {
				buf := make([]byte, FrameBufferSize)
				return &buf
			},
		},
	}
}

// GetBuffer returns a buffer of exactly size bytes
func (p *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		if bufPtr, ok := p.smallPool.Get().(*[]byte); ok {
			return (*bufPtr)[:size]
		}
	case size <= FrameBufferSize:
		if bufPtr, ok := p.framePool.Get().(*[]byte); ok {
			return (*bufPtr)[:size]
		}
	}
	return make([]byte, size)
}

// PutBuffer zeroes buf and returns it to its tier
func (p *BufferPool) PutBuffer(buf []byte) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	clear(full)

	switch cap(buf) {
	case SmallBufferSize:
		p.smallPool.Put(&full)
	case FrameBufferSize:
		p.framePool.Put(&full)
	}
}

// GetBuffer gets a buffer from the default pool
func GetBuffer(size int) []byte {
	return defaultPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buf []byte) {
	defaultPool.PutBuffer(buf)
}
