/*
 * Copyright 2025 The shmcore Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package membuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// CacheLineLength is the assumed CPU cache line size in bytes.
const CacheLineLength = 64

// ErrEmptyRegion indicates a Buffer was constructed over a zero-length span.
var ErrEmptyRegion = errors.New("membuf: empty region")

// Buffer provides typed access to a contiguous byte region with ordering
// control. It keeps the backing slice and the region's base address;
// per-offset addresses are computed on demand from that base.
type Buffer struct {
	data     []byte
	basePtr  unsafe.Pointer
	capacity int
}

// NewBuffer wraps data in a Buffer. The base address of data must be 8-byte
// aligned so that 64-bit atomic operations are valid on every platform.
func NewBuffer(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyRegion
	}
	ptr := unsafe.Pointer(&data[0])
	if uintptr(ptr)&7 != 0 {
		return nil, fmt.Errorf("membuf: base address %#x is not 8-byte aligned", uintptr(ptr))
	}
	return &Buffer{
		data:     data,
		basePtr:  ptr,
		capacity: len(data),
	}, nil
}

// NewAlignedBuffer allocates a fresh heap region of the given capacity whose
// base address is aligned to alignment (a power of two, at least 8) and wraps
// it in a Buffer. Useful for tests and in-process regions; shared mappings
// come from the caller.
func NewAlignedBuffer(capacity, alignment int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrEmptyRegion
	}
	if alignment < 8 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("membuf: alignment %d is not a power of two >= 8", alignment)
	}
	raw := make([]byte, capacity+alignment)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	skew := int((uintptr(alignment) - addr&uintptr(alignment-1)) & uintptr(alignment-1))
	return NewBuffer(raw[skew : skew+capacity])
}

// Capacity returns the region capacity in bytes.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// BoundsCheck panics if [offset, offset+length) does not lie within the
// region. A violation is a programming bug, not a runtime condition.
func (b *Buffer) BoundsCheck(offset, length int) {
	if offset < 0 || length < 0 || offset+length > b.capacity {
		panic(fmt.Sprintf("membuf: access [%d,+%d) outside capacity %d", offset, length, b.capacity))
	}
}

// Slice returns a sub-view over [offset, offset+length) sharing the same
// backing region. The sub-view base must remain 8-byte aligned; a misaligned
// offset panics.
func (b *Buffer) Slice(offset, length int) *Buffer {
	b.BoundsCheck(offset, length)
	ptr := b.ptrAt(offset)
	if uintptr(ptr)&7 != 0 {
		panic(fmt.Sprintf("membuf: slice at offset %d is not 8-byte aligned", offset))
	}
	return &Buffer{
		data:     b.data[offset : offset+length : offset+length],
		basePtr:  ptr,
		capacity: length,
	}
}

func (b *Buffer) ptrAt(offset int) unsafe.Pointer {
	return unsafe.Pointer(uintptr(b.basePtr) + uintptr(offset))
}

// GetInt64 performs a plain 64-bit load.
func (b *Buffer) GetInt64(offset int) int64 {
	b.BoundsCheck(offset, 8)
	return *(*int64)(b.ptrAt(offset))
}

// PutInt64 performs a plain 64-bit store.
func (b *Buffer) PutInt64(offset int, value int64) {
	b.BoundsCheck(offset, 8)
	*(*int64)(b.ptrAt(offset)) = value
}

// GetInt64Volatile performs a 64-bit load with acquire semantics: it observes
// every store that happened-before the matching release store.
func (b *Buffer) GetInt64Volatile(offset int) int64 {
	b.BoundsCheck(offset, 8)
	return atomic.LoadInt64((*int64)(b.ptrAt(offset)))
}

// PutInt64Ordered performs a 64-bit store with release semantics: prior
// stores cannot be reordered past it.
func (b *Buffer) PutInt64Ordered(offset int, value int64) {
	b.BoundsCheck(offset, 8)
	atomic.StoreInt64((*int64)(b.ptrAt(offset)), value)
}

// GetAndAddInt64 atomically adds delta to the 64-bit value at offset with
// sequentially-consistent ordering and returns the value before the addition.
func (b *Buffer) GetAndAddInt64(offset int, delta int64) int64 {
	b.BoundsCheck(offset, 8)
	return atomic.AddInt64((*int64)(b.ptrAt(offset)), delta) - delta
}

// GetInt32 performs a plain 32-bit load.
func (b *Buffer) GetInt32(offset int) int32 {
	b.BoundsCheck(offset, 4)
	return *(*int32)(b.ptrAt(offset))
}

// PutInt32 performs a plain 32-bit store.
func (b *Buffer) PutInt32(offset int, value int32) {
	b.BoundsCheck(offset, 4)
	*(*int32)(b.ptrAt(offset)) = value
}

// GetInt32Volatile performs a 32-bit load with acquire semantics.
func (b *Buffer) GetInt32Volatile(offset int) int32 {
	b.BoundsCheck(offset, 4)
	return atomic.LoadInt32((*int32)(b.ptrAt(offset)))
}

// PutInt32Ordered performs a 32-bit store with release semantics.
func (b *Buffer) PutInt32Ordered(offset int, value int32) {
	b.BoundsCheck(offset, 4)
	atomic.StoreInt32((*int32)(b.ptrAt(offset)), value)
}

// GetAndAddInt32 atomically adds delta to the 32-bit value at offset and
// returns the value before the addition.
func (b *Buffer) GetAndAddInt32(offset int, delta int32) int32 {
	b.BoundsCheck(offset, 4)
	return atomic.AddInt32((*int32)(b.ptrAt(offset)), delta) - delta
}

// GetUint16 performs a plain little-endian 16-bit load.
func (b *Buffer) GetUint16(offset int) uint16 {
	b.BoundsCheck(offset, 2)
	return binary.LittleEndian.Uint16(b.data[offset : offset+2])
}

// PutUint16 performs a plain little-endian 16-bit store.
func (b *Buffer) PutUint16(offset int, value uint16) {
	b.BoundsCheck(offset, 2)
	binary.LittleEndian.PutUint16(b.data[offset:offset+2], value)
}

// GetUint8 performs a plain byte load.
func (b *Buffer) GetUint8(offset int) uint8 {
	b.BoundsCheck(offset, 1)
	return b.data[offset]
}

// PutUint8 performs a plain byte store.
func (b *Buffer) PutUint8(offset int, value uint8) {
	b.BoundsCheck(offset, 1)
	b.data[offset] = value
}

// PutBytes copies src into the region at offset with a plain store.
func (b *Buffer) PutBytes(offset int, src []byte) {
	b.BoundsCheck(offset, len(src))
	copy(b.data[offset:offset+len(src)], src)
}

// PutBytesBuffer copies length bytes from src starting at srcOffset into the
// region at offset.
func (b *Buffer) PutBytesBuffer(offset int, src *Buffer, srcOffset, length int) {
	src.BoundsCheck(srcOffset, length)
	b.BoundsCheck(offset, length)
	copy(b.data[offset:offset+length], src.data[srcOffset:srcOffset+length])
}

// GetBytes returns a copy of the length bytes at offset.
func (b *Buffer) GetBytes(offset, length int) []byte {
	b.BoundsCheck(offset, length)
	out := make([]byte, length)
	copy(out, b.data[offset:offset+length])
	return out
}

// SetMemory fills length bytes at offset with value.
func (b *Buffer) SetMemory(offset, length int, value byte) {
	b.BoundsCheck(offset, length)
	region := b.data[offset : offset+length]
	for i := range region {
		region[i] = value
	}
}

// PutStringASCII writes s as a 4-byte little-endian length prefix followed by
// the string bytes and returns the number of bytes written.
func (b *Buffer) PutStringASCII(offset int, s string) int {
	b.BoundsCheck(offset, 4+len(s))
	b.PutInt32(offset, int32(len(s)))
	copy(b.data[offset+4:offset+4+len(s)], s)
	return 4 + len(s)
}

// GetStringASCII reads a string written by PutStringASCII.
func (b *Buffer) GetStringASCII(offset int) string {
	length := int(b.GetInt32(offset))
	b.BoundsCheck(offset+4, length)
	return string(b.data[offset+4 : offset+4+length])
}
