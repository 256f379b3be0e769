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

package counters

import (
	"github.com/nexlog/shmcore/membuf"
)

// Manager allocates and frees counter slots. It is not safe for concurrent
// use: a single logical owner performs all allocations and frees. Allocation
// is the slow control path; per-slot mutation through Counter handles and
// observation through the embedded Reader stay lock-free.
type Manager struct {
	*Reader
	freeList        []int32
	idHighWaterMark int32
}

// NewManager constructs a Manager over the two regions. The read API is the
// embedded Reader.
func NewManager(metaBuffer, valuesBuffer *membuf.Buffer) (*Manager, error) {
	reader, err := NewReader(metaBuffer, valuesBuffer)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Reader:          reader,
		idHighWaterMark: -1,
	}, nil
}

// Allocate allocates a counter with the given label and type id and no key.
// The returned id is published with a release-ordered ALLOCATED state once
// the metadata is fully written.
func (m *Manager) Allocate(label string, typeID int32) (int32, error) {
	return m.allocate(typeID, nil, label)
}

// AllocateWithKey allocates a counter and hands keyFunc a bounded writable
// view of exactly the 120-byte key region, pre-zeroed, so the caller does no
// offset arithmetic.
func (m *Manager) AllocateWithKey(label string, typeID int32, keyFunc func(key *membuf.Buffer)) (int32, error) {
	return m.allocate(typeID, func(recordOffset int) {
		keyFunc(m.metaBuffer.Slice(recordOffset+KeyOffset, MaxKeyLength))
	}, label)
}

// AllocateRaw takes key and label as byte slices, truncated to the key and
// label capacities. The key is copied directly from its slice; the label is
// converted to a string first, which can allocate.
func (m *Manager) AllocateRaw(typeID int32, key, label []byte) (int32, error) {
	if len(key) > MaxKeyLength {
		key = key[:MaxKeyLength]
	}
	if len(label) > MaxLabelLength {
		label = label[:MaxLabelLength]
	}
	return m.allocate(typeID, func(recordOffset int) {
		m.metaBuffer.PutBytes(recordOffset+KeyOffset, key)
	}, string(label))
}

// allocate reserves an id, writes the metadata record and publishes it. If
// writing panics (a key callback misbehaving, for example) the id goes back
// on the free list before the panic propagates; the state field was never
// touched, so the partial record can never be observed as allocated.
func (m *Manager) allocate(typeID int32, writeKey func(recordOffset int), label string) (int32, error) {
	id, err := m.nextCounterID()
	if err != nil {
		return NullCounterID, err
	}

	recordOffset := MetadataOffset(id)

	func() {
		defer func() {
			if r := recover(); r != nil {
				m.freeList = append(m.freeList, id)
				panic(r)
			}
		}()
		m.metaBuffer.PutInt32(recordOffset+TypeIDOffset, typeID)
		m.metaBuffer.SetMemory(recordOffset+KeyOffset, MaxKeyLength, 0)
		if writeKey != nil {
			writeKey(recordOffset)
		}
		if len(label) > MaxLabelLength {
			label = label[:MaxLabelLength]
		}
		m.metaBuffer.PutStringASCII(recordOffset+LabelLengthOffset, label)
	}()

	m.metaBuffer.PutInt32Ordered(recordOffset, RecordAllocated)
	return id, nil
}

// Free reclaims a counter slot. The RECLAIMED state is published with release
// ordering and the id joins the free list for FIFO reuse. The values slot is
// not zeroed here; zeroing happens when the id is next handed out.
func (m *Manager) Free(id int32) {
	m.validateCounterID(id)
	m.metaBuffer.PutInt32Ordered(MetadataOffset(id), RecordReclaimed)
	m.freeList = append(m.freeList, id)
}

// SetCounterValue stores value into a counter slot with release ordering.
// Administrative path; fast-path mutation goes through a Counter handle.
func (m *Manager) SetCounterValue(id int32, value int64) {
	m.validateCounterID(id)
	m.valuesBuffer.PutInt64Ordered(CounterOffset(id), value)
}

// HighWaterMarkID returns the highest id ever allocated, or -1.
func (m *Manager) HighWaterMarkID() int32 {
	return m.idHighWaterMark
}

// nextCounterID pops the free list head if one exists, clearing the stale
// value with a release store before the id can be re-published. Otherwise it
// bumps the high-water mark, leaving the mark untouched when capacity is
// exhausted.
func (m *Manager) nextCounterID() (int32, error) {
	if len(m.freeList) > 0 {
		id := m.freeList[0]
		m.freeList = m.freeList[1:]
		m.valuesBuffer.PutInt64Ordered(CounterOffset(id), 0)
		return id, nil
	}

	id := m.idHighWaterMark + 1
	if int(id+1)*CounterLength > m.valuesBuffer.Capacity() ||
		int(id+1)*MetadataLength > m.metaBuffer.Capacity() {
		return NullCounterID, &CapacityError{
			NextID:           id,
			ValuesCapacity:   m.valuesBuffer.Capacity(),
			MetadataCapacity: m.metaBuffer.Capacity(),
		}
	}
	m.idHighWaterMark = id
	return id, nil
}
