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
	"fmt"

	"github.com/nexlog/shmcore/membuf"
)

// Reader is a read-only view over the metadata and values regions. Any number
// of Readers may observe regions that a Manager in another thread or process
// is mutating.
//
// Field reads are individually consistent but a record may be freed and
// reallocated between two reads; callers needing strict consistency re-check
// CounterState after reading dependent fields.
type Reader struct {
	metaBuffer   *membuf.Buffer
	valuesBuffer *membuf.Buffer
	maxCounterID int32
}

// NewReader constructs a Reader over the two regions. The metadata region
// must be at least twice the size of the values region. A metadata record is
// four times the size of a values slot, so this check alone does not give
// every values slot a record: MaxCounterID follows the values region only,
// while allocation also checks the metadata capacity.
func NewReader(metaBuffer, valuesBuffer *membuf.Buffer) (*Reader, error) {
	if metaBuffer.Capacity() < 2*valuesBuffer.Capacity() {
		return nil, fmt.Errorf("counters: metadata capacity %d < 2 * values capacity %d",
			metaBuffer.Capacity(), valuesBuffer.Capacity())
	}
	return &Reader{
		metaBuffer:   metaBuffer,
		valuesBuffer: valuesBuffer,
		maxCounterID: int32(valuesBuffer.Capacity()/CounterLength) - 1,
	}, nil
}

// MaxCounterID returns the highest counter id the regions can hold.
func (r *Reader) MaxCounterID() int32 {
	return r.maxCounterID
}

// ValuesBuffer returns the values region the reader observes.
func (r *Reader) ValuesBuffer() *membuf.Buffer {
	return r.valuesBuffer
}

// CounterState returns the record state with acquire semantics. Observing
// RecordAllocated guarantees visibility of the type id, key and label written
// by the same allocation.
func (r *Reader) CounterState(id int32) int32 {
	r.validateCounterID(id)
	return r.metaBuffer.GetInt32Volatile(MetadataOffset(id))
}

// CounterTypeID returns the type id of a counter. Only meaningful after
// CounterState observed RecordAllocated.
func (r *Reader) CounterTypeID(id int32) int32 {
	r.validateCounterID(id)
	return r.metaBuffer.GetInt32(MetadataOffset(id) + TypeIDOffset)
}

// CounterKey returns a copy of the 120 key bytes of a counter.
func (r *Reader) CounterKey(id int32) []byte {
	r.validateCounterID(id)
	return r.metaBuffer.GetBytes(MetadataOffset(id)+KeyOffset, MaxKeyLength)
}

// CounterLabel returns the counter label. A torn label length from a
// concurrent reallocation is clamped to the valid range.
func (r *Reader) CounterLabel(id int32) string {
	r.validateCounterID(id)
	offset := MetadataOffset(id)
	length := r.metaBuffer.GetInt32(offset + LabelLengthOffset)
	if length < 0 {
		length = 0
	}
	if length > MaxLabelLength {
		length = MaxLabelLength
	}
	return string(r.metaBuffer.GetBytes(offset+LabelOffset, int(length)))
}

// CounterValue returns the counter value with acquire semantics.
func (r *Reader) CounterValue(id int32) int64 {
	r.validateCounterID(id)
	return r.valuesBuffer.GetInt64Volatile(CounterOffset(id))
}

// ForEach invokes fn for every allocated counter. Iteration stops at the
// first unused record: ids are handed out contiguously, so an unused record
// marks the high-water mark. Records whose state changes while their fields
// are being read are skipped.
func (r *Reader) ForEach(fn func(id, typeID int32, label string)) {
	for id := int32(0); id <= r.maxCounterID; id++ {
		state := r.CounterState(id)
		if state == RecordUnused {
			break
		}
		if state != RecordAllocated {
			continue
		}
		typeID := r.CounterTypeID(id)
		label := r.CounterLabel(id)
		if r.CounterState(id) != RecordAllocated {
			continue
		}
		fn(id, typeID, label)
	}
}

func (r *Reader) validateCounterID(id int32) {
	if id < 0 || id > r.maxCounterID {
		panic(fmt.Sprintf("counters: id %d outside [0, %d]", id, r.maxCounterID))
	}
}
