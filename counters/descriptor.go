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

import "github.com/nexlog/shmcore/membuf"

// Values region layout. Each counter owns a 128-byte slot:
//
//	0..8    counter value (int64, little-endian)
//	8..128  padding to the next cache-line-pair boundary
//
// Metadata region layout. Each counter owns a 512-byte record:
//
//	0..4    record state (int32)
//	4..8    type id (int32)
//	8..128  key bytes (caller-defined)
//	128..132 label length (int32)
//	132..512 label bytes
const (
	// CounterLength is the size of one values slot: a cache-line pair, so no
	// two counters share a line.
	CounterLength = 2 * membuf.CacheLineLength

	// MetadataLength is the size of one metadata record.
	MetadataLength = 4 * CounterLength

	// TypeIDOffset is the offset of the type id within a metadata record.
	TypeIDOffset = 4

	// KeyOffset is the offset of the key bytes within a metadata record.
	KeyOffset = 8

	// MaxKeyLength is the size of the caller-defined key region.
	MaxKeyLength = 120

	// LabelLengthOffset is the offset of the label length prefix.
	LabelLengthOffset = KeyOffset + MaxKeyLength

	// LabelOffset is the offset of the label bytes.
	LabelOffset = LabelLengthOffset + 4

	// MaxLabelLength is the maximum label length in bytes.
	MaxLabelLength = MetadataLength - LabelOffset
)

// Record states. The state is the first field of a metadata record and is the
// publication point for the rest of the record.
const (
	RecordUnused    int32 = 0
	RecordAllocated int32 = 1
	RecordReclaimed int32 = -1
)

// NullCounterID is returned by searches that find no matching counter.
const NullCounterID int32 = -1

// DefaultTypeID is the type id of counters allocated without an explicit type.
const DefaultTypeID int32 = 0

// CounterOffset returns the byte offset of a counter's value slot within the
// values region.
func CounterOffset(id int32) int {
	return int(id) * CounterLength
}

// MetadataOffset returns the byte offset of a counter's metadata record
// within the metadata region.
func MetadataOffset(id int32) int {
	return int(id) * MetadataLength
}
