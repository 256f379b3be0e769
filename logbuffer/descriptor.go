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

package logbuffer

import "fmt"

const (
	// FrameAlignment is the byte alignment of every frame in a term.
	FrameAlignment = 32

	// PartitionCount is the number of term partitions a log rotates through.
	PartitionCount = 3

	// TailCounterLength is the metadata space occupied by the tail counters.
	TailCounterLength = PartitionCount * 8
)

// Appender results packed into the low 32 bits of the appender return value.
const (
	// ResultTripped signals the producer reached the end of the term; the
	// caller rotates to the next partition.
	ResultTripped int32 = -1

	// ResultFailed signals the producer raced past the end of an already
	// tripped term; the caller retries on the new term.
	ResultFailed int32 = -2
)

// PackTail packs a term id and a term offset (or a negative result sentinel)
// into a single int64, term id high, offset low.
func PackTail(termID, termOffset int32) int64 {
	return int64(termID)<<32 | int64(uint32(termOffset))
}

// TermID extracts the term id from a raw tail or a packed appender result.
func TermID(rawTail int64) int32 {
	return int32(rawTail >> 32)
}

// TermOffset extracts the term offset from a raw tail or a packed appender
// result. Negative values are the end-of-term sentinels.
func TermOffset(rawTail int64) int32 {
	return int32(rawTail)
}

// IsEndOfTerm reports whether a packed appender result carries an end-of-term
// sentinel rather than a resulting offset.
func IsEndOfTerm(result int64) bool {
	return TermOffset(result) < 0
}

// TailCounterOffset returns the metadata-buffer offset of the tail counter
// for a partition.
func TailCounterOffset(partitionIndex int) (int, error) {
	if partitionIndex < 0 || partitionIndex >= PartitionCount {
		return 0, fmt.Errorf("logbuffer: partition index %d outside [0, %d)", partitionIndex, PartitionCount)
	}
	return partitionIndex * 8, nil
}

// CheckTermLength validates a term buffer capacity: a power of two and an
// integral multiple of the frame alignment.
func CheckTermLength(termLength int) error {
	if termLength < FrameAlignment || termLength&(termLength-1) != 0 {
		return fmt.Errorf("logbuffer: term length %d is not a power of two >= %d", termLength, FrameAlignment)
	}
	return nil
}

// AlignFrameLength rounds a frame length up to the frame alignment.
func AlignFrameLength(length int) int {
	return (length + FrameAlignment - 1) &^ (FrameAlignment - 1)
}
