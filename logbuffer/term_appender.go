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

import (
	"fmt"

	"github.com/nexlog/shmcore/membuf"
)

// ReservedValueSupplier computes the reserved value for a frame after the
// payload is in place, before the frame length is published.
type ReservedValueSupplier func(termBuffer *membuf.Buffer, frameOffset, frameLength int) int64

// TermAppender appends frames to one term partition. Any number of producers
// may call the append operations concurrently; the fetch-add on the tail
// hands each of them a disjoint range.
//
// Every operation returns a packed result: term id in the high 32 bits and,
// in the low 32 bits, the term offset after the append on success or
// ResultTripped / ResultFailed at end of term. Callers check the sign of the
// low half via TermOffset or IsEndOfTerm.
type TermAppender struct {
	termBuffer *membuf.Buffer
	metaBuffer *membuf.Buffer
	tailOffset int
}

// NewTermAppender binds an appender to a term buffer and the tail counter of
// the given partition within the metadata buffer.
func NewTermAppender(termBuffer, metaBuffer *membuf.Buffer, partitionIndex int) (*TermAppender, error) {
	if err := CheckTermLength(termBuffer.Capacity()); err != nil {
		return nil, err
	}
	tailOffset, err := TailCounterOffset(partitionIndex)
	if err != nil {
		return nil, err
	}
	if tailOffset+8 > metaBuffer.Capacity() {
		return nil, fmt.Errorf("logbuffer: metadata capacity %d cannot hold tail counter at offset %d",
			metaBuffer.Capacity(), tailOffset)
	}
	return &TermAppender{
		termBuffer: termBuffer,
		metaBuffer: metaBuffer,
		tailOffset: tailOffset,
	}, nil
}

// RawTailVolatile returns the packed tail with acquire semantics.
func (a *TermAppender) RawTailVolatile() int64 {
	return a.metaBuffer.GetInt64Volatile(a.tailOffset)
}

// Claim reserves a frame for length bytes of payload and wraps claim around
// it. The header is written; the caller fills the payload and commits or
// aborts the claim. The claimed frame must fit a term: a frame longer than
// the term length trips every producer without ever succeeding.
func (a *TermAppender) Claim(header FrameHeaderWriter, length int, claim *BufferClaim) int64 {
	frameLength := length + DataFrameHeaderLength
	alignedLength := AlignFrameLength(frameLength)

	rawTail := a.metaBuffer.GetAndAddInt64(a.tailOffset, int64(alignedLength))
	termOffset := rawTail & 0xFFFFFFFF
	termID := TermID(rawTail)
	termLength := a.termBuffer.Capacity()

	resultingOffset := termOffset + int64(alignedLength)
	if resultingOffset > int64(termLength) {
		return PackTail(termID, a.handleEndOfLogCondition(termOffset, termLength, header, termID))
	}

	frameOffset := int(termOffset)
	header.Write(a.termBuffer, frameOffset, frameLength, termID)
	claim.wrap(a.termBuffer, frameOffset, frameLength)

	return PackTail(termID, int32(resultingOffset))
}

// AppendUnfragmented appends a whole message as a single frame.
func (a *TermAppender) AppendUnfragmented(header FrameHeaderWriter, srcBuffer *membuf.Buffer,
	srcOffset, length int, reservedValueSupplier ReservedValueSupplier) int64 {

	frameLength := length + DataFrameHeaderLength
	alignedLength := AlignFrameLength(frameLength)

	rawTail := a.metaBuffer.GetAndAddInt64(a.tailOffset, int64(alignedLength))
	termOffset := rawTail & 0xFFFFFFFF
	termID := TermID(rawTail)
	termLength := a.termBuffer.Capacity()

	resultingOffset := termOffset + int64(alignedLength)
	if resultingOffset > int64(termLength) {
		return PackTail(termID, a.handleEndOfLogCondition(termOffset, termLength, header, termID))
	}

	frameOffset := int(termOffset)
	header.Write(a.termBuffer, frameOffset, frameLength, termID)
	a.termBuffer.PutBytesBuffer(frameOffset+DataFrameHeaderLength, srcBuffer, srcOffset, length)

	if reservedValueSupplier != nil {
		reservedValue := reservedValueSupplier(a.termBuffer, frameOffset, frameLength)
		a.termBuffer.PutInt64(frameOffset+ReservedValueOffset, reservedValue)
	}

	FrameLengthOrdered(a.termBuffer, frameOffset, frameLength)

	return PackTail(termID, int32(resultingOffset))
}

// AppendFragmented appends a message as a run of frames each carrying at most
// maxPayloadLength bytes. The whole run is reserved with one fetch-add; the
// first frame carries the begin-fragment flag, the last the end-fragment
// flag, and every frame length is published individually.
//
// maxPayloadLength plus the header length must be frame-aligned so the full
// fragments tile the reservation exactly.
func (a *TermAppender) AppendFragmented(header FrameHeaderWriter, srcBuffer *membuf.Buffer,
	srcOffset, length, maxPayloadLength int, reservedValueSupplier ReservedValueSupplier) int64 {

	if maxPayloadLength <= 0 {
		panic(fmt.Sprintf("logbuffer: max payload length %d must be positive", maxPayloadLength))
	}

	numMaxPayloads := length / maxPayloadLength
	remainingPayload := length % maxPayloadLength
	lastFrameLength := 0
	if remainingPayload > 0 {
		lastFrameLength = AlignFrameLength(remainingPayload + DataFrameHeaderLength)
	}
	requiredLength := numMaxPayloads*(maxPayloadLength+DataFrameHeaderLength) + lastFrameLength

	rawTail := a.metaBuffer.GetAndAddInt64(a.tailOffset, int64(requiredLength))
	termOffset := rawTail & 0xFFFFFFFF
	termID := TermID(rawTail)
	termLength := a.termBuffer.Capacity()

	resultingOffset := termOffset + int64(requiredLength)
	if resultingOffset > int64(termLength) {
		return PackTail(termID, a.handleEndOfLogCondition(termOffset, termLength, header, termID))
	}

	flags := BeginFragmentFlag
	remaining := length
	frameOffset := int(termOffset)
	for {
		bytesToWrite := remaining
		if bytesToWrite > maxPayloadLength {
			bytesToWrite = maxPayloadLength
		}
		frameLength := bytesToWrite + DataFrameHeaderLength

		header.Write(a.termBuffer, frameOffset, frameLength, termID)
		a.termBuffer.PutBytesBuffer(frameOffset+DataFrameHeaderLength,
			srcBuffer, srcOffset+(length-remaining), bytesToWrite)

		if remaining <= maxPayloadLength {
			flags |= EndFragmentFlag
		}
		PutFrameFlags(a.termBuffer, frameOffset, flags)

		if reservedValueSupplier != nil {
			reservedValue := reservedValueSupplier(a.termBuffer, frameOffset, frameLength)
			a.termBuffer.PutInt64(frameOffset+ReservedValueOffset, reservedValue)
		}

		FrameLengthOrdered(a.termBuffer, frameOffset, frameLength)

		flags = 0
		frameOffset += AlignFrameLength(frameLength)
		remaining -= bytesToWrite
		if remaining <= 0 {
			break
		}
	}

	return PackTail(termID, int32(resultingOffset))
}

// handleEndOfLogCondition resolves a reservation that reached past the term.
// A grant starting beyond the end means another producer already tripped the
// term: fail so the caller retries on the new term. A grant starting exactly
// at the end trips without writing. A grant starting inside the term pads the
// remainder so consumers can march through it.
func (a *TermAppender) handleEndOfLogCondition(termOffset int64, termLength int,
	header FrameHeaderWriter, termID int32) int32 {

	if termOffset > int64(termLength) {
		return ResultFailed
	}
	if termOffset == int64(termLength) {
		return ResultTripped
	}

	frameOffset := int(termOffset)
	paddingLength := termLength - frameOffset
	header.Write(a.termBuffer, frameOffset, paddingLength, termID)
	PutFrameType(a.termBuffer, frameOffset, FrameTypePadding)
	FrameLengthOrdered(a.termBuffer, frameOffset, paddingLength)

	return ResultTripped
}
