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
	"bytes"
	"sync"
	"testing"

	"github.com/nexlog/shmcore/membuf"
)

const testTermID int32 = 7

// newTestAppender builds an appender over heap regions with the tail preset
// to (testTermID, termOffset).
func newTestAppender(t *testing.T, termLength int, termOffset int32) (*TermAppender, *membuf.Buffer, *membuf.Buffer) {
	t.Helper()
	termBuffer, err := membuf.NewAlignedBuffer(termLength, membuf.CacheLineLength)
	if err != nil {
		t.Fatalf("term buffer: %v", err)
	}
	metaBuffer, err := membuf.NewAlignedBuffer(TailCounterLength, membuf.CacheLineLength)
	if err != nil {
		t.Fatalf("metadata buffer: %v", err)
	}
	metaBuffer.PutInt64(0, PackTail(testTermID, termOffset))

	appender, err := NewTermAppender(termBuffer, metaBuffer, 0)
	if err != nil {
		t.Fatalf("NewTermAppender failed: %v", err)
	}
	return appender, termBuffer, metaBuffer
}

func newSourceBuffer(t *testing.T, payload []byte) *membuf.Buffer {
	t.Helper()
	src, err := membuf.NewAlignedBuffer(len(payload)+8, 8)
	if err != nil {
		t.Fatalf("source buffer: %v", err)
	}
	src.PutBytes(0, payload)
	return src
}

func TestNewTermAppenderValidation(t *testing.T) {
	termBuffer, _ := membuf.NewAlignedBuffer(1000, membuf.CacheLineLength) // not a power of two
	metaBuffer, _ := membuf.NewAlignedBuffer(TailCounterLength, membuf.CacheLineLength)
	if _, err := NewTermAppender(termBuffer, metaBuffer, 0); err == nil {
		t.Fatal("expected term length validation error")
	}

	termBuffer, _ = membuf.NewAlignedBuffer(1024, membuf.CacheLineLength)
	if _, err := NewTermAppender(termBuffer, metaBuffer, PartitionCount); err == nil {
		t.Fatal("expected partition index validation error")
	}

	smallMeta, _ := membuf.NewAlignedBuffer(8, 8)
	if _, err := NewTermAppender(termBuffer, smallMeta, 2); err == nil {
		t.Fatal("expected metadata capacity validation error")
	}
}

func TestPackedResultHelpers(t *testing.T) {
	result := PackTail(9, ResultTripped)
	if TermID(result) != 9 {
		t.Fatalf("TermID = %d, want 9", TermID(result))
	}
	if TermOffset(result) != ResultTripped {
		t.Fatalf("TermOffset = %d, want %d", TermOffset(result), ResultTripped)
	}
	if !IsEndOfTerm(result) {
		t.Fatal("IsEndOfTerm = false for tripped result")
	}
	if IsEndOfTerm(PackTail(9, 4096)) {
		t.Fatal("IsEndOfTerm = true for success result")
	}
}

// Two producers appending 64-byte payloads into a fresh 1024-byte term land
// at offsets 0 and 96, with the tail at 192.
func TestAppendUnfragmentedSequential(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 1024, 0)
	header := NewHeaderWriter(1, 2)
	src := newSourceBuffer(t, bytes.Repeat([]byte{0x11}, 64))

	first := appender.AppendUnfragmented(header, src, 0, 64, nil)
	if TermID(first) != testTermID || TermOffset(first) != 96 {
		t.Fatalf("first result = (%d, %d), want (%d, 96)", TermID(first), TermOffset(first), testTermID)
	}

	second := appender.AppendUnfragmented(header, src, 0, 64, nil)
	if TermOffset(second) != 192 {
		t.Fatalf("second result offset = %d, want 192", TermOffset(second))
	}

	for _, frameOffset := range []int{0, 96} {
		if length := FrameLengthVolatile(termBuffer, frameOffset); length != 96 {
			t.Fatalf("frame at %d has length %d, want 96", frameOffset, length)
		}
		if FrameType(termBuffer, frameOffset) != FrameTypeData {
			t.Fatalf("frame at %d is not a data frame", frameOffset)
		}
		if FrameFlags(termBuffer, frameOffset) != UnfragmentedFlags {
			t.Fatalf("frame at %d flags = %#x, want %#x", frameOffset, FrameFlags(termBuffer, frameOffset), UnfragmentedFlags)
		}
		if FrameTermID(termBuffer, frameOffset) != testTermID {
			t.Fatalf("frame at %d term id = %d", frameOffset, FrameTermID(termBuffer, frameOffset))
		}
		if FrameTermOffset(termBuffer, frameOffset) != int32(frameOffset) {
			t.Fatalf("frame at %d records term offset %d", frameOffset, FrameTermOffset(termBuffer, frameOffset))
		}
		payload := termBuffer.GetBytes(frameOffset+DataFrameHeaderLength, 64)
		if !bytes.Equal(payload, bytes.Repeat([]byte{0x11}, 64)) {
			t.Fatalf("frame at %d payload mismatch", frameOffset)
		}
	}
}

// A reservation straddling the end of the term writes one padding frame over
// the remainder and returns the tripped sentinel with the term id.
func TestAppendTripsWithPadding(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 128, 64)
	header := NewHeaderWriter(1, 2)
	src := newSourceBuffer(t, bytes.Repeat([]byte{0x22}, 96))

	// Poison the tail region so untouched bytes are detectable.
	termBuffer.SetMemory(64, 64, 0xEE)
	termBuffer.PutInt32(64+FrameLengthOffset, 0)

	result := appender.AppendUnfragmented(header, src, 0, 96, nil)
	if TermID(result) != testTermID {
		t.Fatalf("tripped result term id = %d, want %d", TermID(result), testTermID)
	}
	if TermOffset(result) != ResultTripped {
		t.Fatalf("tripped result offset = %d, want %d", TermOffset(result), ResultTripped)
	}

	if length := FrameLengthVolatile(termBuffer, 64); length != 64 {
		t.Fatalf("padding frame length = %d, want 64", length)
	}
	if !FrameIsPadding(termBuffer, 64) {
		t.Fatal("frame at 64 is not padding")
	}
	// Nothing beyond the padding header was touched.
	for offset := 64 + DataFrameHeaderLength; offset < 128; offset++ {
		if termBuffer.GetUint8(offset) != 0xEE {
			t.Fatalf("byte %d modified by padding", offset)
		}
	}
}

// A producer arriving after the term tripped fails without writing.
func TestAppendFailsPastEnd(t *testing.T) {
	appender, termBuffer, metaBuffer := newTestAppender(t, 128, 64)
	header := NewHeaderWriter(1, 2)
	src := newSourceBuffer(t, bytes.Repeat([]byte{0x33}, 96))

	if TermOffset(appender.AppendUnfragmented(header, src, 0, 96, nil)) != ResultTripped {
		t.Fatal("first producer should trip")
	}

	before := termBuffer.GetBytes(0, 128)
	result := appender.AppendUnfragmented(header, src, 0, 0, nil)
	if TermOffset(result) != ResultFailed {
		t.Fatalf("result offset = %d, want %d", TermOffset(result), ResultFailed)
	}
	if TermID(result) != testTermID {
		t.Fatalf("failed result term id = %d, want %d", TermID(result), testTermID)
	}
	if !bytes.Equal(before, termBuffer.GetBytes(0, 128)) {
		t.Fatal("failed producer modified the term")
	}
	// The tail keeps advancing; it never decreases.
	if offset := TermOffset(metaBuffer.GetInt64(0)); offset < 192 {
		t.Fatalf("tail offset = %d, want >= 192", offset)
	}
}

// An exact fit at the end of the term trips without writing padding.
func TestAppendExactFitTripsWithoutPadding(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 128, 128)
	header := NewHeaderWriter(1, 2)
	src := newSourceBuffer(t, bytes.Repeat([]byte{0x44}, 32))

	before := termBuffer.GetBytes(0, 128)
	result := appender.AppendUnfragmented(header, src, 0, 32, nil)
	if TermOffset(result) != ResultTripped {
		t.Fatalf("result offset = %d, want %d", TermOffset(result), ResultTripped)
	}
	if !bytes.Equal(before, termBuffer.GetBytes(0, 128)) {
		t.Fatal("exact-fit trip modified the term")
	}
}

func TestClaimCommit(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 1024, 0)
	header := NewHeaderWriter(1, 2)

	var claim BufferClaim
	result := appender.Claim(header, 40, &claim)
	if TermOffset(result) != int32(AlignFrameLength(40+DataFrameHeaderLength)) {
		t.Fatalf("claim result offset = %d", TermOffset(result))
	}
	if claim.Length() != 40 {
		t.Fatalf("claim payload length = %d, want 40", claim.Length())
	}

	// Not visible until committed.
	if length := FrameLengthVolatile(termBuffer, 0); length != 0 {
		t.Fatalf("frame length before commit = %d, want 0", length)
	}

	claim.Buffer().PutBytes(claim.Offset(), bytes.Repeat([]byte{0x55}, 40))
	claim.PutReservedValue(-12345)
	claim.Commit()

	if length := FrameLengthVolatile(termBuffer, 0); length != 72 {
		t.Fatalf("frame length after commit = %d, want 72", length)
	}
	if v := FrameReservedValue(termBuffer, 0); v != -12345 {
		t.Fatalf("reserved value = %d, want -12345", v)
	}
	payload := termBuffer.GetBytes(DataFrameHeaderLength, 40)
	if !bytes.Equal(payload, bytes.Repeat([]byte{0x55}, 40)) {
		t.Fatal("claim payload mismatch")
	}
}

func TestClaimAbortWritesPadding(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 1024, 0)
	header := NewHeaderWriter(1, 2)

	var claim BufferClaim
	appender.Claim(header, 40, &claim)
	claim.Abort()

	if !FrameIsPadding(termBuffer, 0) {
		t.Fatal("aborted claim is not padding")
	}
	if length := FrameLengthVolatile(termBuffer, 0); length != 72 {
		t.Fatalf("aborted frame length = %d, want 72", length)
	}
}

func TestAppendFragmented(t *testing.T) {
	const (
		maxPayload = 96 // 96 + 32 header = 128, frame-aligned
		total      = 200
	)
	appender, termBuffer, _ := newTestAppender(t, 1024, 0)
	header := NewHeaderWriter(1, 2)

	payload := make([]byte, total)
	for i := range payload {
		payload[i] = byte(i)
	}
	src := newSourceBuffer(t, payload)

	required := 2*(maxPayload+DataFrameHeaderLength) + AlignFrameLength(8+DataFrameHeaderLength)
	result := appender.AppendFragmented(header, src, 0, total, maxPayload, nil)
	if TermOffset(result) != int32(required) {
		t.Fatalf("result offset = %d, want %d", TermOffset(result), required)
	}

	type frag struct {
		offset, payloadLen int
		flags              uint8
	}
	frames := []frag{
		{0, maxPayload, BeginFragmentFlag},
		{128, maxPayload, 0},
		{256, 8, EndFragmentFlag},
	}
	written := 0
	for _, f := range frames {
		if length := FrameLengthVolatile(termBuffer, f.offset); length != int32(f.payloadLen+DataFrameHeaderLength) {
			t.Fatalf("frame at %d length = %d, want %d", f.offset, length, f.payloadLen+DataFrameHeaderLength)
		}
		if flags := FrameFlags(termBuffer, f.offset); flags != f.flags {
			t.Fatalf("frame at %d flags = %#x, want %#x", f.offset, flags, f.flags)
		}
		got := termBuffer.GetBytes(f.offset+DataFrameHeaderLength, f.payloadLen)
		if !bytes.Equal(got, payload[written:written+f.payloadLen]) {
			t.Fatalf("frame at %d payload mismatch", f.offset)
		}
		written += f.payloadLen
	}
}

func TestReservedValueSupplier(t *testing.T) {
	appender, termBuffer, _ := newTestAppender(t, 1024, 0)
	header := NewHeaderWriter(1, 2)
	src := newSourceBuffer(t, bytes.Repeat([]byte{0x66}, 16))

	supplied := 0
	appender.AppendUnfragmented(header, src, 0, 16, func(buf *membuf.Buffer, frameOffset, frameLength int) int64 {
		supplied++
		if frameLength != 16+DataFrameHeaderLength {
			t.Fatalf("supplier frame length = %d", frameLength)
		}
		return int64(frameOffset) + 1000
	})

	if supplied != 1 {
		t.Fatalf("supplier invoked %d times, want 1", supplied)
	}
	if v := FrameReservedValue(termBuffer, 0); v != 1000 {
		t.Fatalf("reserved value = %d, want 1000", v)
	}
}

// Under concurrent producers the fetch-add hands out pairwise disjoint
// ranges covering the term without gaps: scanning frames from offset zero
// accounts for every byte and every successful append.
func TestConcurrentProducersDisjointCoverage(t *testing.T) {
	const (
		termLength = 64 * 1024
		producers  = 4
		payloadLen = 52 // aligned frame length 96
	)
	appender, termBuffer, metaBuffer := newTestAppender(t, termLength, 0)
	header := NewHeaderWriter(1, 2)

	successes := make([]int, producers)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(tag int) {
			defer wg.Done()
			src, err := membuf.NewAlignedBuffer(payloadLen, 8)
			if err != nil {
				t.Errorf("producer %d: %v", tag, err)
				return
			}
			src.SetMemory(0, payloadLen, byte(tag+1))
			for {
				result := appender.AppendUnfragmented(header, src, 0, payloadLen, nil)
				if IsEndOfTerm(result) {
					return
				}
				successes[tag]++
			}
		}(p)
	}
	wg.Wait()

	counts := make([]int, producers)
	offset := 0
	for offset < termLength {
		length := int(FrameLengthVolatile(termBuffer, offset))
		if length <= 0 {
			t.Fatalf("unpublished frame at offset %d", offset)
		}
		if FrameIsPadding(termBuffer, offset) {
			offset += AlignFrameLength(length)
			continue
		}
		if length != payloadLen+DataFrameHeaderLength {
			t.Fatalf("frame at %d has length %d", offset, length)
		}
		tag := termBuffer.GetUint8(offset + DataFrameHeaderLength)
		if tag == 0 || int(tag) > producers {
			t.Fatalf("frame at %d carries unknown producer tag %d", offset, tag)
		}
		// The whole payload belongs to one producer: ranges are disjoint.
		for i := 0; i < payloadLen; i++ {
			if termBuffer.GetUint8(offset+DataFrameHeaderLength+i) != tag {
				t.Fatalf("frame at %d interleaves producers", offset)
			}
		}
		counts[tag-1]++
		offset += AlignFrameLength(length)
	}
	if offset != termLength {
		t.Fatalf("frame scan ended at %d, want %d", offset, termLength)
	}

	for p := 0; p < producers; p++ {
		if counts[p] != successes[p] {
			t.Fatalf("producer %d: %d frames scanned, %d appends succeeded", p, counts[p], successes[p])
		}
	}
	if offset := TermOffset(metaBuffer.GetInt64(0)); offset < int32(termLength) {
		t.Fatalf("final tail offset = %d, want >= term length", offset)
	}
}
