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

import "github.com/nexlog/shmcore/membuf"

// Data frame header layout (32 bytes, little-endian, aligned 32):
//
//	int32  frameLength   // full frame length; published last, release-ordered
//	uint8  version
//	uint8  flags         // fragmentation flags
//	uint16 type          // enum frame type
//	int32  termOffset    // offset of this frame within its term
//	int32  sessionID
//	int32  streamID
//	int32  termID
//	int64  reservedValue // application-defined
const (
	FrameLengthOffset     = 0
	VersionOffset         = 4
	FlagsOffset           = 5
	TypeOffset            = 6
	TermOffsetFieldOffset = 8
	SessionIDFieldOffset  = 12
	StreamIDFieldOffset   = 16
	TermIDFieldOffset     = 20
	ReservedValueOffset   = 24

	// DataFrameHeaderLength is the full header size.
	DataFrameHeaderLength = 32
)

// FrameVersion is the current frame header version.
const FrameVersion uint8 = 1

// Frame types.
const (
	FrameTypePadding uint16 = 0x00
	FrameTypeData    uint16 = 0x01
)

// Fragmentation flags.
const (
	BeginFragmentFlag uint8 = 0x80
	EndFragmentFlag   uint8 = 0x40

	// UnfragmentedFlags marks a frame carrying a whole message.
	UnfragmentedFlags = BeginFragmentFlag | EndFragmentFlag
)

// FrameLengthVolatile loads a frame length with acquire semantics. A nonzero
// value guarantees the rest of the frame is visible.
func FrameLengthVolatile(buf *membuf.Buffer, frameOffset int) int32 {
	return buf.GetInt32Volatile(frameOffset + FrameLengthOffset)
}

// FrameLengthOrdered publishes a frame length with release semantics. This is
// the commit point of a frame.
func FrameLengthOrdered(buf *membuf.Buffer, frameOffset, length int) {
	buf.PutInt32Ordered(frameOffset+FrameLengthOffset, int32(length))
}

// FrameType returns the frame type.
func FrameType(buf *membuf.Buffer, frameOffset int) uint16 {
	return buf.GetUint16(frameOffset + TypeOffset)
}

// PutFrameType stores the frame type with a plain store.
func PutFrameType(buf *membuf.Buffer, frameOffset int, frameType uint16) {
	buf.PutUint16(frameOffset+TypeOffset, frameType)
}

// FrameFlags returns the fragmentation flags.
func FrameFlags(buf *membuf.Buffer, frameOffset int) uint8 {
	return buf.GetUint8(frameOffset + FlagsOffset)
}

// PutFrameFlags stores the fragmentation flags with a plain store.
func PutFrameFlags(buf *membuf.Buffer, frameOffset int, flags uint8) {
	buf.PutUint8(frameOffset+FlagsOffset, flags)
}

// FrameIsPadding reports whether the frame at frameOffset is a padding frame.
func FrameIsPadding(buf *membuf.Buffer, frameOffset int) bool {
	return FrameType(buf, frameOffset) == FrameTypePadding
}

// FrameTermID returns the term id recorded in a frame header.
func FrameTermID(buf *membuf.Buffer, frameOffset int) int32 {
	return buf.GetInt32(frameOffset + TermIDFieldOffset)
}

// FrameTermOffset returns the term offset recorded in a frame header.
func FrameTermOffset(buf *membuf.Buffer, frameOffset int) int32 {
	return buf.GetInt32(frameOffset + TermOffsetFieldOffset)
}

// FrameSessionID returns the session id recorded in a frame header.
func FrameSessionID(buf *membuf.Buffer, frameOffset int) int32 {
	return buf.GetInt32(frameOffset + SessionIDFieldOffset)
}

// FrameReservedValue returns the application-defined reserved value.
func FrameReservedValue(buf *membuf.Buffer, frameOffset int) int64 {
	return buf.GetInt64(frameOffset + ReservedValueOffset)
}
