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

// BufferClaim is a zero-copy claim over a reserved frame. The producer fills
// the payload in place and then calls Commit, which publishes the frame
// length with release ordering, or Abort, which turns the claim into a
// padding frame so consumers can skip it. Until one of the two runs the frame
// length stays zero and consumers stop before the frame.
type BufferClaim struct {
	frame *membuf.Buffer
}

func (c *BufferClaim) wrap(termBuffer *membuf.Buffer, frameOffset, frameLength int) {
	c.frame = termBuffer.Slice(frameOffset, frameLength)
}

// Buffer returns a view over the whole claimed frame, header included.
func (c *BufferClaim) Buffer() *membuf.Buffer {
	return c.frame
}

// Offset returns the payload offset within Buffer.
func (c *BufferClaim) Offset() int {
	return DataFrameHeaderLength
}

// Length returns the payload length.
func (c *BufferClaim) Length() int {
	return c.frame.Capacity() - DataFrameHeaderLength
}

// PutReservedValue stores the application-defined reserved value. Must be
// called before Commit.
func (c *BufferClaim) PutReservedValue(value int64) {
	c.frame.PutInt64(ReservedValueOffset, value)
}

// Commit publishes the frame length with release ordering. This is the
// claim's commit point; the frame is visible to consumers afterwards.
func (c *BufferClaim) Commit() {
	c.frame.PutInt32Ordered(FrameLengthOffset, int32(c.frame.Capacity()))
}

// Abort rewrites the claimed frame as padding and publishes it, so consumers
// skip the reserved range instead of stalling on a zero length.
func (c *BufferClaim) Abort() {
	c.frame.PutUint16(TypeOffset, FrameTypePadding)
	c.frame.PutInt32Ordered(FrameLengthOffset, int32(c.frame.Capacity()))
}
