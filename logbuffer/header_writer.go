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

// FrameHeaderWriter emits a frame header at a granted offset. Implementations
// must not write the length field: the appender publishes it with release
// ordering as the commit step, after header and payload stores.
type FrameHeaderWriter interface {
	Write(termBuffer *membuf.Buffer, frameOffset, frameLength int, termID int32)
}

// HeaderWriter is the default FrameHeaderWriter, stamping fixed session and
// stream ids into every header.
type HeaderWriter struct {
	sessionID int32
	streamID  int32
}

// NewHeaderWriter returns a HeaderWriter for one publication.
func NewHeaderWriter(sessionID, streamID int32) *HeaderWriter {
	return &HeaderWriter{
		sessionID: sessionID,
		streamID:  streamID,
	}
}

// Write emits everything except the frame length, which stays zero until the
// appender commits.
func (w *HeaderWriter) Write(termBuffer *membuf.Buffer, frameOffset, frameLength int, termID int32) {
	termBuffer.PutUint8(frameOffset+VersionOffset, FrameVersion)
	termBuffer.PutUint8(frameOffset+FlagsOffset, UnfragmentedFlags)
	termBuffer.PutUint16(frameOffset+TypeOffset, FrameTypeData)
	termBuffer.PutInt32(frameOffset+TermOffsetFieldOffset, int32(frameOffset))
	termBuffer.PutInt32(frameOffset+SessionIDFieldOffset, w.sessionID)
	termBuffer.PutInt32(frameOffset+StreamIDFieldOffset, w.streamID)
	termBuffer.PutInt32(frameOffset+TermIDFieldOffset, termID)
}
