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

// Package logbuffer implements a multi-producer, lock-free, append-only log
// writer over a fixed-size term buffer.
//
// Producers share a single 64-bit tail counter packing the term id into the
// high 32 bits and the term offset into the low 32. One sequentially
// consistent fetch-and-add on the tail is the sole arbiter between producers:
// each arrival receives a disjoint, ordered byte range and then does purely
// local work inside it. A frame is committed by publishing its length field
// with release ordering, strictly after the header and payload stores, so a
// consumer that acquires a nonzero length observes a fully initialized frame.
// Consumers never spin on the tail; they scan frames and stop at a zero
// length or a padding frame.
//
// When a reservation straddles the end of the term the producer writes a
// padding frame over the remainder, so consumers march through the term
// without special-case tail detection, and the packed result carries an
// end-of-term sentinel in place of the offset.
package logbuffer
