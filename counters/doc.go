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

// Package counters implements a fixed-capacity, shared-memory table of named
// 64-bit counters used to publish liveness, positions and statistics to
// out-of-process observers.
//
// The table is split across two parallel regions. The values region holds one
// 128-byte slot per counter with the 8-byte value at offset zero; the rest is
// padding so each counter owns its own cache-line pair and updates never
// false-share. The metadata region holds one 512-byte record per counter with
// the record state, type id, caller-defined key bytes and a length-prefixed
// label.
//
// A Manager allocates and frees slots and must be driven by a single logical
// owner; it is the slow control path. Readers and per-slot Counter handles
// are wait-free and may run in any number of threads or processes mapping the
// same regions. The release-ordered store of the ALLOCATED state is the
// commit point of an allocation: an observer that acquires that state is
// guaranteed to see the type id, key and label written before it.
package counters
