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

// Package membuf provides typed, bounds-checked access to a raw byte region
// shared between threads or processes.
//
// A Buffer wraps a caller-supplied byte span and exposes 32- and 64-bit
// integer accessors in four flavors: plain loads and stores with no ordering
// guarantees, volatile loads with acquire semantics, ordered stores with
// release semantics, and sequentially-consistent fetch-and-add. The region is
// expected to be mapped identically in every observing process; all offsets
// are byte offsets from the region base.
//
// The base address must be 8-byte aligned and callers must keep multi-byte
// accesses naturally aligned. Alignment of the base is verified once at
// construction; per-access offsets are the caller's layout discipline.
package membuf
