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

import (
	"errors"
	"fmt"
)

// ErrOutOfCapacity indicates the counter table has no free slot left.
// Allocation failures wrap it, so callers can match with errors.Is.
var ErrOutOfCapacity = errors.New("counters: out of capacity")

// CapacityError reports the slot that could not be allocated and the region
// capacities that bound the table.
type CapacityError struct {
	NextID           int32
	ValuesCapacity   int
	MetadataCapacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("counters: cannot allocate id %d: values capacity %d, metadata capacity %d",
		e.NextID, e.ValuesCapacity, e.MetadataCapacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrOutOfCapacity
}

// NotFoundError reports a lookup that matched no allocated counter.
type NotFoundError struct {
	TypeID int32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("counters: no allocated counter with type id %d", e.TypeID)
}
