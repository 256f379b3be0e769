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
	"fmt"

	"github.com/nexlog/shmcore/membuf"
)

// Counter is a per-slot handle binding a counter id to the values region.
// Mutation through a Counter follows a single-writer contract: exactly one
// producer updates the slot while any number of observers read it.
//
// The propose-max operations are deliberately non-atomic. Positions are owned
// by a single producer and avoiding a compare-and-swap is the point; multiple
// concurrent proposers produce an unspecified but safe outcome.
type Counter struct {
	values  *membuf.Buffer
	id      int32
	offset  int
	manager *Manager
	closed  bool
}

// NewCounter binds a handle to an already-allocated counter id. The handle
// does not own the slot; Close releases nothing.
func NewCounter(values *membuf.Buffer, id int32) *Counter {
	offset := CounterOffset(id)
	if id < 0 || offset+8 > values.Capacity() {
		panic(fmt.Sprintf("counters: id %d outside values region of %d bytes", id, values.Capacity()))
	}
	return &Counter{
		values: values,
		id:     id,
		offset: offset,
	}
}

// AllocateCounter allocates a slot and returns an owning handle: Close frees
// the slot back to the manager.
func (m *Manager) AllocateCounter(label string, typeID int32) (*Counter, error) {
	id, err := m.Allocate(label, typeID)
	if err != nil {
		return nil, err
	}
	c := NewCounter(m.valuesBuffer, id)
	c.manager = m
	return c, nil
}

// ID returns the bound counter id.
func (c *Counter) ID() int32 {
	return c.id
}

// Get performs a plain load of the counter value.
func (c *Counter) Get() int64 {
	return c.values.GetInt64(c.offset)
}

// GetVolatile loads the counter value with acquire semantics.
func (c *Counter) GetVolatile() int64 {
	return c.values.GetInt64Volatile(c.offset)
}

// Set performs a plain store of the counter value.
func (c *Counter) Set(value int64) {
	c.values.PutInt64(c.offset, value)
}

// SetOrdered stores the counter value with release semantics.
func (c *Counter) SetOrdered(value int64) {
	c.values.PutInt64Ordered(c.offset, value)
}

// ProposeMax raises the counter to value if value is greater, with a plain
// store. Reports whether an update happened.
func (c *Counter) ProposeMax(value int64) bool {
	if c.values.GetInt64(c.offset) < value {
		c.values.PutInt64(c.offset, value)
		return true
	}
	return false
}

// ProposeMaxOrdered raises the counter to value if value is greater, with a
// release store.
func (c *Counter) ProposeMaxOrdered(value int64) bool {
	if c.values.GetInt64(c.offset) < value {
		c.values.PutInt64Ordered(c.offset, value)
		return true
	}
	return false
}

// Increment atomically adds one and returns the new value.
func (c *Counter) Increment() int64 {
	return c.values.GetAndAddInt64(c.offset, 1) + 1
}

// IncrementOrdered adds one with a plain read and release store, for the
// single-writer fast path, and returns the new value.
func (c *Counter) IncrementOrdered() int64 {
	next := c.values.GetInt64(c.offset) + 1
	c.values.PutInt64Ordered(c.offset, next)
	return next
}

// GetAndAdd atomically adds delta and returns the value before the addition.
func (c *Counter) GetAndAdd(delta int64) int64 {
	return c.values.GetAndAddInt64(c.offset, delta)
}

// Close releases the slot through the bound manager, if any. Idempotent.
func (c *Counter) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.manager != nil {
		c.manager.Free(c.id)
	}
}

// IsClosed reports whether Close has run.
func (c *Counter) IsClosed() bool {
	return c.closed
}
