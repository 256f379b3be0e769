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

// FindByTypeID returns the id of the first allocated counter with the given
// type id, or NullCounterID.
func (r *Reader) FindByTypeID(typeID int32) int32 {
	found := NullCounterID
	r.ForEach(func(id, recordTypeID int32, _ string) {
		if found == NullCounterID && recordTypeID == typeID {
			found = id
		}
	})
	return found
}

// FindByLabel returns the id of the first allocated counter whose label
// matches exactly, or NullCounterID.
func (r *Reader) FindByLabel(label string) int32 {
	found := NullCounterID
	r.ForEach(func(id, _ int32, recordLabel string) {
		if found == NullCounterID && recordLabel == label {
			found = id
		}
	})
	return found
}

// ValueByTypeID returns the value of the first allocated counter with the
// given type id. Unlike the Find helpers there is no sentinel value to
// return, so a miss is a *NotFoundError carrying the queried type id.
func (r *Reader) ValueByTypeID(typeID int32) (int64, error) {
	id := r.FindByTypeID(typeID)
	if id == NullCounterID {
		return 0, &NotFoundError{TypeID: typeID}
	}
	return r.CounterValue(id), nil
}
