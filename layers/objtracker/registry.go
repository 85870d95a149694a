// Copyright (C) 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package objtracker

import (
	"sort"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/vulkan/objtype"
)

const (
	// ErrRecordMissing is raised when a record that must exist is absent.
	ErrRecordMissing = fault.Const("object record missing from registry")
	// ErrCountUnderflow is raised when a live count would go negative.
	ErrCountUnderflow = fault.Const("object count underflow")
	// ErrCountMismatch is raised when counts and buckets disagree.
	ErrCountMismatch = fault.Const("object counts disagree with registry")
)

// slot is a stable index into registry.records.
type slot uint32

// registry maps (type, handle) to the Record of a live object.
//
// Records are stored in a slab and addressed by slot, so removing one never
// moves another. The registry is not synchronized, the Tracker lock guards it.
type registry struct {
	index   [objtype.Count]map[Handle]slot
	records []Record
	free    []slot
	counts  [objtype.Count]uint64
	total   uint64
}

func newRegistry() *registry {
	r := &registry{}
	for t := range r.index {
		r.index[t] = map[Handle]slot{}
	}
	return r
}

// insert adds rec if no record exists for its type and handle.
// It returns false, and changes nothing, for a duplicate.
func (r *registry) insert(rec Record) bool {
	bucket := r.index[rec.Type]
	if _, ok := bucket[rec.Handle]; ok {
		return false
	}
	var s slot
	if n := len(r.free); n > 0 {
		s = r.free[n-1]
		r.free = r.free[:n-1]
		r.records[s] = rec
	} else {
		s = slot(len(r.records))
		r.records = append(r.records, rec)
	}
	bucket[rec.Handle] = s
	r.counts[rec.Type]++
	r.total++
	return true
}

func (r *registry) lookup(t objtype.Type, h Handle) (Record, bool) {
	s, ok := r.index[t][h]
	if !ok {
		return Record{}, false
	}
	return r.records[s], true
}

func (r *registry) contains(t objtype.Type, h Handle) bool {
	_, ok := r.index[t][h]
	return ok
}

// remove deletes and returns the record for (t, h).
// The caller must already know that the record exists.
func (r *registry) remove(t objtype.Type, h Handle) Record {
	s, ok := r.index[t][h]
	fault.Check(ok, ErrRecordMissing, "%v %v", t, h)
	fault.Check(r.total > 0, ErrCountUnderflow, "total count removing %v %v", t, h)
	fault.Check(r.counts[t] > 0, ErrCountUnderflow, "%v count removing %v", t, h)

	rec := r.records[s]
	r.records[s] = Record{}
	r.free = append(r.free, s)
	delete(r.index[t], h)
	r.counts[t]--
	r.total--
	return rec
}

// each calls fn for every record of type t, in handle order.
// fn must not modify the registry.
func (r *registry) each(t objtype.Type, fn func(Record)) {
	for _, h := range r.handles(t) {
		fn(r.records[r.index[t][h]])
	}
}

// handles returns the live handles of type t in ascending order.
func (r *registry) handles(t objtype.Type) []Handle {
	out := make([]Handle, 0, len(r.index[t]))
	for h := range r.index[t] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *registry) count(t objtype.Type) uint64 { return r.counts[t] }

// checkConsistency verifies that the counters agree with the buckets.
func (r *registry) checkConsistency() error {
	var sum uint64
	for t := range r.index {
		if uint64(len(r.index[t])) != r.counts[t] {
			return fault.Internalf(ErrCountMismatch, "%v: bucket holds %d, count is %d",
				objtype.Type(t), len(r.index[t]), r.counts[t])
		}
		sum += r.counts[t]
	}
	if sum != r.total {
		return fault.Internalf(ErrCountMismatch, "total is %d, per-type sum is %d", r.total, sum)
	}
	if live := uint64(len(r.records) - len(r.free)); live != r.total {
		return fault.Internalf(ErrCountMismatch, "slab holds %d, total is %d", live, r.total)
	}
	return nil
}
