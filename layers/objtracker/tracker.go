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

// Package objtracker tracks the lifetime of Vulkan objects created by an
// application and reports the use of invalid, destroyed or foreign handles,
// allocator mismatches and leaks.
//
// Every intercepted call follows the same protocol: a Validate* call before
// the real call runs, which never mutates state, then a Create*/Record*
// call once the real call has returned.
package objtracker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/core/vulkan/objtype"
)

// DefaultWrongOwnerExemptions are the types that may legitimately be used
// with an owner other than the one that created them.
var DefaultWrongOwnerExemptions = objtype.NewSet(objtype.SurfaceKHR)

// Tracker holds the tracking state of every live instance and device in the
// process.
type Tracker struct {
	mutex  sync.Mutex
	sink   Sink
	exempt objtype.Set
	// sequence numbers CREATE diagnostics across all owners.
	sequence uint64

	instances        ownerSet
	devices          ownerSet
	instanceDispatch dispatchMap
	deviceDispatch   dispatchMap
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithWrongOwnerExemptions replaces the set of types exempt from wrong-owner
// reporting.
func WithWrongOwnerExemptions(s objtype.Set) Option {
	return func(t *Tracker) { t.exempt = s }
}

// New returns a Tracker reporting to sink. A nil sink discards diagnostics.
func New(sink Sink, opts ...Option) *Tracker {
	t := &Tracker{
		sink:             sink,
		exempt:           DefaultWrongOwnerExemptions,
		instances:        ownerSet{},
		devices:          ownerSet{},
		instanceDispatch: dispatchMap{},
		deviceDispatch:   dispatchMap{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Exemptions returns the set of types exempt from wrong-owner reporting.
func (t *Tracker) Exemptions() objtype.Set { return t.exempt }

func (t *Tracker) emit(ctx context.Context, s Severity, ty objtype.Type, h Handle, code, format string, args ...interface{}) bool {
	if t.sink == nil {
		return false
	}
	return t.sink.Emit(ctx, Diagnostic{
		Severity:   s,
		ObjectType: ty.DebugReportType(),
		Handle:     h,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
	})
}

// unresolved reports a dispatchable argument that does not belong to any live
// owner.
func (t *Tracker) unresolved(ctx context.Context, d Dispatchable) bool {
	return t.emit(ctx, SeverityError, d.Kind.Type(), d.Handle, CodeInternalError,
		"Unable to find the owner of dispatchable %v.", d)
}

// fail logs a broken invariant and panics with it.
func fail(ctx context.Context, err error, format string, args ...interface{}) {
	i := fault.Internalf(err, format, args...)
	log.F(ctx, true, "objtracker: %v", i)
	panic(i)
}

// Lookup returns the record of a live object owned through d.
func (t *Tracker) Lookup(d Dispatchable, ty objtype.Type, h Handle) (Record, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.resolve(d)
	if o == nil {
		return Record{}, false
	}
	return o.objects.lookup(ty, h)
}

// OwnerStats is a snapshot of the live objects of one owner.
type OwnerStats struct {
	Scope  Scope
	Handle Handle
	Total  uint64
	Counts map[objtype.Type]uint64
	// Aliases is the number of derived handles, such as swapchain images.
	Aliases int
}

// Stats returns a snapshot of every live owner, instances first.
func (t *Tracker) Stats() []OwnerStats {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	out := []OwnerStats{}
	for _, set := range []ownerSet{t.instances, t.devices} {
		for _, o := range set.others(nil) {
			s := OwnerStats{
				Scope:  o.scope,
				Handle: o.handle,
				Total:  o.objects.total,
				Counts: map[objtype.Type]uint64{},
			}
			for _, ty := range objtype.All() {
				if n := o.objects.count(ty); n > 0 {
					s.Counts[ty] = n
				}
			}
			for _, m := range o.aliases {
				s.Aliases += len(m)
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out
}

// checkConsistency verifies the count invariants of every owner.
func (t *Tracker) checkConsistency() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, set := range []ownerSet{t.instances, t.devices} {
		for _, o := range set {
			if err := o.checkConsistency(); err != nil {
				return fmt.Errorf("%v %v: %w", o.scope, o.handle, err)
			}
		}
	}
	return nil
}
