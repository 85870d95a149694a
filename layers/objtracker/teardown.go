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
	"context"

	"github.com/google/vklifetime/core/vulkan/objtype"
)

// teardownOrder lists every type in the order leaks are reported and
// released. Command buffers go before their pools.
var teardownOrder = func() []objtype.Type {
	out := []objtype.Type{objtype.CommandBuffer}
	for _, ty := range objtype.All() {
		if ty != objtype.CommandBuffer {
			out = append(out, ty)
		}
	}
	return out
}()

// leakExempt holds types that are recorded but never created by the
// application, so they cannot leak.
var leakExempt = objtype.NewSet(objtype.PhysicalDevice, objtype.Queue)

// ReportUndestroyedObjects emits a CodeObjectLeak error for every object
// still live under the owner of d. It returns true if any sink asked for the
// call to be skipped.
func (t *Tracker) ReportUndestroyedObjects(ctx context.Context, d Dispatchable) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.resolve(d)
	if o == nil {
		return t.unresolved(ctx, d)
	}
	return t.reportUndestroyed(ctx, o)
}

// DestroyUndestroyedObjects releases every object still live under the owner
// of d, without reporting them.
func (t *Tracker) DestroyUndestroyedObjects(ctx context.Context, d Dispatchable) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if o := t.resolve(d); o != nil {
		t.destroyUndestroyed(o)
	}
}

func (t *Tracker) reportUndestroyed(ctx context.Context, o *owner) bool {
	skip := false
	for _, ty := range teardownOrder {
		if o.objects.count(ty) == 0 || leakExempt.Contains(ty) {
			continue
		}
		o.objects.each(ty, func(rec Record) {
			if t.emit(ctx, SeverityError, rec.Type, rec.Handle, CodeObjectLeak,
				"OBJ ERROR : For %v %v, %v object %v has not been destroyed.",
				o.scope, o.handle, rec.Type, rec.Handle) {
				skip = true
			}
		})
	}
	return skip
}

func (t *Tracker) destroyUndestroyed(o *owner) {
	for _, ty := range teardownOrder {
		for _, h := range o.objects.handles(ty) {
			t.remove(o, ty, h)
		}
	}
	for ty := range o.aliases {
		delete(o.aliases, ty)
	}
}

// teardown audits and empties o, then removes it from its owner set. The
// registry is always empty when the owner is deregistered.
func (t *Tracker) teardown(ctx context.Context, o *owner) {
	t.reportUndestroyed(ctx, o)
	t.destroyUndestroyed(o)
	if o.objects.total != 0 {
		fail(ctx, ErrCountMismatch, "%v %v still holds %d objects after teardown", o.scope, o.handle, o.objects.total)
	}
	t.forgetDispatch(o)
	delete(t.ownersOf(o.scope), o.handle)
}
