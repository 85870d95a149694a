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

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/vulkan/objtype"
)

const (
	// ErrOwnerMissing is raised when a silent destroy names no live owner.
	ErrOwnerMissing = fault.Const("owner missing for silent destroy")
	// ErrNullHandle is raised when a silent destroy is given a null handle.
	ErrNullHandle = fault.Const("null handle passed to silent destroy")
)

func flagsFor(alloc *AllocationCallbacks) Flags {
	if ModeOf(alloc) == CustomAllocator {
		return FlagCustomAllocator
	}
	return 0
}

// CreateObject records h as a live object of type ty owned through d.
// It is called after the real create call succeeded, and is a no-op if h is
// already live. Instances and devices are recorded with CreateInstance and
// CreateDevice.
func (t *Tracker) CreateObject(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type, alloc *AllocationCallbacks) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.createObject(ctx, d, Record{Type: ty, Handle: h, Flags: flagsFor(alloc)})
}

func (t *Tracker) createObject(ctx context.Context, d Dispatchable, rec Record) {
	if rec.Handle == NullHandle {
		return
	}
	if rec.Type == objtype.Instance || rec.Type == objtype.Device || !rec.Type.Valid() {
		t.emit(ctx, SeverityError, rec.Type, rec.Handle, CodeInternalError,
			"%v objects cannot be recorded through CreateObject.", rec.Type)
		return
	}
	o := t.ownerFor(d, rec.Type)
	if o == nil {
		t.unresolved(ctx, d)
		return
	}
	t.insert(ctx, o, rec)
}

// insert adds rec to o's registry, announcing it with the next sequence
// number. Duplicates are ignored.
func (t *Tracker) insert(ctx context.Context, o *owner, rec Record) bool {
	if !o.objects.insert(rec) {
		return false
	}
	t.emit(ctx, SeverityInformation, rec.Type, rec.Handle, CodeInfo,
		"OBJ[%#x] : CREATE %v object %v", t.sequence, rec.Type, rec.Handle)
	t.sequence++
	return true
}

// ValidateDestroyObject checks that h may be destroyed through d with the
// given allocator. It is called before the real destroy call.
//
// A handle that is not live is reported with CodeUnknownObject. An allocator
// mismatch is reported with expectedCustomCode when the object was created
// with a custom allocator but destroyed without one, and with
// expectedDefaultCode for the reverse. Passing CodeUndefined disables the
// corresponding check.
func (t *Tracker) ValidateDestroyObject(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type,
	alloc *AllocationCallbacks, expectedCustomCode, expectedDefaultCode string) Verdict {

	if h == NullHandle {
		return Verdict{Status: Null}
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	o := t.ownerFor(d, ty)
	if o == nil {
		return Verdict{Status: Unknown, Skip: t.unresolved(ctx, d)}
	}
	rec, ok := o.objects.lookup(ty, h)
	if !ok {
		skip := t.emit(ctx, SeverityError, ty, h, CodeUnknownObject,
			"Invalid %v Object %v cannot be destroyed.", ty, h)
		return Verdict{Status: Unknown, Skip: skip}
	}
	v := Verdict{Status: Valid}
	v.Skip = t.emit(ctx, SeverityInformation, ty, h, CodeInfo,
		"OBJ_STAT Destroy %v obj %v (%d total objs remain & %d %v objs).",
		ty, h, o.objects.total-1, o.objects.count(ty)-1, ty)
	t.checkAllocator(ctx, &v, rec, ModeOf(alloc), expectedCustomCode, expectedDefaultCode)
	return v
}

// checkAllocator compares the creation allocator of rec with the destruction
// allocator mode and reports a mismatch into v.
func (t *Tracker) checkAllocator(ctx context.Context, v *Verdict, rec Record, destroyMode AllocMode,
	expectedCustomCode, expectedDefaultCode string) {

	switch created := rec.Mode(); {
	case created == CustomAllocator && destroyMode == DefaultAllocator && expectedCustomCode != CodeUndefined:
		v.Status = AllocatorMismatch
		// This only verifies that callbacks were given to both calls, not
		// that they are compatible.
		if t.emit(ctx, SeverityError, rec.Type, rec.Handle, expectedCustomCode,
			"Custom allocator not specified while destroying %v obj %v but specified at creation.",
			rec.Type, rec.Handle) {
			v.Skip = true
		}
	case created == DefaultAllocator && destroyMode == CustomAllocator && expectedDefaultCode != CodeUndefined:
		v.Status = AllocatorMismatch
		if t.emit(ctx, SeverityError, rec.Type, rec.Handle, expectedDefaultCode,
			"Custom allocator specified while destroying %v obj %v but not specified at creation.",
			rec.Type, rec.Handle) {
			v.Skip = true
		}
	}
}

// RecordDestroyObject forgets h after the real destroy call returned.
// Handles that are not live are ignored, ValidateDestroyObject has already
// reported them.
func (t *Tracker) RecordDestroyObject(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type) {
	if h == NullHandle {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.ownerFor(d, ty)
	if o == nil || !o.objects.contains(ty, h) {
		return
	}
	t.remove(o, ty, h)
}

// DestroyObjectSilently forgets h without any diagnostics. It is used for
// objects destroyed implicitly with their parent, whose destruction was
// validated at the parent. h must be live.
func (t *Tracker) DestroyObjectSilently(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if h == NullHandle {
		fail(ctx, ErrNullHandle, "%v", ty)
	}
	o := t.ownerFor(d, ty)
	if o == nil {
		fail(ctx, ErrOwnerMissing, "%v %v through %v", ty, h, d)
	}
	if !o.objects.contains(ty, h) {
		fail(ctx, ErrRecordMissing, "%v %v under %v %v", ty, h, o.scope, o.handle)
	}
	t.remove(o, ty, h)
}

// remove deletes a live record along with any dispatch entry it owns.
func (t *Tracker) remove(o *owner, ty objtype.Type, h Handle) Record {
	rec := o.objects.remove(ty, h)
	switch ty {
	case objtype.CommandBuffer, objtype.Queue:
		delete(t.deviceDispatch, h)
	case objtype.PhysicalDevice:
		delete(t.instanceDispatch, h)
	}
	return rec
}
