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

// CreateInstance registers a new instance owner after vkCreateInstance
// succeeded. It is a no-op if the instance is already live.
func (t *Tracker) CreateInstance(ctx context.Context, h Handle, alloc *AllocationCallbacks) {
	if h == NullHandle {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, ok := t.instances[h]; ok {
		return
	}
	t.instances[h] = newOwner(InstanceScope, h, ModeOf(alloc), NullHandle)
	t.instanceDispatch[h] = h
	t.emit(ctx, SeverityInformation, objtype.Instance, h, CodeInfo,
		"OBJ[%#x] : CREATE %v object %v", t.sequence, objtype.Instance, h)
	t.sequence++
}

// RecordPhysicalDevice records a physical device returned by
// vkEnumeratePhysicalDevices for the instance inst.
func (t *Tracker) RecordPhysicalDevice(ctx context.Context, inst, pd Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	d := Instance(inst)
	o := t.resolve(d)
	if o == nil {
		t.unresolved(ctx, d)
		return
	}
	if pd == NullHandle {
		return
	}
	t.insert(ctx, o, Record{Type: objtype.PhysicalDevice, Handle: pd})
	t.instanceDispatch[pd] = o.handle
}

// ValidateDestroyInstance validates a vkDestroyInstance call.
func (t *Tracker) ValidateDestroyInstance(ctx context.Context, h Handle, alloc *AllocationCallbacks) Verdict {
	return t.validateDestroyOwner(ctx, InstanceScope, h, alloc,
		CodeDestroyInstanceInstance, CodeDestroyInstanceCustomAllocator, CodeDestroyInstanceDefaultAllocator)
}

// RecordDestroyInstance tears down the instance h after vkDestroyInstance.
// Devices still live under the instance are torn down first, then every
// object left in the instance, including the leaked devices, is reported.
func (t *Tracker) RecordDestroyInstance(ctx context.Context, h Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	inst, ok := t.instances[h]
	if !ok {
		return
	}
	for _, dev := range t.devices.others(nil) {
		if dev.parent == h {
			t.teardown(ctx, dev)
		}
	}
	t.teardown(ctx, inst)
}

// CreateDevice registers a new device owner after vkCreateDevice succeeded
// on the physical device pd. The device is also recorded in the owning
// instance, so that an instance destroyed before its devices reports them.
func (t *Tracker) CreateDevice(ctx context.Context, pd, dev Handle, alloc *AllocationCallbacks) {
	if dev == NullHandle {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	d := PhysicalDevice(pd)
	inst := t.resolve(d)
	if inst == nil {
		t.unresolved(ctx, d)
		return
	}
	if _, ok := t.devices[dev]; ok {
		return
	}
	t.devices[dev] = newOwner(DeviceScope, dev, ModeOf(alloc), inst.handle)
	t.deviceDispatch[dev] = dev
	t.insert(ctx, inst, Record{Type: objtype.Device, Handle: dev, Flags: flagsFor(alloc)})
}

// ValidateDestroyDevice validates a vkDestroyDevice call.
func (t *Tracker) ValidateDestroyDevice(ctx context.Context, dev Handle, alloc *AllocationCallbacks) Verdict {
	return t.validateDestroyOwner(ctx, DeviceScope, dev, alloc,
		CodeDestroyDeviceDevice, CodeDestroyDeviceCustomAllocator, CodeDestroyDeviceDefaultAllocator)
}

// RecordDestroyDevice tears down the device dev after vkDestroyDevice,
// reporting every object it still holds.
func (t *Tracker) RecordDestroyDevice(ctx context.Context, dev Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o, ok := t.devices[dev]
	if !ok {
		return
	}
	t.teardown(ctx, o)
	if inst, ok := t.instances[o.parent]; ok && inst.objects.contains(objtype.Device, dev) {
		t.remove(inst, objtype.Device, dev)
	}
}

func (t *Tracker) validateDestroyOwner(ctx context.Context, s Scope, h Handle, alloc *AllocationCallbacks,
	invalidCode, expectedCustomCode, expectedDefaultCode string) Verdict {

	if h == NullHandle {
		return Verdict{Status: Null}
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	ty := s.ownerType()
	o, ok := t.ownersOf(s)[h]
	if !ok {
		skip := t.emit(ctx, SeverityError, ty, h, invalidCode, "Invalid %v Object %v.", ty, h)
		return Verdict{Status: Unknown, Skip: skip}
	}
	v := Verdict{Status: Valid}
	v.Skip = t.emit(ctx, SeverityInformation, ty, h, CodeInfo,
		"OBJ_STAT Destroy %v obj %v (%d objs remain).", ty, h, o.objects.total)
	rec := Record{Type: ty, Handle: h}
	if o.mode == CustomAllocator {
		rec.Flags = FlagCustomAllocator
	}
	t.checkAllocator(ctx, &v, rec, ModeOf(alloc), expectedCustomCode, expectedDefaultCode)
	return v
}
