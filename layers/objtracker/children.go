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

// CreateQueue records a queue returned by vkGetDeviceQueue. Getting the same
// queue twice is not an error.
func (t *Tracker) CreateQueue(ctx context.Context, dev, queue Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.device(ctx, dev)
	if o == nil || queue == NullHandle {
		return
	}
	t.insert(ctx, o, Record{Type: objtype.Queue, Handle: queue})
	t.deviceDispatch[queue] = dev
}

// AllocateCommandBuffer records a command buffer allocated from pool.
func (t *Tracker) AllocateCommandBuffer(ctx context.Context, dev, pool, cb Handle, secondary bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.device(ctx, dev)
	if o == nil || cb == NullHandle {
		return
	}
	rec := Record{Type: objtype.CommandBuffer, Handle: cb, Parent: pool}
	if secondary {
		rec.Flags |= FlagSecondary
	}
	t.insert(ctx, o, rec)
	t.deviceDispatch[cb] = dev
}

// ValidateCommandBuffer checks that cb is live and was allocated from pool,
// before vkFreeCommandBuffers.
func (t *Tracker) ValidateCommandBuffer(ctx context.Context, dev, pool, cb Handle) Verdict {
	return t.validateChild(ctx, dev, pool, cb, objtype.CommandBuffer, objtype.CommandPool,
		CodeFreeCommandBuffersInvalid, CodeFreeCommandBuffersParent)
}

// RecordDestroyCommandPool forgets pool and every command buffer allocated
// from it. The command buffers are freed implicitly by the pool, so they are
// removed without diagnostics.
func (t *Tracker) RecordDestroyCommandPool(ctx context.Context, dev, pool Handle) {
	t.recordDestroyPool(ctx, dev, pool, objtype.CommandPool, objtype.CommandBuffer, true)
}

// AllocateDescriptorSet records a descriptor set allocated from pool.
func (t *Tracker) AllocateDescriptorSet(ctx context.Context, dev, pool, set Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.device(ctx, dev)
	if o == nil || set == NullHandle {
		return
	}
	t.insert(ctx, o, Record{Type: objtype.DescriptorSet, Handle: set, Parent: pool})
}

// ValidateDescriptorSet checks that set is live and was allocated from pool,
// before vkFreeDescriptorSets.
func (t *Tracker) ValidateDescriptorSet(ctx context.Context, dev, pool, set Handle) Verdict {
	return t.validateChild(ctx, dev, pool, set, objtype.DescriptorSet, objtype.DescriptorPool,
		CodeFreeDescriptorSetsInvalid, CodeFreeDescriptorSetsParent)
}

// RecordResetDescriptorPool forgets every descriptor set allocated from pool.
func (t *Tracker) RecordResetDescriptorPool(ctx context.Context, dev, pool Handle) {
	t.recordDestroyPool(ctx, dev, pool, objtype.DescriptorPool, objtype.DescriptorSet, false)
}

// RecordDestroyDescriptorPool forgets pool and every descriptor set allocated
// from it.
func (t *Tracker) RecordDestroyDescriptorPool(ctx context.Context, dev, pool Handle) {
	t.recordDestroyPool(ctx, dev, pool, objtype.DescriptorPool, objtype.DescriptorSet, true)
}

// CreateSwapchainImage records image as owned by swapchain. Swapchain images
// are valid image handles but are not counted as device objects.
func (t *Tracker) CreateSwapchainImage(ctx context.Context, dev, image, swapchain Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.device(ctx, dev)
	if o == nil || image == NullHandle || o.hasAlias(objtype.Image, image) {
		return
	}
	o.addAlias(objtype.Image, image, swapchain)
	t.emit(ctx, SeverityInformation, objtype.Image, image, CodeInfo,
		"OBJ[%#x] : CREATE %v object %v", t.sequence, "SwapchainImage", image)
	t.sequence++
}

// RecordDestroySwapchain forgets swapchain and the images it owns.
func (t *Tracker) RecordDestroySwapchain(ctx context.Context, dev, swapchain Handle) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.device(ctx, dev)
	if o == nil || swapchain == NullHandle {
		return
	}
	o.dropAliases(objtype.Image, swapchain)
	if o.objects.contains(objtype.SwapchainKHR, swapchain) {
		t.remove(o, objtype.SwapchainKHR, swapchain)
	}
}

// device resolves the device owner dev, reporting it if unknown.
func (t *Tracker) device(ctx context.Context, dev Handle) *owner {
	d := Device(dev)
	o := t.resolve(d)
	if o == nil {
		t.unresolved(ctx, d)
	}
	return o
}

func (t *Tracker) validateChild(ctx context.Context, dev, pool, h Handle, ty, poolTy objtype.Type,
	invalidCode, parentCode string) Verdict {

	t.mutex.Lock()
	defer t.mutex.Unlock()
	d := Device(dev)
	o := t.resolve(d)
	if o == nil {
		return Verdict{Status: Unknown, Skip: t.unresolved(ctx, d)}
	}
	rec, ok := o.objects.lookup(ty, h)
	if !ok {
		skip := t.emit(ctx, SeverityError, ty, h, invalidCode, "Invalid %v Object %v.", ty, h)
		return Verdict{Status: Unknown, Skip: skip}
	}
	if rec.Parent != pool {
		skip := t.emit(ctx, SeverityError, ty, h, parentCode,
			"Attempting to free %v %v belonging to %v %v from %v %v.",
			ty, h, poolTy, rec.Parent, poolTy, pool)
		return Verdict{Status: WrongParent, Skip: skip}
	}
	return Verdict{Status: Valid}
}

// recordDestroyPool silently removes every child of pool, then pool itself
// when destroyPool is set.
func (t *Tracker) recordDestroyPool(ctx context.Context, dev, pool Handle, poolTy, childTy objtype.Type, destroyPool bool) {
	if pool == NullHandle {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	o := t.resolve(Device(dev))
	if o == nil {
		return
	}
	children := []Handle{}
	o.objects.each(childTy, func(rec Record) {
		if rec.Parent == pool {
			children = append(children, rec.Handle)
		}
	})
	for _, h := range children {
		t.remove(o, childTy, h)
	}
	if destroyPool && o.objects.contains(poolTy, pool) {
		t.remove(o, poolTy, pool)
	}
}
