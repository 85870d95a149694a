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

package trace

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/core/vulkan/objtype"
	"github.com/google/vklifetime/layers/objtracker"
)

// Result counts what happened to the commands of a replayed trace.
type Result struct {
	// Executed commands were validated and recorded.
	Executed int
	// Skipped commands were not recorded because a sink asked for a skip.
	Skipped int
	// Dropped commands destroyed or freed an object that was never recorded.
	Dropped int
}

func (c Cmd) String() string {
	if c.Type != objtype.Unknown {
		return fmt.Sprintf("%v(%v %v)", c.Op, c.Type, c.Handle)
	}
	return fmt.Sprintf("%v(%v)", c.Op, c.Handle)
}

// Replay drives every command of t through tr as an intercepting layer
// would: validate, then record unless the verdict recommends a skip.
// Replay stops at the first command that cannot be interpreted.
func Replay(ctx context.Context, tr *objtracker.Tracker, t *Trace) (Result, error) {
	ctx = log.Enter(ctx, "Replay")
	ctx = log.V{"trace": t.Name}.Bind(ctx)
	r := &replayer{tracker: tr, name: t.Name}
	for i, cmd := range t.Cmds {
		if err := r.replay(ctx, i, cmd); err != nil {
			return r.result, log.Errf(ctx, err, "command %d: %v", i, cmd)
		}
	}
	log.D(ctx, "Replayed %d commands: %d skipped, %d dropped",
		len(t.Cmds), r.result.Skipped, r.result.Dropped)
	return r.result, nil
}

type replayer struct {
	tracker *objtracker.Tracker
	name    string
	result  Result
}

func (r *replayer) replay(ctx context.Context, index int, c Cmd) error {
	tr := r.tracker
	alloc := c.allocator()
	switch c.Op {
	case OpCreateInstance:
		tr.CreateInstance(ctx, c.Handle, alloc)
	case OpDestroyInstance:
		v := tr.ValidateDestroyInstance(ctx, c.Handle, alloc)
		if r.proceed(ctx, index, c, v) {
			tr.RecordDestroyInstance(ctx, c.Handle)
		}
		return nil
	case OpEnumeratePhysicalDevice:
		tr.RecordPhysicalDevice(ctx, c.Owner, c.Handle)
	case OpCreateDevice:
		tr.CreateDevice(ctx, c.Owner, c.Handle, alloc)
	case OpDestroyDevice:
		v := tr.ValidateDestroyDevice(ctx, c.Handle, alloc)
		if r.proceed(ctx, index, c, v) {
			tr.RecordDestroyDevice(ctx, c.Handle)
		}
		return nil
	case OpGetDeviceQueue:
		tr.CreateQueue(ctx, c.Owner, c.Handle)
	case OpCreate:
		if err := c.needType(); err != nil {
			return err
		}
		tr.CreateObject(ctx, c.dispatchable(), c.Handle, c.Type, alloc)
	case OpDestroy:
		if err := c.needType(); err != nil {
			return err
		}
		custom, def := c.code(0, objtracker.CodeUndefined), c.code(1, objtracker.CodeUndefined)
		v := tr.ValidateDestroyObject(ctx, c.dispatchable(), c.Handle, c.Type, alloc, custom, def)
		if r.proceed(ctx, index, c, v) {
			r.recordDestroy(ctx, c)
		}
		return nil
	case OpUse:
		if err := c.needType(); err != nil {
			return err
		}
		invalid, wrongOwner := c.useCodes()
		v := tr.ValidateObject(ctx, c.dispatchable(), c.Handle, c.Type, c.NullAllowed, invalid, wrongOwner)
		if v.Skip {
			r.result.Skipped++
			return nil
		}
	case OpAllocateCommandBuffer:
		tr.AllocateCommandBuffer(ctx, c.Owner, c.Parent, c.Handle, c.Secondary)
	case OpFreeCommandBuffer:
		v := tr.ValidateCommandBuffer(ctx, c.Owner, c.Parent, c.Handle)
		if r.proceed(ctx, index, c, v) {
			tr.RecordDestroyObject(ctx, objtracker.Device(c.Owner), c.Handle, objtype.CommandBuffer)
		}
		return nil
	case OpAllocateDescriptorSet:
		tr.AllocateDescriptorSet(ctx, c.Owner, c.Parent, c.Handle)
	case OpFreeDescriptorSet:
		v := tr.ValidateDescriptorSet(ctx, c.Owner, c.Parent, c.Handle)
		if r.proceed(ctx, index, c, v) {
			tr.RecordDestroyObject(ctx, objtracker.Device(c.Owner), c.Handle, objtype.DescriptorSet)
		}
		return nil
	case OpResetDescriptorPool:
		tr.RecordResetDescriptorPool(ctx, c.Owner, c.Handle)
	case OpGetSwapchainImage:
		tr.CreateSwapchainImage(ctx, c.Owner, c.Handle, c.Parent)
	default:
		return fmt.Errorf("unknown op %v", c.Op)
	}
	r.result.Executed++
	return nil
}

// proceed counts the outcome of a destroy-like command and returns true if
// it should be recorded. Destroys of objects that were never recorded are
// dropped.
func (r *replayer) proceed(ctx context.Context, index int, c Cmd, v objtracker.Verdict) bool {
	switch {
	case v.Skip:
		r.result.Skipped++
		return false
	case v.Status == objtracker.Unknown:
		log.W(ctx, "[%v] Dropping [%d]:%v because the creation of %v was not recorded", r.name, index, c, c.Handle)
		r.result.Dropped++
		return false
	}
	r.result.Executed++
	return true
}

// recordDestroy records a destroy, releasing the children of pools and
// swapchains with them.
func (r *replayer) recordDestroy(ctx context.Context, c Cmd) {
	tr := r.tracker
	switch c.Type {
	case objtype.CommandPool:
		tr.RecordDestroyCommandPool(ctx, c.Owner, c.Handle)
	case objtype.DescriptorPool:
		tr.RecordDestroyDescriptorPool(ctx, c.Owner, c.Handle)
	case objtype.SwapchainKHR:
		tr.RecordDestroySwapchain(ctx, c.Owner, c.Handle)
	default:
		tr.RecordDestroyObject(ctx, c.dispatchable(), c.Handle, c.Type)
	}
}

func (c Cmd) allocator() *objtracker.AllocationCallbacks {
	if c.CustomAllocator {
		return &objtracker.AllocationCallbacks{}
	}
	return nil
}

func (c Cmd) needType() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%v needs an object type", c.Op)
	}
	return nil
}

func (c Cmd) dispatchable() objtracker.Dispatchable {
	via := c.Via
	if via == ViaDefault && c.Type.InstanceLevel() {
		via = ViaInstance
	}
	return objtracker.Dispatchable{Kind: via.kind(), Handle: c.Owner}
}

// code returns the i'th override code, or def.
func (c Cmd) code(i int, def string) string {
	if i < len(c.Codes) && c.Codes[i] != "" {
		return c.Codes[i]
	}
	return def
}

// useCodes returns the unknown-object and wrong-owner codes of a use. They
// default to the parameter and parent codes of the entry point.
func (c Cmd) useCodes() (invalid, wrongOwner string) {
	invalid, wrongOwner = objtracker.CodeUnknownObject, objtracker.CodeUndefined
	if c.Entry != "" {
		param := parameterName(c.Type)
		invalid = fmt.Sprintf("VUID-%v-%v-parameter", c.Entry, param)
		wrongOwner = fmt.Sprintf("VUID-%v-%v-parent", c.Entry, param)
	}
	return c.code(0, invalid), c.code(1, wrongOwner)
}

// parameterName returns the conventional parameter name for t, such as
// descriptorPool for VkDescriptorPool.
func parameterName(t objtype.Type) string {
	name := strings.TrimPrefix(t.String(), "Vk")
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
