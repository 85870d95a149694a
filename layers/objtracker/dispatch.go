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
	"fmt"

	"github.com/google/vklifetime/core/vulkan/objtype"
)

// Kind is the kind of a dispatchable handle.
type Kind uint8

const (
	KindInstance Kind = iota
	KindPhysicalDevice
	KindDevice
	KindQueue
	KindCommandBuffer
)

var kindTypes = [...]objtype.Type{
	KindInstance:       objtype.Instance,
	KindPhysicalDevice: objtype.PhysicalDevice,
	KindDevice:         objtype.Device,
	KindQueue:          objtype.Queue,
	KindCommandBuffer:  objtype.CommandBuffer,
}

// Type returns the object type of the dispatchable kind.
func (k Kind) Type() objtype.Type {
	if int(k) < len(kindTypes) {
		return kindTypes[k]
	}
	return objtype.Unknown
}

// Scope returns the scope of the owner a dispatchable of kind k resolves to.
func (k Kind) Scope() Scope {
	if k == KindInstance || k == KindPhysicalDevice {
		return InstanceScope
	}
	return DeviceScope
}

// Dispatchable is the first argument of an intercepted call. It identifies
// the owner whose registry the call operates on.
type Dispatchable struct {
	Kind   Kind
	Handle Handle
}

// Instance returns the Dispatchable for a VkInstance.
func Instance(h Handle) Dispatchable { return Dispatchable{KindInstance, h} }

// PhysicalDevice returns the Dispatchable for a VkPhysicalDevice.
func PhysicalDevice(h Handle) Dispatchable { return Dispatchable{KindPhysicalDevice, h} }

// Device returns the Dispatchable for a VkDevice.
func Device(h Handle) Dispatchable { return Dispatchable{KindDevice, h} }

// Queue returns the Dispatchable for a VkQueue.
func Queue(h Handle) Dispatchable { return Dispatchable{KindQueue, h} }

// CommandBuffer returns the Dispatchable for a VkCommandBuffer.
func CommandBuffer(h Handle) Dispatchable { return Dispatchable{KindCommandBuffer, h} }

func (d Dispatchable) String() string {
	return fmt.Sprintf("%v %v", d.Kind.Type(), d.Handle)
}

// dispatchMap maps every live dispatchable handle of one scope to the handle
// of the owner it dispatches through.
type dispatchMap map[Handle]Handle

// resolve returns the owner d dispatches through, or nil.
// Must be called with the tracker lock held.
func (t *Tracker) resolve(d Dispatchable) *owner {
	s := d.Kind.Scope()
	key, ok := t.dispatchOf(s)[d.Handle]
	if !ok {
		return nil
	}
	return t.ownersOf(s)[key]
}

func (t *Tracker) dispatchOf(s Scope) dispatchMap {
	if s == InstanceScope {
		return t.instanceDispatch
	}
	return t.deviceDispatch
}

func (t *Tracker) ownersOf(s Scope) ownerSet {
	if s == InstanceScope {
		return t.instances
	}
	return t.devices
}

// forgetDispatch removes every dispatch entry routed through o.
func (t *Tracker) forgetDispatch(o *owner) {
	m := t.dispatchOf(o.scope)
	for h, key := range m {
		if key == o.handle {
			delete(m, h)
		}
	}
}
