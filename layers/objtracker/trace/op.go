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
	"fmt"

	"github.com/google/vklifetime/layers/objtracker"
)

// Op is the kind of a trace command.
type Op uint32

const (
	OpInvalid Op = iota
	OpCreateInstance
	OpDestroyInstance
	OpEnumeratePhysicalDevice
	OpCreateDevice
	OpDestroyDevice
	OpGetDeviceQueue
	OpCreate
	OpDestroy
	OpUse
	OpAllocateCommandBuffer
	OpFreeCommandBuffer
	OpAllocateDescriptorSet
	OpFreeDescriptorSet
	OpResetDescriptorPool
	OpGetSwapchainImage
	opCount
)

var opNames = [...]string{
	OpInvalid:                 "invalid",
	OpCreateInstance:          "create_instance",
	OpDestroyInstance:         "destroy_instance",
	OpEnumeratePhysicalDevice: "enumerate_physical_device",
	OpCreateDevice:            "create_device",
	OpDestroyDevice:           "destroy_device",
	OpGetDeviceQueue:          "get_device_queue",
	OpCreate:                  "create",
	OpDestroy:                 "destroy",
	OpUse:                     "use",
	OpAllocateCommandBuffer:   "allocate_command_buffer",
	OpFreeCommandBuffer:       "free_command_buffer",
	OpAllocateDescriptorSet:   "allocate_descriptor_set",
	OpFreeDescriptorSet:       "free_descriptor_set",
	OpResetDescriptorPool:     "reset_descriptor_pool",
	OpGetSwapchainImage:       "get_swapchain_image",
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint32(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	if o == OpInvalid || o >= opCount {
		return nil, fmt.Errorf("invalid op %d", uint32(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(text []byte) error {
	for i := OpCreateInstance; i < opCount; i++ {
		if opNames[i] == string(text) {
			*o = i
			return nil
		}
	}
	return fmt.Errorf("unknown op %q", text)
}

// Via names the dispatchable kind a create, destroy or use goes through.
type Via uint32

const (
	// ViaDefault dispatches through the instance for instance-level types
	// and through the device otherwise.
	ViaDefault Via = iota
	ViaInstance
	ViaPhysicalDevice
	ViaDevice
	ViaQueue
	ViaCommandBuffer
	viaCount
)

var viaNames = [...]string{"", "instance", "physical_device", "device", "queue", "command_buffer"}

func (v Via) String() string {
	if v < viaCount {
		return viaNames[v]
	}
	return fmt.Sprintf("Via(%d)", uint32(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v Via) MarshalText() ([]byte, error) {
	if v >= viaCount {
		return nil, fmt.Errorf("invalid via %d", uint32(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Via) UnmarshalText(text []byte) error {
	for i := ViaDefault; i < viaCount; i++ {
		if viaNames[i] == string(text) {
			*v = i
			return nil
		}
	}
	return fmt.Errorf("unknown dispatchable kind %q", text)
}

func (v Via) kind() objtracker.Kind {
	switch v {
	case ViaInstance:
		return objtracker.KindInstance
	case ViaPhysicalDevice:
		return objtracker.KindPhysicalDevice
	case ViaQueue:
		return objtracker.KindQueue
	case ViaCommandBuffer:
		return objtracker.KindCommandBuffer
	default:
		return objtracker.KindDevice
	}
}
