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
	"strconv"
	"strings"

	"github.com/google/vklifetime/core/vulkan/objtype"
)

// Handle is the integer value of a Vulkan handle, dispatchable or not.
type Handle uint64

// NullHandle is VK_NULL_HANDLE.
const NullHandle Handle = 0

func (h Handle) String() string { return fmt.Sprintf("0x%x", uint64(h)) }

// MarshalText encodes h as a hexadecimal literal.
func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText accepts decimal, hexadecimal and octal literals.
func (h *Handle) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(strings.TrimSpace(string(text)), 0, 64)
	if err != nil {
		return fmt.Errorf("invalid handle %q", text)
	}
	*h = Handle(v)
	return nil
}

// AllocationCallbacks stands in for a VkAllocationCallbacks argument.
// Only its presence matters to the tracker.
type AllocationCallbacks struct {
	UserData uintptr
}

// AllocMode records whether an object was created with a custom allocator.
type AllocMode uint8

const (
	DefaultAllocator AllocMode = iota
	CustomAllocator
)

// ModeOf returns the AllocMode implied by an allocator argument.
func ModeOf(cb *AllocationCallbacks) AllocMode {
	if cb == nil {
		return DefaultAllocator
	}
	return CustomAllocator
}

func (m AllocMode) String() string {
	if m == CustomAllocator {
		return "custom"
	}
	return "default"
}

// Flags are per-record status bits.
type Flags uint8

const (
	// FlagCustomAllocator is set when the object was created with allocation
	// callbacks.
	FlagCustomAllocator Flags = 1 << iota
	// FlagSecondary is set on secondary command buffers.
	FlagSecondary
)

// Record is the tracked state of a single live object.
type Record struct {
	Type   objtype.Type
	Handle Handle
	Flags  Flags
	// Parent is the pool or swapchain the object was allocated from, if any.
	Parent Handle
}

// Mode returns the allocation mode the object was created with.
func (r Record) Mode() AllocMode {
	if r.Flags&FlagCustomAllocator != 0 {
		return CustomAllocator
	}
	return DefaultAllocator
}
