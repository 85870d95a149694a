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

// Package objtype enumerates the Vulkan object types tracked by the layers,
// along with their debug-report tags.
package objtype

import (
	"fmt"
	"strings"
)

// Type is a Vulkan object type.
type Type uint32

// The order matches the layer object type enumeration, not VkObjectType.
const (
	Unknown Type = iota
	Instance
	PhysicalDevice
	Device
	Queue
	Semaphore
	CommandBuffer
	Fence
	DeviceMemory
	Buffer
	Image
	Event
	QueryPool
	BufferView
	ImageView
	ShaderModule
	PipelineCache
	PipelineLayout
	RenderPass
	Pipeline
	DescriptorSetLayout
	Sampler
	DescriptorPool
	DescriptorSet
	Framebuffer
	CommandPool
	SamplerYcbcrConversion
	DescriptorUpdateTemplate
	SurfaceKHR
	SwapchainKHR
	DisplayKHR
	DisplayModeKHR
	ObjectTableNVX
	IndirectCommandsLayoutNVX
	DebugReportCallbackEXT
	DebugUtilsMessengerEXT
	ValidationCacheEXT

	// Count is the number of object types, including Unknown.
	Count
)

// DebugReportType is a VkDebugReportObjectTypeEXT value.
type DebugReportType uint32

// Debug report object types. Values are the VkDebugReportObjectTypeEXT enums.
const (
	DebugReportUnknown                   DebugReportType = 0
	DebugReportInstance                  DebugReportType = 1
	DebugReportPhysicalDevice            DebugReportType = 2
	DebugReportDevice                    DebugReportType = 3
	DebugReportQueue                     DebugReportType = 4
	DebugReportSemaphore                 DebugReportType = 5
	DebugReportCommandBuffer             DebugReportType = 6
	DebugReportFence                     DebugReportType = 7
	DebugReportDeviceMemory              DebugReportType = 8
	DebugReportBuffer                    DebugReportType = 9
	DebugReportImage                     DebugReportType = 10
	DebugReportEvent                     DebugReportType = 11
	DebugReportQueryPool                 DebugReportType = 12
	DebugReportBufferView                DebugReportType = 13
	DebugReportImageView                 DebugReportType = 14
	DebugReportShaderModule              DebugReportType = 15
	DebugReportPipelineCache             DebugReportType = 16
	DebugReportPipelineLayout            DebugReportType = 17
	DebugReportRenderPass                DebugReportType = 18
	DebugReportPipeline                  DebugReportType = 19
	DebugReportDescriptorSetLayout       DebugReportType = 20
	DebugReportSampler                   DebugReportType = 21
	DebugReportDescriptorPool            DebugReportType = 22
	DebugReportDescriptorSet             DebugReportType = 23
	DebugReportFramebuffer               DebugReportType = 24
	DebugReportCommandPool               DebugReportType = 25
	DebugReportSurfaceKHR                DebugReportType = 26
	DebugReportSwapchainKHR              DebugReportType = 27
	DebugReportDebugReportCallbackEXT    DebugReportType = 28
	DebugReportDisplayKHR                DebugReportType = 29
	DebugReportDisplayModeKHR            DebugReportType = 30
	DebugReportObjectTableNVX            DebugReportType = 31
	DebugReportIndirectCommandsLayoutNVX DebugReportType = 32
	DebugReportValidationCacheEXT        DebugReportType = 33
	DebugReportDescriptorUpdateTemplate  DebugReportType = 1000085000
	DebugReportSamplerYcbcrConversion    DebugReportType = 1000156000
)

type info struct {
	name        string
	debugReport DebugReportType
	// instanceLevel types live in an instance's registry rather than a
	// device's.
	instanceLevel bool
}

var table = [Count]info{
	Unknown:                   {"Unknown", DebugReportUnknown, false},
	Instance:                  {"VkInstance", DebugReportInstance, true},
	PhysicalDevice:            {"VkPhysicalDevice", DebugReportPhysicalDevice, true},
	Device:                    {"VkDevice", DebugReportDevice, true},
	Queue:                     {"VkQueue", DebugReportQueue, false},
	Semaphore:                 {"VkSemaphore", DebugReportSemaphore, false},
	CommandBuffer:             {"VkCommandBuffer", DebugReportCommandBuffer, false},
	Fence:                     {"VkFence", DebugReportFence, false},
	DeviceMemory:              {"VkDeviceMemory", DebugReportDeviceMemory, false},
	Buffer:                    {"VkBuffer", DebugReportBuffer, false},
	Image:                     {"VkImage", DebugReportImage, false},
	Event:                     {"VkEvent", DebugReportEvent, false},
	QueryPool:                 {"VkQueryPool", DebugReportQueryPool, false},
	BufferView:                {"VkBufferView", DebugReportBufferView, false},
	ImageView:                 {"VkImageView", DebugReportImageView, false},
	ShaderModule:              {"VkShaderModule", DebugReportShaderModule, false},
	PipelineCache:             {"VkPipelineCache", DebugReportPipelineCache, false},
	PipelineLayout:            {"VkPipelineLayout", DebugReportPipelineLayout, false},
	RenderPass:                {"VkRenderPass", DebugReportRenderPass, false},
	Pipeline:                  {"VkPipeline", DebugReportPipeline, false},
	DescriptorSetLayout:       {"VkDescriptorSetLayout", DebugReportDescriptorSetLayout, false},
	Sampler:                   {"VkSampler", DebugReportSampler, false},
	DescriptorPool:            {"VkDescriptorPool", DebugReportDescriptorPool, false},
	DescriptorSet:             {"VkDescriptorSet", DebugReportDescriptorSet, false},
	Framebuffer:               {"VkFramebuffer", DebugReportFramebuffer, false},
	CommandPool:               {"VkCommandPool", DebugReportCommandPool, false},
	SamplerYcbcrConversion:    {"VkSamplerYcbcrConversion", DebugReportSamplerYcbcrConversion, false},
	DescriptorUpdateTemplate:  {"VkDescriptorUpdateTemplate", DebugReportDescriptorUpdateTemplate, false},
	SurfaceKHR:                {"VkSurfaceKHR", DebugReportSurfaceKHR, true},
	SwapchainKHR:              {"VkSwapchainKHR", DebugReportSwapchainKHR, false},
	DisplayKHR:                {"VkDisplayKHR", DebugReportDisplayKHR, true},
	DisplayModeKHR:            {"VkDisplayModeKHR", DebugReportDisplayModeKHR, true},
	ObjectTableNVX:            {"VkObjectTableNVX", DebugReportObjectTableNVX, false},
	IndirectCommandsLayoutNVX: {"VkIndirectCommandsLayoutNVX", DebugReportIndirectCommandsLayoutNVX, false},
	DebugReportCallbackEXT:    {"VkDebugReportCallbackEXT", DebugReportDebugReportCallbackEXT, true},
	// VkDebugUtilsMessengerEXT has no debug-report equivalent.
	DebugUtilsMessengerEXT: {"VkDebugUtilsMessengerEXT", DebugReportUnknown, true},
	ValidationCacheEXT:     {"VkValidationCacheEXT", DebugReportValidationCacheEXT, false},
}

// Valid returns true if t is a known, non-Unknown object type.
func (t Type) Valid() bool { return t > Unknown && t < Count }

func (t Type) String() string {
	if t >= Count {
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
	return table[t].name
}

// DebugReportType returns the debug-report object type tag for t.
func (t Type) DebugReportType() DebugReportType {
	if t >= Count {
		return DebugReportUnknown
	}
	return table[t].debugReport
}

// InstanceLevel returns true if objects of type t are owned by an instance
// rather than a device.
func (t Type) InstanceLevel() bool {
	return t < Count && table[t].instanceLevel
}

// Parse returns the Type with the given name. Both the Vulkan type name
// ("VkImage") and the bare name ("image") are accepted, case-insensitively.
func Parse(name string) (Type, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for t := Instance; t < Count; t++ {
		full := strings.ToLower(table[t].name)
		if want == full || want == strings.TrimPrefix(full, "vk") {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown object type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t >= Count {
		return nil, fmt.Errorf("invalid object type %d", uint32(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// All returns every valid object type in enumeration order.
func All() []Type {
	out := make([]Type, 0, Count-1)
	for t := Instance; t < Count; t++ {
		out = append(out, t)
	}
	return out
}
