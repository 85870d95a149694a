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

// Stable diagnostic codes emitted by the tracker itself.
const (
	CodeInfo          = "UNASSIGNED-ObjectTracker-Info"
	CodeInternalError = "UNASSIGNED-ObjectTracker-InternalError"
	CodeObjectLeak    = "UNASSIGNED-ObjectTracker-ObjectLeak"
	CodeUnknownObject = "UNASSIGNED-ObjectTracker-UnknownObject"

	// CodeUndefined disables the check it is passed for.
	CodeUndefined = "VUID_Undefined"
)

// Entry point codes used by the owner and pool operations.
const (
	CodeDestroyInstanceCustomAllocator  = "VUID-vkDestroyInstance-instance-00630"
	CodeDestroyInstanceDefaultAllocator = "VUID-vkDestroyInstance-instance-00631"
	CodeDestroyInstanceInstance         = "VUID-vkDestroyInstance-instance-parameter"

	CodeDestroyDeviceCustomAllocator  = "VUID-vkDestroyDevice-device-00379"
	CodeDestroyDeviceDefaultAllocator = "VUID-vkDestroyDevice-device-00380"
	CodeDestroyDeviceDevice           = "VUID-vkDestroyDevice-device-parameter"

	CodeFreeCommandBuffersParent  = "VUID-vkFreeCommandBuffers-pCommandBuffers-parent"
	CodeFreeCommandBuffersInvalid = "VUID-vkFreeCommandBuffers-pCommandBuffers-00048"

	CodeFreeDescriptorSetsParent  = "VUID-vkFreeDescriptorSets-pDescriptorSets-parent"
	CodeFreeDescriptorSetsInvalid = "VUID-vkFreeDescriptorSets-pDescriptorSets-00310"
)
