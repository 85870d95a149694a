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
	"math/rand"
	"sync"
	"testing"

	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/core/vulkan/objtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	inst1 Handle = 0x10
	inst2 Handle = 0x11
	gpu1  Handle = 0x20
	gpu2  Handle = 0x21
	dev1  Handle = 0xd1
	dev2  Handle = 0xd2

	codeInvalid    = "VUID-test-object-parameter"
	codeWrongOwner = "VUID-test-object-parent"
)

// collector records every diagnostic and asks to skip on the severities in
// skipOn.
type collector struct {
	mutex  sync.Mutex
	skipOn Severity
	diags  []Diagnostic
}

func (c *collector) Emit(ctx context.Context, d Diagnostic) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diags = append(c.diags, d)
	return d.Severity&c.skipOn != 0
}

// problems returns the diagnostics that are not informational.
func (c *collector) problems() []Diagnostic {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := []Diagnostic{}
	for _, d := range c.diags {
		if d.Severity != SeverityInformation {
			out = append(out, d)
		}
	}
	return out
}

func (c *collector) codes() []string {
	out := []string{}
	for _, d := range c.problems() {
		out = append(out, d.Code)
	}
	return out
}

func (c *collector) reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diags = nil
}

// newFixture returns a tracker with one instance, one physical device and
// the devices dev1 and dev2.
func newFixture(t *testing.T, opts ...Option) (context.Context, *Tracker, *collector) {
	ctx := log.Testing(t)
	c := &collector{skipOn: SeverityError}
	tr := New(c, opts...)
	tr.CreateInstance(ctx, inst1, nil)
	tr.RecordPhysicalDevice(ctx, inst1, gpu1)
	tr.CreateDevice(ctx, gpu1, dev1, nil)
	tr.CreateDevice(ctx, gpu1, dev2, nil)
	c.reset()
	return ctx, tr, c
}

func TestCreateUseDestroyImage(t *testing.T) {
	ctx, tr, c := newFixture(t)
	custom := &AllocationCallbacks{UserData: 1}

	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	v := tr.ValidateObject(ctx, Device(dev1), 0x100, objtype.Image, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: Valid}, v)

	v = tr.ValidateDestroyObject(ctx, Device(dev1), 0x100, objtype.Image, custom,
		"VUID-vkDestroyImage-image-01283", "VUID-vkDestroyImage-image-01284")
	assert.Equal(t, AllocatorMismatch, v.Status)
	assert.True(t, v.Skip)
	assert.Equal(t, []string{"VUID-vkDestroyImage-image-01284"}, c.codes())

	tr.RecordDestroyObject(ctx, Device(dev1), 0x100, objtype.Image)
	c.reset()
	v = tr.ValidateObject(ctx, Device(dev1), 0x100, objtype.Image, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{codeInvalid}, c.codes())
	assert.Equal(t, "Invalid VkImage Object 0x100.", c.problems()[0].Message)
	assert.Equal(t, objtype.Image.DebugReportType(), c.problems()[0].ObjectType)
}

func TestCustomAllocatorNotGivenAtDestroy(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Sampler, &AllocationCallbacks{})

	v := tr.ValidateDestroyObject(ctx, Device(dev1), 0x100, objtype.Sampler, nil, "custom", "default")
	assert.Equal(t, AllocatorMismatch, v.Status)
	assert.Equal(t, []string{"custom"}, c.codes())

	c.reset()
	v = tr.ValidateDestroyObject(ctx, Device(dev1), 0x100, objtype.Sampler, nil, CodeUndefined, "default")
	assert.Equal(t, Verdict{Status: Valid}, v)
	assert.Empty(t, c.codes())
}

func TestValidateDestroyUnknown(t *testing.T) {
	ctx, tr, c := newFixture(t)
	v := tr.ValidateDestroyObject(ctx, Device(dev1), 0x123, objtype.Fence, nil, CodeUndefined, CodeUndefined)
	assert.Equal(t, Verdict{Status: Unknown, Skip: true}, v)
	assert.Equal(t, []string{CodeUnknownObject}, c.codes())

	c.reset()
	v = tr.ValidateDestroyObject(ctx, Device(dev1), NullHandle, objtype.Fence, nil, CodeUndefined, CodeUndefined)
	assert.Equal(t, Null, v.Status)
	assert.True(t, v.Valid())
	assert.Empty(t, c.diags)
}

func TestQueueWrongOwner(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateQueue(ctx, dev1, 0x1)

	v := tr.ValidateObject(ctx, Device(dev2), 0x1, objtype.Queue, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: WrongOwner, Skip: true}, v)
	require.Equal(t, []string{codeWrongOwner}, c.codes())
	assert.Equal(t, "Object 0x1 was not created, allocated or retrieved from the correct device.",
		c.problems()[0].Message)

	c.reset()
	v = tr.ValidateObject(ctx, Device(dev2), 0x1, objtype.Queue, false, codeInvalid, CodeUndefined)
	assert.Equal(t, Verdict{Status: Valid}, v, "undefined wrong-owner code disables the check")
	assert.Empty(t, c.codes())
}

func TestSilentDestroyLeavesNoLeak(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x300, objtype.CommandPool, nil)
	tr.AllocateCommandBuffer(ctx, dev1, 0x300, 0x301, false)
	tr.AllocateCommandBuffer(ctx, dev1, 0x300, 0x302, true)
	c.reset()

	tr.DestroyObjectSilently(ctx, Device(dev1), 0x301, objtype.CommandBuffer)
	assert.Empty(t, c.diags)
	tr.RecordDestroyCommandPool(ctx, dev1, 0x300)
	assert.Empty(t, c.diags)

	tr.RecordDestroyDevice(ctx, dev1)
	assert.NotContains(t, c.codes(), CodeObjectLeak)
	assert.NoError(t, tr.checkConsistency())
}

func TestCommandBufferDispatch(t *testing.T) {
	ctx, tr, _ := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x300, objtype.CommandPool, nil)
	tr.AllocateCommandBuffer(ctx, dev1, 0x300, 0x301, true)
	tr.CreateQueue(ctx, dev1, 0x400)

	tr.CreateObject(ctx, CommandBuffer(0x301), 0x500, objtype.Event, nil)
	tr.CreateObject(ctx, Queue(0x400), 0x501, objtype.Fence, nil)

	rec, ok := tr.Lookup(Device(dev1), objtype.CommandBuffer, 0x301)
	require.True(t, ok)
	assert.Equal(t, Handle(0x300), rec.Parent)
	assert.NotZero(t, rec.Flags&FlagSecondary)
	_, ok = tr.Lookup(Device(dev1), objtype.Event, 0x500)
	assert.True(t, ok)
	_, ok = tr.Lookup(Device(dev1), objtype.Fence, 0x501)
	assert.True(t, ok)

	tr.RecordDestroyCommandPool(ctx, dev1, 0x300)
	_, ok = tr.Lookup(CommandBuffer(0x301), objtype.Event, 0x500)
	assert.False(t, ok, "freed command buffer no longer dispatches")
}

func TestFreeCommandBuffers(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x300, objtype.CommandPool, nil)
	tr.CreateObject(ctx, Device(dev1), 0x310, objtype.CommandPool, nil)
	tr.AllocateCommandBuffer(ctx, dev1, 0x300, 0x301, false)

	assert.Equal(t, Verdict{Status: Valid}, tr.ValidateCommandBuffer(ctx, dev1, 0x300, 0x301))

	v := tr.ValidateCommandBuffer(ctx, dev1, 0x310, 0x301)
	assert.Equal(t, WrongParent, v.Status)
	assert.Equal(t, []string{CodeFreeCommandBuffersParent}, c.codes())

	c.reset()
	v = tr.ValidateCommandBuffer(ctx, dev1, 0x300, 0x399)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{CodeFreeCommandBuffersInvalid}, c.codes())
}

func TestDescriptorPools(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x600, objtype.DescriptorPool, nil)
	tr.CreateObject(ctx, Device(dev1), 0x610, objtype.DescriptorPool, nil)
	tr.AllocateDescriptorSet(ctx, dev1, 0x600, 0x601)
	tr.AllocateDescriptorSet(ctx, dev1, 0x600, 0x602)
	tr.AllocateDescriptorSet(ctx, dev1, 0x610, 0x611)

	v := tr.ValidateDescriptorSet(ctx, dev1, 0x610, 0x601)
	assert.Equal(t, WrongParent, v.Status)
	assert.Equal(t, []string{CodeFreeDescriptorSetsParent}, c.codes())

	tr.RecordResetDescriptorPool(ctx, dev1, 0x600)
	_, ok := tr.Lookup(Device(dev1), objtype.DescriptorSet, 0x601)
	assert.False(t, ok)
	_, ok = tr.Lookup(Device(dev1), objtype.DescriptorPool, 0x600)
	assert.True(t, ok, "reset keeps the pool")

	c.reset()
	v = tr.ValidateDescriptorSet(ctx, dev1, 0x600, 0x602)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{CodeFreeDescriptorSetsInvalid}, c.codes())

	tr.RecordDestroyDescriptorPool(ctx, dev1, 0x610)
	_, ok = tr.Lookup(Device(dev1), objtype.DescriptorSet, 0x611)
	assert.False(t, ok)
	_, ok = tr.Lookup(Device(dev1), objtype.DescriptorPool, 0x610)
	assert.False(t, ok)
}

func TestSwapchainImages(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x700, objtype.SwapchainKHR, nil)
	tr.CreateSwapchainImage(ctx, dev1, 0x701, 0x700)
	tr.CreateSwapchainImage(ctx, dev1, 0x702, 0x700)

	v := tr.ValidateObject(ctx, Device(dev1), 0x701, objtype.Image, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status)

	stats := tr.Stats()
	require.Len(t, stats, 3)
	d1 := stats[1]
	assert.Equal(t, DeviceScope, d1.Scope)
	assert.Equal(t, dev1, d1.Handle)
	assert.Equal(t, 2, d1.Aliases)
	assert.Zero(t, d1.Counts[objtype.Image], "swapchain images are not counted")

	tr.RecordDestroySwapchain(ctx, dev1, 0x700)
	c.reset()
	v = tr.ValidateObject(ctx, Device(dev1), 0x702, objtype.Image, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Unknown, v.Status)
	_, ok := tr.Lookup(Device(dev1), objtype.SwapchainKHR, 0x700)
	assert.False(t, ok)
}

func TestSurfaceExemptFromWrongOwner(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateInstance(ctx, inst2, nil)
	tr.CreateObject(ctx, Instance(inst1), 0x800, objtype.SurfaceKHR, nil)
	tr.CreateObject(ctx, Instance(inst1), 0x801, objtype.DebugReportCallbackEXT, nil)
	c.reset()

	v := tr.ValidateObject(ctx, Instance(inst2), 0x800, objtype.SurfaceKHR, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: Valid}, v)
	v = tr.ValidateObject(ctx, Instance(inst2), 0x801, objtype.DebugReportCallbackEXT, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, WrongOwner, v.Status)
	assert.Equal(t, []string{codeWrongOwner}, c.codes())
}

func TestExemptionsAreConfigurable(t *testing.T) {
	ctx, tr, c := newFixture(t, WithWrongOwnerExemptions(objtype.NewSet(objtype.Image)))
	assert.Equal(t, objtype.NewSet(objtype.Image), tr.Exemptions())
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	tr.CreateObject(ctx, Device(dev1), 0x101, objtype.Buffer, nil)

	v := tr.ValidateObject(ctx, Device(dev2), 0x100, objtype.Image, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status)
	v = tr.ValidateObject(ctx, Device(dev2), 0x101, objtype.Buffer, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, WrongOwner, v.Status)
	assert.Equal(t, []string{codeWrongOwner}, c.codes())
}

func TestInstanceLevelObjectThroughDevice(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x900, objtype.SurfaceKHR, nil)

	v := tr.ValidateObject(ctx, Instance(inst1), 0x900, objtype.SurfaceKHR, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status)
	v = tr.ValidateObject(ctx, Device(dev2), 0x900, objtype.SurfaceKHR, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status, "resolved through the shared instance")
	assert.Empty(t, c.codes())
}

func TestDeviceObjectThroughInstance(t *testing.T) {
	ctx := context.Background()
	c := &collector{}
	tr := New(c)
	tr.CreateInstance(ctx, inst1, nil)
	tr.CreateObject(ctx, Instance(inst1), 0x100, objtype.Image, nil)
	assert.Equal(t, []string{CodeInternalError}, c.codes())

	c.reset()
	tr.CreateObject(ctx, Instance(inst1), 0x101, objtype.Device, nil)
	assert.Equal(t, []string{CodeInternalError}, c.codes())
}

func TestNullHandles(t *testing.T) {
	ctx, tr, c := newFixture(t)
	v := tr.ValidateObject(ctx, Device(dev1), NullHandle, objtype.Buffer, true, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: Null}, v)
	assert.Empty(t, c.diags)

	v = tr.ValidateObject(ctx, Device(dev1), NullHandle, objtype.Buffer, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{codeInvalid}, c.codes())

	c.reset()
	tr.CreateObject(ctx, Device(dev1), NullHandle, objtype.Buffer, nil)
	assert.Empty(t, c.diags)
}

func TestOwnerObjectsFastPath(t *testing.T) {
	ctx, tr, c := newFixture(t)
	v := tr.ValidateObject(ctx, Device(dev2), dev1, objtype.Device, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status)
	v = tr.ValidateObject(ctx, Instance(inst1), inst1, objtype.Instance, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Valid, v.Status)
	v = tr.ValidateObject(ctx, Instance(inst1), 0xdead, objtype.Device, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{codeInvalid}, c.codes())
}

func TestSkipFollowsSink(t *testing.T) {
	ctx, tr, c := newFixture(t)
	c.skipOn = SeverityWarning
	v := tr.ValidateObject(ctx, Device(dev1), 0x42, objtype.Buffer, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: Unknown, Skip: false}, v)

	tr2 := New(nil)
	tr2.CreateInstance(ctx, inst1, nil)
	v = tr2.ValidateObject(ctx, Instance(inst1), 0x42, objtype.SurfaceKHR, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Verdict{Status: Unknown}, v, "no sink never skips")
}

func TestDeviceTeardownReportsLeaks(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateQueue(ctx, dev1, 0x1)
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	tr.CreateObject(ctx, Device(dev1), 0x200, objtype.Buffer, nil)
	tr.CreateObject(ctx, Device(dev1), 0x300, objtype.CommandPool, nil)
	tr.AllocateCommandBuffer(ctx, dev1, 0x300, 0x301, false)
	c.reset()

	v := tr.ValidateDestroyDevice(ctx, dev1, nil)
	assert.Equal(t, Verdict{Status: Valid}, v)
	tr.RecordDestroyDevice(ctx, dev1)

	leaks := []Handle{}
	for _, d := range c.problems() {
		assert.Equal(t, CodeObjectLeak, d.Code)
		leaks = append(leaks, d.Handle)
	}
	assert.Equal(t, []Handle{0x301, 0x200, 0x100, 0x300}, leaks, "command buffers first, queues exempt")
	assert.Equal(t, "OBJ ERROR : For device 0xd1, VkCommandBuffer object 0x301 has not been destroyed.",
		c.problems()[0].Message)

	_, ok := tr.Lookup(Instance(inst1), objtype.Device, dev1)
	assert.False(t, ok, "device record removed from its instance")
	v = tr.ValidateObject(ctx, Instance(inst1), dev1, objtype.Device, false, codeInvalid, codeWrongOwner)
	assert.Equal(t, Unknown, v.Status)
	assert.NoError(t, tr.checkConsistency())
}

func TestInstanceTeardownWithLiveDevice(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	tr.CreateObject(ctx, Instance(inst1), 0x800, objtype.SurfaceKHR, nil)
	c.reset()

	tr.RecordDestroyInstance(ctx, inst1)
	msgs := []string{}
	for _, d := range c.problems() {
		msgs = append(msgs, d.Message)
	}
	assert.Equal(t, []string{
		"OBJ ERROR : For device 0xd1, VkImage object 0x100 has not been destroyed.",
		"OBJ ERROR : For instance 0x10, VkDevice object 0xd1 has not been destroyed.",
		"OBJ ERROR : For instance 0x10, VkDevice object 0xd2 has not been destroyed.",
		"OBJ ERROR : For instance 0x10, VkSurfaceKHR object 0x800 has not been destroyed.",
	}, msgs)
	assert.Empty(t, tr.Stats())

	c.reset()
	tr.CreateObject(ctx, PhysicalDevice(gpu1), 0x900, objtype.DisplayKHR, nil)
	assert.Equal(t, []string{CodeInternalError}, c.codes(), "physical device forgotten with its instance")
}

func TestDestroyOwnerValidation(t *testing.T) {
	ctx := log.Testing(t)
	c := &collector{}
	tr := New(c)
	tr.CreateInstance(ctx, inst1, &AllocationCallbacks{})
	tr.RecordPhysicalDevice(ctx, inst1, gpu1)
	tr.CreateDevice(ctx, gpu1, dev1, nil)
	c.reset()

	v := tr.ValidateDestroyInstance(ctx, inst1, nil)
	assert.Equal(t, AllocatorMismatch, v.Status)
	assert.Equal(t, []string{CodeDestroyInstanceCustomAllocator}, c.codes())

	c.reset()
	v = tr.ValidateDestroyDevice(ctx, dev1, &AllocationCallbacks{})
	assert.Equal(t, AllocatorMismatch, v.Status)
	assert.Equal(t, []string{CodeDestroyDeviceDefaultAllocator}, c.codes())

	c.reset()
	v = tr.ValidateDestroyDevice(ctx, dev2, nil)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{CodeDestroyDeviceDevice}, c.codes())

	c.reset()
	v = tr.ValidateDestroyInstance(ctx, inst2, nil)
	assert.Equal(t, Unknown, v.Status)
	assert.Equal(t, []string{CodeDestroyInstanceInstance}, c.codes())
}

func TestReportAndDestroyUndestroyed(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev2), 0x100, objtype.Pipeline, nil)
	c.skipOn = SeverityError

	assert.True(t, tr.ReportUndestroyedObjects(ctx, Device(dev2)))
	assert.Equal(t, []string{CodeObjectLeak}, c.codes())

	tr.DestroyUndestroyedObjects(ctx, Device(dev2))
	c.reset()
	assert.False(t, tr.ReportUndestroyedObjects(ctx, Device(dev2)))
	assert.Empty(t, c.codes())
}

func TestCreateSequence(t *testing.T) {
	ctx, tr, c := newFixture(t)
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	tr.CreateObject(ctx, Device(dev1), 0x100, objtype.Image, nil)
	tr.CreateObject(ctx, Device(dev1), 0x101, objtype.Image, nil)
	require.Len(t, c.diags, 2, "duplicate create is ignored")
	assert.Equal(t, "OBJ[0x4] : CREATE VkImage object 0x100", c.diags[0].Message)
	assert.Equal(t, "OBJ[0x5] : CREATE VkImage object 0x101", c.diags[1].Message)
	assert.Equal(t, CodeInfo, c.diags[0].Code)
}

func TestSilentDestroyFaults(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)
	tr.CreateInstance(ctx, inst1, nil)
	tr.RecordPhysicalDevice(ctx, inst1, gpu1)
	tr.CreateDevice(ctx, gpu1, dev1, nil)

	for _, test := range []struct {
		name string
		fn   func()
		err  error
	}{
		{"null", func() { tr.DestroyObjectSilently(ctx, Device(dev1), NullHandle, objtype.Image) }, ErrNullHandle},
		{"no owner", func() { tr.DestroyObjectSilently(ctx, Device(dev2), 0x1, objtype.Image) }, ErrOwnerMissing},
		{"no record", func() { tr.DestroyObjectSilently(ctx, Device(dev1), 0x1, objtype.Image) }, ErrRecordMissing},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := internalPanic(test.fn)
			require.NotNil(t, got)
			assert.Equal(t, test.err, got.Err)
		})
	}

	// The lock must be released after a fault.
	tr.CreateObject(ctx, Device(dev1), 0x1, objtype.Image, nil)
	_, ok := tr.Lookup(Device(dev1), objtype.Image, 0x1)
	assert.True(t, ok)
}

func TestRandomOperationsStayConsistent(t *testing.T) {
	ctx := context.Background()
	tr := New(&collector{})
	tr.CreateInstance(ctx, inst1, nil)
	tr.RecordPhysicalDevice(ctx, inst1, gpu1)
	devices := []Handle{dev1, dev2}
	for _, d := range devices {
		tr.CreateDevice(ctx, gpu1, d, nil)
	}
	types := []objtype.Type{objtype.Image, objtype.Buffer, objtype.Fence, objtype.Semaphore}

	type key struct {
		dev Handle
		ty  objtype.Type
		h   Handle
	}
	model := map[key]bool{}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		k := key{devices[r.Intn(2)], types[r.Intn(len(types))], Handle(1 + r.Intn(32))}
		switch r.Intn(3) {
		case 0:
			tr.CreateObject(ctx, Device(k.dev), k.h, k.ty, nil)
			model[k] = true
		case 1:
			tr.RecordDestroyObject(ctx, Device(k.dev), k.h, k.ty)
			delete(model, k)
		case 2:
			v := tr.ValidateObject(ctx, Device(k.dev), k.h, k.ty, false, codeInvalid, codeWrongOwner)
			if model[k] {
				require.Equal(t, Valid, v.Status, "op %d %+v", i, k)
			} else {
				other := k
				other.dev = devices[0] + devices[1] - k.dev
				if model[other] {
					require.Equal(t, WrongOwner, v.Status, "op %d %+v", i, k)
				} else {
					require.Equal(t, Unknown, v.Status, "op %d %+v", i, k)
				}
			}
		}
		require.NoError(t, tr.checkConsistency())
	}

	counts := map[Handle]uint64{}
	for k := range model {
		counts[k.dev]++
	}
	for _, s := range tr.Stats() {
		if s.Scope == DeviceScope {
			assert.Equal(t, counts[s.Handle], s.Total, "device %v", s.Handle)
		}
	}
}

func TestConcurrentDevices(t *testing.T) {
	ctx := context.Background()
	tr := New(&collector{})
	tr.CreateInstance(ctx, inst1, nil)
	tr.RecordPhysicalDevice(ctx, inst1, gpu1)

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		dev := Handle(0x1000 * (w + 1))
		tr.CreateDevice(ctx, gpu1, dev, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				h := dev + Handle(i)
				tr.CreateObject(ctx, Device(dev), h, objtype.Buffer, nil)
				tr.ValidateObject(ctx, Device(dev), h, objtype.Buffer, false, codeInvalid, codeWrongOwner)
				tr.ValidateDestroyObject(ctx, Device(dev), h, objtype.Buffer, nil, CodeUndefined, CodeUndefined)
				tr.RecordDestroyObject(ctx, Device(dev), h, objtype.Buffer)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, tr.checkConsistency())
	for _, s := range tr.Stats() {
		if s.Scope == DeviceScope {
			assert.Zero(t, s.Total)
		}
	}
}
