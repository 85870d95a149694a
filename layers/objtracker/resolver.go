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

// ValidateObject checks that h is a live object of type ty owned through d.
//
// A null handle is accepted when nullAllowed is set. A handle that is not
// live under d's owner is looked up under every other owner of the same
// scope to tell a foreign handle (reported with wrongOwnerCode) from one that
// does not exist (reported with invalidCode). Foreign handles of exempt types,
// or with a wrongOwnerCode of CodeUndefined, are accepted.
func (t *Tracker) ValidateObject(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type,
	nullAllowed bool, invalidCode, wrongOwnerCode string) Verdict {

	if nullAllowed && h == NullHandle {
		return Verdict{Status: Null}
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.validateObject(ctx, d, h, ty, invalidCode, wrongOwnerCode)
}

func (t *Tracker) validateObject(ctx context.Context, d Dispatchable, h Handle, ty objtype.Type,
	invalidCode, wrongOwnerCode string) Verdict {

	if ty == objtype.Device || ty == objtype.Instance {
		return t.validateOwnerObject(ctx, ty, h, invalidCode)
	}
	o := t.ownerFor(d, ty)
	if o == nil {
		return Verdict{Status: Unknown, Skip: t.unresolved(ctx, d)}
	}
	if o.has(ty, h) {
		return Verdict{Status: Valid}
	}
	for _, other := range t.ownersOf(o.scope).others(o) {
		if !other.has(ty, h) {
			continue
		}
		if wrongOwnerCode == CodeUndefined || t.exempt.Contains(ty) {
			return Verdict{Status: Valid}
		}
		skip := t.emit(ctx, SeverityError, ty, h, wrongOwnerCode,
			"Object %v was not created, allocated or retrieved from the correct %v.", h, o.scope)
		return Verdict{Status: WrongOwner, Skip: skip}
	}
	skip := t.emit(ctx, SeverityError, ty, h, invalidCode, "Invalid %v Object %v.", ty, h)
	return Verdict{Status: Unknown, Skip: skip}
}

// validateOwnerObject validates an instance or device handle. Owners are not
// stored in any registry, so the handle is valid iff it names a live owner.
func (t *Tracker) validateOwnerObject(ctx context.Context, ty objtype.Type, h Handle, invalidCode string) Verdict {
	set := t.devices
	if ty == objtype.Instance {
		set = t.instances
	}
	if _, ok := set[h]; ok {
		return Verdict{Status: Valid}
	}
	skip := t.emit(ctx, SeverityError, ty, h, invalidCode, "Invalid %v Object %v.", ty, h)
	return Verdict{Status: Unknown, Skip: skip}
}

// ownerFor returns the owner whose registry holds objects of type ty for
// calls dispatched through d. Instance level objects used through a device
// live in the device's instance.
func (t *Tracker) ownerFor(d Dispatchable, ty objtype.Type) *owner {
	o := t.resolve(d)
	if o == nil {
		return nil
	}
	switch {
	case ty.InstanceLevel() && o.scope == DeviceScope:
		return t.instances[o.parent]
	case !ty.InstanceLevel() && o.scope == InstanceScope:
		return nil
	}
	return o
}
