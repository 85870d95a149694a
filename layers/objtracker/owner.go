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
	"sort"

	"github.com/google/vklifetime/core/vulkan/objtype"
)

// Scope separates instance owners from device owners. The two never share a
// registry or an owner set.
type Scope uint8

const (
	InstanceScope Scope = iota
	DeviceScope
)

func (s Scope) String() string {
	if s == InstanceScope {
		return "instance"
	}
	return "device"
}

// ownerType returns the object type of owners in scope s.
func (s Scope) ownerType() objtype.Type {
	if s == InstanceScope {
		return objtype.Instance
	}
	return objtype.Device
}

// owner is the per-instance or per-device tracking state.
type owner struct {
	scope  Scope
	handle Handle
	mode   AllocMode
	// parent is the instance of a device owner.
	parent  Handle
	objects *registry
	// aliases maps type -> derived handle -> backing handle. Aliased handles
	// resolve as live but are never counted.
	aliases map[objtype.Type]map[Handle]Handle
}

func newOwner(scope Scope, h Handle, mode AllocMode, parent Handle) *owner {
	return &owner{
		scope:   scope,
		handle:  h,
		mode:    mode,
		parent:  parent,
		objects: newRegistry(),
		aliases: map[objtype.Type]map[Handle]Handle{},
	}
}

// has returns true if h is live under o as type t, either as a record or as
// an alias.
func (o *owner) has(t objtype.Type, h Handle) bool {
	return o.objects.contains(t, h) || o.hasAlias(t, h)
}

func (o *owner) hasAlias(t objtype.Type, h Handle) bool {
	_, ok := o.aliases[t][h]
	return ok
}

func (o *owner) addAlias(t objtype.Type, h, backing Handle) {
	m, ok := o.aliases[t]
	if !ok {
		m = map[Handle]Handle{}
		o.aliases[t] = m
	}
	m[h] = backing
}

// dropAliases removes every alias of type t backed by backing.
func (o *owner) dropAliases(t objtype.Type, backing Handle) {
	for h, b := range o.aliases[t] {
		if b == backing {
			delete(o.aliases[t], h)
		}
	}
}

func (o *owner) checkConsistency() error { return o.objects.checkConsistency() }

// ownerSet is the set of live owners of one scope.
type ownerSet map[Handle]*owner

// others returns every owner in the set except skip, in handle order.
func (s ownerSet) others(skip *owner) []*owner {
	out := make([]*owner, 0, len(s))
	for _, o := range s {
		if o != skip {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}
