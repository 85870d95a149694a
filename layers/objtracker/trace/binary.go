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
	"bytes"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/vulkan/objtype"
	"github.com/google/vklifetime/layers/objtracker"
)

const (
	// ErrBadMagic is returned when the data does not start with Magic.
	ErrBadMagic = fault.Const("not a binary trace")
	// ErrVersion is returned for a binary trace of an unsupported version.
	ErrVersion = fault.Const("unsupported binary trace version")
)

// Magic starts every binary trace.
const Magic = "VKLT"

// Version is the binary format version written by Encode.
const Version = 1

// Field numbers of the trace message.
const (
	traceName protowire.Number = 1
	traceCmd  protowire.Number = 2
)

// Field numbers of the command message.
const (
	cmdOp protowire.Number = iota + 1
	cmdOwner
	cmdVia
	cmdType
	cmdHandle
	cmdParent
	cmdCustomAllocator
	cmdNullAllowed
	cmdSecondary
	cmdEntry
	cmdCode
)

// Encode returns the binary form of t: Magic, the version as a varint, then
// t as a protobuf message with one length-delimited record per command.
func Encode(t *Trace) []byte {
	b := []byte(Magic)
	b = protowire.AppendVarint(b, Version)
	if t.Name != "" {
		b = protowire.AppendTag(b, traceName, protowire.BytesType)
		b = protowire.AppendString(b, t.Name)
	}
	for i := range t.Cmds {
		b = protowire.AppendTag(b, traceCmd, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeCmd(&t.Cmds[i]))
	}
	return b
}

func encodeCmd(c *Cmd) []byte {
	var b []byte
	varint := func(n protowire.Number, v uint64) {
		if v != 0 {
			b = protowire.AppendTag(b, n, protowire.VarintType)
			b = protowire.AppendVarint(b, v)
		}
	}
	varint(cmdOp, uint64(c.Op))
	varint(cmdOwner, uint64(c.Owner))
	varint(cmdVia, uint64(c.Via))
	varint(cmdType, uint64(c.Type))
	varint(cmdHandle, uint64(c.Handle))
	varint(cmdParent, uint64(c.Parent))
	varint(cmdCustomAllocator, protowire.EncodeBool(c.CustomAllocator))
	varint(cmdNullAllowed, protowire.EncodeBool(c.NullAllowed))
	varint(cmdSecondary, protowire.EncodeBool(c.Secondary))
	if c.Entry != "" {
		b = protowire.AppendTag(b, cmdEntry, protowire.BytesType)
		b = protowire.AppendString(b, c.Entry)
	}
	for _, code := range c.Codes {
		b = protowire.AppendTag(b, cmdCode, protowire.BytesType)
		b = protowire.AppendString(b, code)
	}
	return b
}

// Decode parses the binary form of a trace. Unknown fields are skipped.
func Decode(data []byte) (*Trace, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, ErrBadMagic
	}
	data = data[len(Magic):]
	version, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, errors.Wrap(protowire.ParseError(n), "reading version")
	}
	if version != Version {
		return nil, errors.Wrapf(ErrVersion, "version %d", version)
	}
	data = data[n:]

	t := &Trace{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "reading trace")
		}
		data = data[n:]
		switch {
		case num == traceName && typ == protowire.BytesType:
			t.Name, n = protowire.ConsumeString(data)
		case num == traceCmd && typ == protowire.BytesType:
			var rec []byte
			rec, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				c, err := decodeCmd(rec)
				if err != nil {
					return nil, errors.Wrapf(err, "command %d", len(t.Cmds))
				}
				t.Cmds = append(t.Cmds, c)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "reading trace")
		}
		data = data[n:]
	}
	return t, nil
}

func decodeCmd(data []byte) (Cmd, error) {
	c := Cmd{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Cmd{}, protowire.ParseError(n)
		}
		data = data[n:]
		if typ == protowire.VarintType {
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			switch num {
			case cmdOp:
				c.Op = Op(v)
			case cmdOwner:
				c.Owner = objtracker.Handle(v)
			case cmdVia:
				c.Via = Via(v)
			case cmdType:
				c.Type = objtype.Type(v)
			case cmdHandle:
				c.Handle = objtracker.Handle(v)
			case cmdParent:
				c.Parent = objtracker.Handle(v)
			case cmdCustomAllocator:
				c.CustomAllocator = protowire.DecodeBool(v)
			case cmdNullAllowed:
				c.NullAllowed = protowire.DecodeBool(v)
			case cmdSecondary:
				c.Secondary = protowire.DecodeBool(v)
			}
		} else if typ == protowire.BytesType && (num == cmdEntry || num == cmdCode) {
			var s string
			s, n = protowire.ConsumeString(data)
			if num == cmdEntry {
				c.Entry = s
			} else {
				c.Codes = append(c.Codes, s)
			}
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return Cmd{}, protowire.ParseError(n)
		}
		data = data[n:]
	}
	if c.Op == OpInvalid || c.Op >= opCount {
		return Cmd{}, errors.Errorf("invalid op %d", uint32(c.Op))
	}
	if c.Type >= objtype.Count || c.Via >= viaCount {
		return Cmd{}, errors.Errorf("invalid %v command", c.Op)
	}
	return c, nil
}
