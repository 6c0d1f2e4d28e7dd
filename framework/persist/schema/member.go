// Copyright (C) 2017 Google Inc.
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

package schema

import "github.com/graphstore/graphstore/framework/persist/class"

// MemberSchema is the persisted description of one member.
type MemberSchema struct {
	// Name is the serialized member name.
	Name string
	// TypeIndex is the schema index of the member's declared type.
	TypeIndex  int
	Property   bool
	Visibility class.Visibility
	// Readable is true if the member's value is transferred: read from the
	// object when saving, or decoded and applied when loading. Unreadable
	// members are skipped.
	Readable bool
	// Writable is true if a loaded value can be assigned to the member.
	Writable bool
	// Param is true if the value is passed to the deserializing constructor.
	Param bool
	// Member is the bound class member, nil if the member no longer exists.
	Member *class.Member
}

// IsPublic returns true if the member is exported by public-only saves.
func (m *MemberSchema) IsPublic() bool { return m.Visibility != class.Private }

// FieldSchema is a MemberSchema for a plain field.
type FieldSchema struct{ MemberSchema }

// PropertySchema is a MemberSchema for an accessor based member.
type PropertySchema struct{ MemberSchema }

const (
	memberProperty = 1 << iota
	memberPublic
	memberPrivate
	memberWritable
	memberParam
)

func (m *MemberSchema) flags() uint8 {
	var f uint8
	if m.Property {
		f |= memberProperty
	}
	switch m.Visibility {
	case class.Public, class.Protected:
		f |= memberPublic
	case class.Private:
		f |= memberPrivate
	}
	if m.Writable {
		f |= memberWritable
	}
	if m.Param {
		f |= memberParam
	}
	return f
}

func (m *MemberSchema) setFlags(f uint8) {
	m.Property = f&memberProperty != 0
	switch {
	case f&memberPrivate != 0:
		m.Visibility = class.Private
	case f&memberPublic != 0:
		m.Visibility = class.Public
	}
	m.Writable = f&memberWritable != 0
	m.Param = f&memberParam != 0
}
