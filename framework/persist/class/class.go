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

// Package class holds the static descriptor tables that tell the persist
// engine about Go types: which members a type has, how to read and write
// them, how to construct an instance, and the annotations (visibility,
// exclusion, never-cloned) that shape how instances are saved and cloned.
//
// Descriptors are registered once, normally from package init functions:
//
//	var NodeClass = registry.Global.Add(class.ObjectOf[Node]("app.Node",
//		class.Field("Name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
//		class.Field("Next", func(n *Node) *Node { return n.Next }, func(n *Node, v *Node) { n.Next = v }),
//	))
package class

import (
	"reflect"
	"strings"

	"github.com/graphstore/graphstore/core/data/binary"
)

// Kind is the storage category of a class.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
	Bytes
	TypeValue
	Enum
	Array
	Object
	Interface
)

var kindNames = [...]string{
	"invalid", "bool", "int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64", "float32", "float64",
	"string", "bytes", "type", "enum", "array", "object", "interface",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind?"
}

// Size returns the inline wire width in bytes of a fixed-width kind, or 0.
func (k Kind) Size() int {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// IsValue returns true for kinds written inline when declared directly on a
// member or as an array element: the fixed-width primitives and enums.
func (k Kind) IsValue() bool { return k.Size() > 0 || k == Enum }

// CanReference returns true if instances of the kind can hold references to
// other objects.
func (k Kind) CanReference() bool { return k == Array || k == Object }

// Visibility is the access annotation of a type or member.
type Visibility uint8

const (
	// Default applies no annotation of its own.
	Default Visibility = iota
	// Public is always exported.
	Public
	// Protected is exported by public-only saves, but a protected type still
	// hides its unannotated members.
	Protected
	// Private is never exported by public-only saves.
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "default"
	}
}

// Constructor is a deserializing constructor. Params name the members whose
// values are passed, in order, to Func.
type Constructor struct {
	Params []string
	Func   func(args []interface{}) (interface{}, error)
}

// Class describes one Go type.
type Class struct {
	// Name is the portable identifier of the type, conventionally "pkg.Type".
	Name string
	// Version is appended to Name to form the Identifier, if set.
	Version string
	// Type is the Go type of instances. For objects this is the pointer type.
	Type reflect.Type
	// Kind is the storage category.
	Kind Kind
	// Underlying is the integral kind an enum is stored as.
	Underlying Kind
	// Elem is the element class of an array.
	Elem *Class
	// Members lists the serializable members of an object, in order.
	Members []*Member
	// New constructs an empty instance. Nil if the type is only built
	// through one of Constructors.
	New func() interface{}
	// Constructors are the deserializing constructors of the type.
	Constructors []Constructor
	// Visibility is the type level access annotation.
	Visibility Visibility
	// Unserialized excludes every member declared with this type.
	Unserialized bool
	// NeverClone makes Clone alias instances instead of copying them.
	NeverClone bool

	// Encode writes a fixed-width value inline. Set for primitives and enums.
	Encode func(w binary.Writer, v interface{})
	// Decode reads a fixed-width value written by Encode.
	Decode func(r binary.Reader) interface{}
}

// Identifier returns the versioned identifier "Name@Version".
func (c *Class) Identifier() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + "@" + c.Version
}

func (c *Class) String() string { return c.Identifier() }

// Member returns the member with the given name, or nil.
func (c *Class) Member(name string) *Member {
	for _, m := range c.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// WithVersion sets the version of the class and returns it.
func (c *Class) WithVersion(v string) *Class {
	c.Version = v
	return c
}

// WithVisibility sets the type level access annotation and returns the class.
func (c *Class) WithVisibility(v Visibility) *Class {
	c.Visibility = v
	return c
}

// NotCloned marks the class as aliased by Clone and returns it.
func (c *Class) NotCloned() *Class {
	c.NeverClone = true
	return c
}

// Excluded marks every member declared with this class as unserialized.
func (c *Class) Excluded() *Class {
	c.Unserialized = true
	return c
}

// WithConstructor makes fn the only way to build the type and returns the
// class. The parameter names must match the names of readable members.
func (c *Class) WithConstructor(params []string, fn func(args []interface{}) (interface{}, error)) *Class {
	c.New = nil
	c.Constructors = append(c.Constructors, Constructor{Params: params, Func: fn})
	return c
}

// SplitIdentifier splits "Name@Version" into its parts.
func SplitIdentifier(id string) (name, version string) {
	if i := strings.LastIndex(id, "@"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// BareName strips the version and the package qualifier from an identifier.
func BareName(id string) string {
	name, _ := SplitIdentifier(id)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
