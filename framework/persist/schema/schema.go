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

// Package schema describes the persisted shape of each type recorded in a
// stream. A TypeSchema is built from a class when saving and read back from
// the stream when loading, where it is bound to whatever class the loading
// process has registered under a matching identifier.
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/fault"
	"github.com/graphstore/graphstore/framework/persist/class"
)

const (
	// ErrUnregistered is returned when a member is declared with a type that
	// has no class.
	ErrUnregistered = fault.Const("Type is not registered")
	// ErrDuplicateMember is returned when two members share a serialized name.
	ErrDuplicateMember = fault.Const("Duplicate member name")
)

// Strategy is how instances of a type are created when loading.
type Strategy uint8

const (
	// NoStrategy means instances cannot be created and load as nil.
	NoStrategy Strategy = iota
	// Allocate means an empty instance is created and then populated.
	Allocate
	// Construct means the instance is built by a deserializing constructor
	// from its member values.
	Construct
)

func (s Strategy) String() string {
	switch s {
	case Allocate:
		return "allocate"
	case Construct:
		return "construct"
	default:
		return "none"
	}
}

// Env is used while building a schema to assign indices to the declared
// types of members and elements.
type Env interface {
	// Declare returns the schema index for the Go type t, creating the schema
	// if this is the first time the type is seen.
	Declare(t reflect.Type) (int, error)
	// ClassOf returns the class of t without declaring it.
	ClassOf(t reflect.Type) *class.Class
}

// Options control how schemas are built.
type Options struct {
	Annotator  class.Annotator
	PublicOnly bool
}

func (o Options) annotator() class.Annotator {
	if o.Annotator == nil {
		return class.Declared{}
	}
	return o.Annotator
}

// TypeSchema is the persisted description of one type.
type TypeSchema struct {
	// Name is the versioned identifier of the type.
	Name string
	// Index is the position of the schema in the stream's schema list.
	Index int
	Kind  class.Kind
	// Wire is the kind values are stored as.
	Wire class.Kind
	// Elem is the schema index of the element type of a collection, or -1.
	Elem int

	CanReference bool
	IsCollection bool
	IsPrimitive  bool
	IsEnum       bool
	IsPublic     bool
	IsPrivate    bool
	// HasSubType is set when some member declared with this type held a
	// value of a different runtime type.
	HasSubType bool

	NumObjects int
	DataOffset int64
	DataSize   int64

	Fields     []*FieldSchema
	Properties []*PropertySchema

	// Class is the bound class, nil if the type could not be resolved.
	Class       *class.Class
	Strategy    Strategy
	Constructor *class.Constructor
}

// New returns the schema for c at the given index. Members are added by
// Build.
func New(c *class.Class, index int, annotator class.Annotator) *TypeSchema {
	if annotator == nil {
		annotator = class.Declared{}
	}
	ts := &TypeSchema{
		Name:  c.Identifier(),
		Index: index,
		Elem:  -1,
		Class: c,
	}
	ts.classify(c.Kind, c.Wire())
	switch annotator.Type(c).Visibility {
	case class.Private:
		ts.IsPrivate = true
	default:
		ts.IsPublic = true
	}
	return ts
}

func (ts *TypeSchema) classify(kind, wire class.Kind) {
	ts.Kind = kind
	ts.Wire = wire
	ts.CanReference = kind.CanReference()
	ts.IsCollection = kind == class.Array
	ts.IsEnum = kind == class.Enum
	ts.IsPrimitive = !ts.CanReference && kind != class.Interface
}

// IsValue returns true if values declared with this type are written inline.
func (ts *TypeSchema) IsValue() bool { return ts.Kind.IsValue() }

// Category returns the block group of the type: 0 for primitives, 1 for
// objects and 2 for collections. Blocks are written and eagerly loaded in
// category order.
func (ts *TypeSchema) Category() int {
	switch {
	case ts.IsCollection:
		return 2
	case ts.CanReference || ts.Kind == class.Interface:
		return 1
	default:
		return 0
	}
}

// Members returns the fields followed by the properties.
func (ts *TypeSchema) Members() []*MemberSchema {
	out := make([]*MemberSchema, 0, len(ts.Fields)+len(ts.Properties))
	for _, f := range ts.Fields {
		out = append(out, &f.MemberSchema)
	}
	for _, p := range ts.Properties {
		out = append(out, &p.MemberSchema)
	}
	return out
}

func (ts *TypeSchema) String() string { return fmt.Sprintf("%s#%d", ts.Name, ts.Index) }

// Build adds the members of the bound object class, or the element type of
// a collection, declaring their types through env.
func (ts *TypeSchema) Build(env Env, opts Options) error {
	c := ts.Class
	switch ts.Kind {
	case class.Array:
		elem, err := env.Declare(c.Elem.Type)
		if err != nil {
			return err
		}
		ts.Elem = elem
		return nil
	case class.Object:
	default:
		return nil
	}
	annotator := opts.annotator()
	typeVis := annotator.Type(c).Visibility
	names := map[string]bool{}
	for _, m := range c.Members {
		if m.Const {
			continue
		}
		ann := annotator.Member(c, m)
		if ann.Unserialized {
			continue
		}
		if dc := env.ClassOf(m.Type); dc != nil {
			dann := annotator.Type(dc)
			if dann.Unserialized || (opts.PublicOnly && dann.Visibility == class.Private) {
				continue
			}
		}
		vis := effectiveVisibility(typeVis, ann.Visibility)
		if opts.PublicOnly && vis == class.Private {
			continue
		}
		name := ann.Name
		if name == "" {
			name = m.Name
		}
		if names[name] {
			return errors.Wrapf(ErrDuplicateMember, "%s.%s", ts.Name, name)
		}
		names[name] = true
		index, err := env.Declare(m.Type)
		if err != nil {
			return errors.Wrapf(err, "member %s.%s", ts.Name, name)
		}
		ms := MemberSchema{
			Name:       name,
			TypeIndex:  index,
			Property:   m.Property,
			Visibility: vis,
			Readable:   true,
			Member:     m,
		}
		if m.Property {
			ts.Properties = append(ts.Properties, &PropertySchema{ms})
		} else {
			ts.Fields = append(ts.Fields, &FieldSchema{ms})
		}
	}
	ts.chooseStrategy()
	return nil
}

// effectiveVisibility combines a type and member annotation. An explicit
// public or protected member annotation wins. A private or protected type
// makes its unannotated members private.
func effectiveVisibility(typeVis, memberVis class.Visibility) class.Visibility {
	switch {
	case memberVis == class.Public, memberVis == class.Protected:
		return memberVis
	case memberVis == class.Private:
		return class.Private
	case typeVis == class.Private, typeVis == class.Protected:
		return class.Private
	default:
		return class.Public
	}
}

// chooseStrategy picks how instances are created and marks the members that
// are constructor parameters.
func (ts *TypeSchema) chooseStrategy() {
	c := ts.Class
	ts.Strategy, ts.Constructor = NoStrategy, nil
	members := ts.Members()
	for _, m := range members {
		m.Param = false
	}
	if c == nil {
		return
	}
	if c.New != nil {
		ts.Strategy = Allocate
	} else {
		for i := range c.Constructors {
			ctor := &c.Constructors[i]
			if params := matchParams(ctor, members); params != nil {
				for _, m := range params {
					m.Param = true
				}
				ts.Strategy, ts.Constructor = Construct, ctor
				break
			}
		}
	}
	for _, m := range members {
		m.Writable = m.Readable && m.Member != nil && (m.Member.Set != nil || m.Param)
	}
}

// matchParams returns the readable members matching each constructor
// parameter, compared without case, or nil if any parameter is unmatched.
func matchParams(ctor *class.Constructor, members []*MemberSchema) []*MemberSchema {
	out := make([]*MemberSchema, len(ctor.Params))
	for i, p := range ctor.Params {
		for _, m := range members {
			if m.Readable && strings.EqualFold(m.Name, p) {
				out[i] = m
				break
			}
		}
		if out[i] == nil {
			return nil
		}
	}
	return out
}

// Params returns the members passed to the constructor, in parameter order.
func (ts *TypeSchema) Params() []*MemberSchema {
	if ts.Constructor == nil {
		return nil
	}
	return matchParams(ts.Constructor, ts.Members())
}
