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

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/registry"
)

// Resolver maps stored type identifiers to registered classes. An identifier
// is matched exactly, then by name with the version ignored, then by the
// bare type name with the package qualifier removed. Results, including
// misses, are cached.
type Resolver struct {
	ns    *registry.Namespace
	tiers []func(id string) *class.Class
	cache map[string]*class.Class
}

// NewResolver returns a Resolver that looks classes up in ns.
func NewResolver(ns *registry.Namespace) *Resolver {
	unversioned := func(id string) *class.Class {
		name, _ := class.SplitIdentifier(id)
		return ns.LookupName(name)
	}
	bare := func(id string) *class.Class { return ns.LookupBare(class.BareName(id)) }
	return &Resolver{
		ns:    ns,
		tiers: []func(string) *class.Class{ns.Lookup, unversioned, bare},
		cache: map[string]*class.Class{},
	}
}

// Resolve returns the class for id, or nil.
func (r *Resolver) Resolve(id string) *class.Class {
	if c, found := r.cache[id]; found {
		return c
	}
	var c *class.Class
	if elem := strings.TrimPrefix(id, "[]"); elem != id {
		if e := r.Resolve(elem); e != nil {
			c = r.ns.ClassOf(reflect.SliceOf(e.Type))
		}
	} else {
		for _, tier := range r.tiers {
			if c = tier(id); c != nil {
				break
			}
		}
	}
	r.cache[id] = c
	return c
}

// ResolveType binds the schema to the class registered for its name. It
// returns false, leaving Class nil, if no class matches or if the matching
// class stores its values differently.
func (ts *TypeSchema) ResolveType(r *Resolver) bool {
	c := r.Resolve(ts.Name)
	if c != nil && (c.Kind != ts.Kind || c.Wire() != ts.Wire) {
		c = nil
	}
	ts.Class = c
	return c != nil
}

// Bind matches the stored members against the members of the bound class
// and decides which stored values will be applied. It returns a description
// of each member that will be skipped.
func (ts *TypeSchema) Bind(schemas []*TypeSchema, annotator class.Annotator) []string {
	if annotator == nil {
		annotator = class.Declared{}
	}
	if ts.Class == nil {
		return nil
	}
	switch ts.Kind {
	case class.Array:
		elem := schemas[ts.Elem]
		if elem.IsValue() && (elem.Class == nil || elem.Class.Type != ts.Class.Elem.Type) {
			ts.Class = nil
			return []string{fmt.Sprintf("%s changed element type", ts.Name)}
		}
		ts.Strategy = Allocate
		return nil
	case class.Object:
	default:
		return nil
	}
	byName := map[string]*class.Member{}
	for _, m := range ts.Class.Members {
		name := annotator.Member(ts.Class, m).Name
		if name == "" {
			name = m.Name
		}
		byName[name] = m
	}
	var skipped []string
	skip := func(m *MemberSchema, why string) {
		skipped = append(skipped, fmt.Sprintf("%s.%s %s", ts.Name, m.Name, why))
	}
	for _, m := range ts.Members() {
		m.Member, m.Readable = nil, false
		cm := byName[m.Name]
		switch {
		case cm == nil:
			skip(m, "was removed")
		case cm.Const || annotator.Member(ts.Class, cm).Unserialized || unserialized(schemas[m.TypeIndex], annotator):
			skip(m, "is no longer serialized")
		case !compatible(schemas[m.TypeIndex], cm.Type):
			skip(m, "changed type")
		default:
			m.Member, m.Readable = cm, true
		}
	}
	ts.chooseStrategy()
	for _, m := range ts.Members() {
		if m.Readable && !m.Writable {
			m.Readable = false
			skip(m, "cannot be assigned")
		}
	}
	if ts.Strategy == NoStrategy {
		skipped = append(skipped, fmt.Sprintf("%s cannot be created", ts.Name))
	}
	return skipped
}

func unserialized(declared *TypeSchema, annotator class.Annotator) bool {
	return declared.Class != nil && annotator.Type(declared.Class).Unserialized
}

// compatible returns true if values stored with the declared schema can be
// assigned to a member of type t. Values stored by reference are also
// accepted when t is narrower; each value is then checked as it is loaded.
func compatible(declared *TypeSchema, t reflect.Type) bool {
	if declared.Class == nil {
		return false
	}
	dt := declared.Class.Type
	if declared.IsValue() {
		return dt == t
	}
	return dt.AssignableTo(t) || t.AssignableTo(dt)
}

// Find returns the schema with the given identifier or name, or nil.
func Find(schemas []*TypeSchema, name string) *TypeSchema {
	for _, ts := range schemas {
		if n, _ := class.SplitIdentifier(ts.Name); ts.Name == name || n == name {
			return ts
		}
	}
	return nil
}
