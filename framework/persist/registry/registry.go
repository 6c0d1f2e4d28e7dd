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

// Package registry maps type identifiers and Go types to their class
// descriptors.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/graphstore/graphstore/framework/persist/class"
)

const arrayPrefix = "[]"

var rtypeType = reflect.TypeOf((*reflect.Type)(nil)).Elem()

// Namespace represents a mapping of type identifiers to their Class.
type Namespace struct {
	fallbacks []*Namespace
	mutex     sync.RWMutex
	classes   map[string]*class.Class
	types     map[reflect.Type]*class.Class
	aliases   map[string]string
	derived   map[reflect.Type]*class.Class
}

var (
	// Builtins holds the built-in primitive classes.
	Builtins = NewNamespace()
	// Global is the default global Namespace object.
	Global = NewNamespace(Builtins)
)

func init() {
	for _, c := range class.Builtins {
		Builtins.Add(c)
	}
}

// NewNamespace creates a new namespace layered on top of the specified fallbacks.
func NewNamespace(fallbacks ...*Namespace) *Namespace {
	return &Namespace{
		fallbacks: fallbacks,
		classes:   map[string]*class.Class{},
		types:     map[reflect.Type]*class.Class{},
		aliases:   map[string]string{},
		derived:   map[reflect.Type]*class.Class{},
	}
}

// Add a new class to the Namespace, returning it.
func (n *Namespace) Add(c *class.Class) *class.Class {
	if c == nil {
		panic(fmt.Errorf("Attempt to add nil class to registry"))
	}
	if c.Type == nil {
		panic(fmt.Errorf("Class %s has no type", c.Name))
	}
	n.mutex.Lock()
	defer n.mutex.Unlock()
	id := c.Identifier()
	if _, found := n.classes[id]; found {
		panic(fmt.Errorf("Class for %s already present", id))
	}
	if _, found := n.types[c.Type]; found {
		panic(fmt.Errorf("Class for type %v already present", c.Type))
	}
	n.classes[id] = c
	n.types[c.Type] = c
	return c
}

// AddAlias adds an identifier alias which will be used if the type with
// identifier from cannot be found.
func (n *Namespace) AddAlias(to, from string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.aliases[from] = to
}

// AddFallbacks appends new Namespaces to the fallback list of this Namespace.
func (n *Namespace) AddFallbacks(fallbacks ...*Namespace) {
	n.fallbacks = append(n.fallbacks, fallbacks...)
}

// Lookup looks up a Class by its exact identifier in the Namespace, then by
// any alias registered for the identifier.
// If there is no match, it will return nil.
func (n *Namespace) Lookup(id string) *class.Class {
	if strings.HasPrefix(id, arrayPrefix) {
		if elem := n.Lookup(id[len(arrayPrefix):]); elem != nil {
			return n.arrayOf(elem)
		}
		return nil
	}
	seen := map[string]bool{}
	for !seen[id] {
		seen[id] = true
		if c := n.find(func(ns *Namespace) *class.Class {
			ns.mutex.RLock()
			defer ns.mutex.RUnlock()
			return ns.classes[id]
		}); c != nil {
			return c
		}
		alias := n.alias(id)
		if alias == "" {
			break
		}
		id = alias
	}
	return nil
}

func (n *Namespace) alias(id string) string {
	n.mutex.RLock()
	to, ok := n.aliases[id]
	n.mutex.RUnlock()
	if ok {
		return to
	}
	for _, f := range n.fallbacks {
		if to := f.alias(id); to != "" {
			return to
		}
	}
	return ""
}

// LookupName looks up a Class by its name ignoring the version.
func (n *Namespace) LookupName(name string) *class.Class {
	return n.match(func(c *class.Class) bool { return c.Name == name })
}

// LookupBare looks up a Class whose name without package qualifier matches
// bare.
func (n *Namespace) LookupBare(bare string) *class.Class {
	return n.match(func(c *class.Class) bool { return class.BareName(c.Name) == bare })
}

func (n *Namespace) match(pred func(*class.Class) bool) *class.Class {
	return n.find(func(ns *Namespace) *class.Class {
		var found *class.Class
		ns.VisitDirect(func(c *class.Class) {
			if found == nil && pred(c) {
				found = c
			}
		})
		return found
	})
}

// find applies f to this namespace and then to each fallback in order.
func (n *Namespace) find(f func(*Namespace) *class.Class) *class.Class {
	if c := f(n); c != nil {
		return c
	}
	for _, fb := range n.fallbacks {
		if c := fb.find(f); c != nil {
			return c
		}
	}
	return nil
}

func (n *Namespace) registered(t reflect.Type) *class.Class {
	return n.find(func(ns *Namespace) *class.Class {
		ns.mutex.RLock()
		defer ns.mutex.RUnlock()
		return ns.types[t]
	})
}

// ClassOf returns the class for the Go type t. Slices of a known element
// type and interface types are derived on demand. Returns nil if t has no
// class.
func (n *Namespace) ClassOf(t reflect.Type) *class.Class {
	if t == nil {
		return nil
	}
	if c := n.registered(t); c != nil {
		return c
	}
	n.mutex.RLock()
	c, found := n.derived[t]
	n.mutex.RUnlock()
	if found {
		return c
	}
	switch {
	case t.Kind() == reflect.Slice:
		if elem := n.ClassOf(t.Elem()); elem != nil {
			return n.arrayOf(elem)
		}
		return nil
	case t.Kind() == reflect.Interface:
		c = &class.Class{Name: t.String(), Type: t, Kind: class.Interface}
	case t.Implements(rtypeType):
		return class.TypeClass
	default:
		return nil
	}
	return n.memo(t, c)
}

// ClassOfValue returns the class of the dynamic type of v.
func (n *Namespace) ClassOfValue(v interface{}) *class.Class {
	if v == nil {
		return nil
	}
	return n.ClassOf(reflect.TypeOf(v))
}

func (n *Namespace) arrayOf(elem *class.Class) *class.Class {
	t := reflect.SliceOf(elem.Type)
	if c := n.registered(t); c != nil {
		return c
	}
	n.mutex.RLock()
	c, found := n.derived[t]
	n.mutex.RUnlock()
	if found {
		return c
	}
	return n.memo(t, class.ArrayOf(elem))
}

func (n *Namespace) memo(t reflect.Type, c *class.Class) *class.Class {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if existing, found := n.derived[t]; found {
		return existing
	}
	n.derived[t] = c
	return c
}

// Count returns the number of entries reachable through this namespace.
// Because it sums the counts of the namespaces it depends on, this may be
// more than the number of unique keys.
func (n *Namespace) Count() int {
	n.mutex.RLock()
	size := len(n.classes)
	n.mutex.RUnlock()
	for _, f := range n.fallbacks {
		size += f.Count()
	}
	return size
}

// Visit invokes the visitor for every class object reachable through this
// namespace.
// The visitor maybe be called with the same id more than once if it is present
// in multiple namespaces.
func (n *Namespace) Visit(visitor func(*class.Class)) {
	n.VisitDirect(visitor)
	for _, f := range n.fallbacks {
		f.Visit(visitor)
	}
}

// VisitDirect invokes the visitor for every class object directly in this namespace.
func (n *Namespace) VisitDirect(visitor func(*class.Class)) {
	n.mutex.RLock()
	list := make([]*class.Class, 0, len(n.classes))
	for _, c := range n.classes {
		list = append(list, c)
	}
	n.mutex.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Identifier() < list[j].Identifier() })
	for _, c := range list {
		visitor(c)
	}
}
