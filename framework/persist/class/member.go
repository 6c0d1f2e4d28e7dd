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

package class

import "reflect"

// Member describes one field or property of an object class.
type Member struct {
	// Name is the serialized name of the member.
	Name string
	// Type is the statically declared Go type of the member's value.
	Type reflect.Type
	// Get returns the member's value from an instance of the owning class.
	Get func(obj interface{}) interface{}
	// Set assigns a value to the member. Nil for read-only properties.
	// Set is given nil for a null reference.
	Set func(obj, value interface{})
	// Property is true for accessor based members.
	Property bool
	// Const marks a compile-time constant. Constants are never serialized.
	Const bool
	// Unserialized excludes the member.
	Unserialized bool
	// Visibility is the member level access annotation.
	Visibility Visibility
}

func typeOf[V any]() reflect.Type { return reflect.TypeOf((*V)(nil)).Elem() }

func setter[T, V any](set func(*T, V)) func(obj, value interface{}) {
	if set == nil {
		return nil
	}
	return func(obj, value interface{}) {
		if value == nil {
			var zero V
			set(obj.(*T), zero)
			return
		}
		set(obj.(*T), value.(V))
	}
}

func getter[T, V any](get func(*T) V) func(obj interface{}) interface{} {
	return func(obj interface{}) interface{} { return get(obj.(*T)) }
}

// Field returns a field member of the object type *T holding a V.
func Field[T, V any](name string, get func(*T) V, set func(*T, V)) *Member {
	return &Member{
		Name: name,
		Type: typeOf[V](),
		Get:  getter(get),
		Set:  setter(set),
	}
}

// Property returns an accessor member of the object type *T holding a V.
// A nil set makes the property read-only; it can then only be restored
// through a deserializing constructor.
func Property[T, V any](name string, get func(*T) V, set func(*T, V)) *Member {
	m := Field(name, get, set)
	m.Property = true
	return m
}

// Constant returns a read-only member holding a constant. Constants are
// described but never serialized.
func Constant[T, V any](name string, get func(*T) V) *Member {
	m := Property[T, V](name, get, nil)
	m.Const = true
	return m
}

// Private marks the member private and returns it.
func (m *Member) Private() *Member {
	m.Visibility = Private
	return m
}

// Public marks the member public and returns it.
func (m *Member) Public() *Member {
	m.Visibility = Public
	return m
}

// Protected marks the member protected and returns it.
func (m *Member) Protected() *Member {
	m.Visibility = Protected
	return m
}

// Excluded marks the member unserialized and returns it.
func (m *Member) Excluded() *Member {
	m.Unserialized = true
	return m
}

// Writable returns true if the member has a setter.
func (m *Member) Writable() bool { return m.Set != nil }
