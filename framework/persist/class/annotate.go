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

import (
	"math"
	"reflect"
	"unsafe"
)

// TypeAnnotations are the annotations that change how a type is persisted.
type TypeAnnotations struct {
	Visibility   Visibility
	Unserialized bool
	NeverClone   bool
}

// MemberAnnotations are the annotations that change how a member is persisted.
type MemberAnnotations struct {
	// Name overrides the serialized name of the member when not empty.
	Name         string
	Visibility   Visibility
	Unserialized bool
}

// Annotator provides the annotations for types and members. Annotators let
// a host substitute its own annotation source for the descriptor fields.
type Annotator interface {
	Type(c *Class) TypeAnnotations
	Member(c *Class, m *Member) MemberAnnotations
}

// Declared is the Annotator that reads the annotations straight from the
// class descriptors.
type Declared struct{}

func (Declared) Type(c *Class) TypeAnnotations {
	return TypeAnnotations{
		Visibility:   c.Visibility,
		Unserialized: c.Unserialized,
		NeverClone:   c.NeverClone,
	}
}

func (Declared) Member(c *Class, m *Member) MemberAnnotations {
	return MemberAnnotations{
		Name:         m.Name,
		Visibility:   m.Visibility,
		Unserialized: m.Unserialized,
	}
}

type sliceKey struct {
	t reflect.Type
	p unsafe.Pointer
	n int
}

// floatKey identifies a floating point value by its bits, so that NaN
// matches itself.
type floatKey struct {
	t    reflect.Type
	bits uint64
}

// Identity returns the key under which v is deduplicated. Pointers are keyed
// by address, slices by their data pointer, length and type, floats by their
// bits and everything else by value.
func Identity(v interface{}) interface{} {
	r := reflect.ValueOf(v)
	switch r.Kind() {
	case reflect.Slice:
		return sliceKey{r.Type(), r.UnsafePointer(), r.Len()}
	case reflect.Float32:
		return floatKey{r.Type(), uint64(math.Float32bits(float32(r.Float())))}
	case reflect.Float64:
		return floatKey{r.Type(), math.Float64bits(r.Float())}
	}
	return v
}

// IsNil returns true for nil and for typed nil pointers, slices and
// interfaces.
func IsNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func:
		return r.IsNil()
	}
	return false
}
