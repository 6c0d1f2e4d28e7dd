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
	"fmt"
	"reflect"

	"github.com/graphstore/graphstore/core/data/binary"
)

// ObjectOf returns the class of the object type *T with the given members.
// Instances are created with new(T).
func ObjectOf[T any](name string, members ...*Member) *Class {
	return &Class{
		Name:    name,
		Type:    typeOf[*T](),
		Kind:    Object,
		Members: members,
		New:     func() interface{} { return new(T) },
	}
}

// InterfaceOf returns the class of the interface type I. Interface classes have
// no instances of their own; members declared with them always record the
// runtime type of their value.
func InterfaceOf[I any](name string) *Class {
	t := typeOf[I]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Errorf("%v is not an interface type", t))
	}
	return &Class{Name: name, Type: t, Kind: Interface}
}

// ArrayOf returns a new array class holding elements of elem.
func ArrayOf(elem *Class) *Class {
	return &Class{
		Name:       "[]" + elem.Name,
		Version:    elem.Version,
		Type:       reflect.SliceOf(elem.Type),
		Kind:       Array,
		Elem:       elem,
		Visibility: elem.Visibility,
	}
}

// Integer is the set of types an enum can be declared over.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

var integralKinds = map[reflect.Kind]Kind{
	reflect.Int8:   Int8,
	reflect.Int16:  Int16,
	reflect.Int32:  Int32,
	reflect.Int64:  Int64,
	reflect.Int:    Int64,
	reflect.Uint8:  Uint8,
	reflect.Uint16: Uint16,
	reflect.Uint32: Uint32,
	reflect.Uint64: Uint64,
	reflect.Uint:   Uint64,
}

// EnumOf returns the class of the integral enum type T.
func EnumOf[T Integer](name string) *Class {
	t := typeOf[T]()
	underlying := integralKinds[t.Kind()]
	bits := int32(underlying.Size() * 8)
	c := &Class{Name: name, Type: t, Kind: Enum, Underlying: underlying}
	switch underlying {
	case Int8, Int16, Int32, Int64:
		c.Encode = func(w binary.Writer, v interface{}) { binary.WriteInt(w, bits, int64(v.(T))) }
		c.Decode = func(r binary.Reader) interface{} { return T(binary.ReadInt(r, bits)) }
	default:
		c.Encode = func(w binary.Writer, v interface{}) { binary.WriteUint(w, bits, uint64(v.(T))) }
		c.Decode = func(r binary.Reader) interface{} { return T(binary.ReadUint(r, bits)) }
	}
	return c
}

// Wire returns the kind a value of the class is stored as, which is the
// underlying integral kind for enums.
func (c *Class) Wire() Kind {
	if c.Kind == Enum {
		return c.Underlying
	}
	return c.Kind
}

func primitive[T any](name string, kind Kind, enc func(binary.Writer, T), dec func(binary.Reader) T) *Class {
	return &Class{
		Name:   name,
		Type:   typeOf[T](),
		Kind:   kind,
		Encode: func(w binary.Writer, v interface{}) { enc(w, v.(T)) },
		Decode: func(r binary.Reader) interface{} { return dec(r) },
	}
}

// The built-in classes.
var (
	BoolClass    = primitive("bool", Bool, binary.Writer.Bool, binary.Reader.Bool)
	Int8Class    = primitive("int8", Int8, binary.Writer.Int8, binary.Reader.Int8)
	Int16Class   = primitive("int16", Int16, binary.Writer.Int16, binary.Reader.Int16)
	Int32Class   = primitive("int32", Int32, binary.Writer.Int32, binary.Reader.Int32)
	Int64Class   = primitive("int64", Int64, binary.Writer.Int64, binary.Reader.Int64)
	Uint8Class   = primitive("uint8", Uint8, binary.Writer.Uint8, binary.Reader.Uint8)
	Uint16Class  = primitive("uint16", Uint16, binary.Writer.Uint16, binary.Reader.Uint16)
	Uint32Class  = primitive("uint32", Uint32, binary.Writer.Uint32, binary.Reader.Uint32)
	Uint64Class  = primitive("uint64", Uint64, binary.Writer.Uint64, binary.Reader.Uint64)
	Float32Class = primitive("float32", Float32, binary.Writer.Float32, binary.Reader.Float32)
	Float64Class = primitive("float64", Float64, binary.Writer.Float64, binary.Reader.Float64)

	IntClass = primitive("int", Int64,
		func(w binary.Writer, v int) { w.Int64(int64(v)) },
		func(r binary.Reader) int { return int(r.Int64()) })
	UintClass = primitive("uint", Uint64,
		func(w binary.Writer, v uint) { w.Uint64(uint64(v)) },
		func(r binary.Reader) uint { return uint(r.Uint64()) })

	StringClass = &Class{Name: "string", Type: typeOf[string](), Kind: String}
	BytesClass  = &Class{Name: "bytes", Type: typeOf[[]byte](), Kind: Bytes}
	TypeClass   = &Class{Name: "type", Type: typeOf[reflect.Type](), Kind: TypeValue}
	AnyClass    = &Class{Name: "any", Type: typeOf[interface{}](), Kind: Interface}
)

// Builtins lists the built-in classes.
var Builtins = []*Class{
	BoolClass,
	Int8Class, Int16Class, Int32Class, Int64Class,
	Uint8Class, Uint16Class, Uint32Class, Uint64Class,
	Float32Class, Float64Class,
	IntClass, UintClass,
	StringClass, BytesClass, TypeClass, AnyClass,
}
