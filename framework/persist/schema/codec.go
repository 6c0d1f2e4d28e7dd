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
	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/core/fault"
	"github.com/graphstore/graphstore/framework/persist/class"
)

// ErrSchema is returned when a stored schema is malformed.
const ErrSchema = fault.Const("Malformed type schema")

const (
	typeCanReference = 1 << iota
	typeCollection
	typePrimitive
	typeEnum
	typePublic
	typePrivate
	typeSubType
)

const noElem = 0xffff

// Save writes the schema. The encoding of a schema has the same size no
// matter the values of NumObjects, DataOffset, DataSize and HasSubType, so
// a written schema can be overwritten in place once they are known.
func (ts *TypeSchema) Save(w binary.Writer) {
	w.String(ts.Name)
	w.Uint8(uint8(ts.Kind))
	w.Uint8(uint8(ts.Wire))
	if ts.Elem < 0 {
		w.Uint16(noElem)
	} else {
		w.Uint16(uint16(ts.Elem))
	}
	w.Uint8(ts.flags())
	w.Int32(int32(ts.NumObjects))
	w.Int64(ts.DataOffset)
	w.Int64(ts.DataSize)
	w.Uint16(uint16(len(ts.Fields)))
	for _, f := range ts.Fields {
		f.save(w)
	}
	w.Uint16(uint16(len(ts.Properties)))
	for _, p := range ts.Properties {
		p.save(w)
	}
}

func (m *MemberSchema) save(w binary.Writer) {
	w.String(m.Name)
	w.Uint16(uint16(m.TypeIndex))
	w.Uint8(m.flags())
}

func (ts *TypeSchema) flags() uint8 {
	var f uint8
	set := func(b bool, bit uint8) {
		if b {
			f |= bit
		}
	}
	set(ts.CanReference, typeCanReference)
	set(ts.IsCollection, typeCollection)
	set(ts.IsPrimitive, typePrimitive)
	set(ts.IsEnum, typeEnum)
	set(ts.IsPublic, typePublic)
	set(ts.IsPrivate, typePrivate)
	set(ts.HasSubType, typeSubType)
	return f
}

// Load reads a schema written by Save. Member type indices are checked
// against count, the number of schemas in the stream.
func Load(r binary.Reader, index, count int) (*TypeSchema, error) {
	ts := &TypeSchema{Index: index, Name: r.String()}
	kind, wire := class.Kind(r.Uint8()), class.Kind(r.Uint8())
	ts.classify(kind, wire)
	if elem := r.Uint16(); elem == noElem {
		ts.Elem = -1
	} else {
		ts.Elem = int(elem)
	}
	f := r.Uint8()
	ts.IsPublic = f&typePublic != 0
	ts.IsPrivate = f&typePrivate != 0
	ts.HasSubType = f&typeSubType != 0
	ts.NumObjects = int(r.Int32())
	ts.DataOffset = r.Int64()
	ts.DataSize = r.Int64()
	for i, n := 0, int(r.Uint16()); i < n && r.Error() == nil; i++ {
		ts.Fields = append(ts.Fields, &FieldSchema{loadMember(r)})
	}
	for i, n := 0, int(r.Uint16()); i < n && r.Error() == nil; i++ {
		ts.Properties = append(ts.Properties, &PropertySchema{loadMember(r)})
	}
	if err := r.Error(); err != nil {
		return nil, err
	}
	switch {
	case kind == class.Invalid || kind > class.Interface:
		return nil, errors.Wrapf(ErrSchema, "%s has kind %d", ts.Name, kind)
	case ts.NumObjects < 0 || ts.DataOffset < 0 || ts.DataSize < 0:
		return nil, errors.Wrapf(ErrSchema, "%s has a negative size", ts.Name)
	case ts.IsCollection && (ts.Elem < 0 || ts.Elem >= count):
		return nil, errors.Wrapf(ErrSchema, "%s has element type %d", ts.Name, ts.Elem)
	}
	for _, m := range ts.Members() {
		if m.TypeIndex >= count {
			return nil, errors.Wrapf(ErrSchema, "%s.%s has type %d", ts.Name, m.Name, m.TypeIndex)
		}
	}
	return ts, nil
}

func loadMember(r binary.Reader) MemberSchema {
	m := MemberSchema{Name: r.String(), TypeIndex: int(r.Uint16())}
	m.setFlags(r.Uint8())
	return m
}
