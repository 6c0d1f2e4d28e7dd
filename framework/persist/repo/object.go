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

package repo

import (
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// Object stores instances of object classes. Each instance is the sequence
// of its readable member values, in schema order.
type Object struct {
	base
	members []*schema.MemberSchema
	params  map[*schema.MemberSchema]int
	// values holds the member values read from each saved instance.
	values [][]interface{}
}

func newObject(ts *schema.TypeSchema) *Object {
	o := &Object{base: newBase(ts), members: ts.Members()}
	if params := ts.Params(); params != nil {
		o.params = make(map[*schema.MemberSchema]int, len(params))
		for i, m := range params {
			o.params[m] = i
		}
	}
	return o
}

func get(m *schema.MemberSchema, obj interface{}) (v interface{}, err error) {
	err = Protect(func() { v = m.Member.Get(obj) })
	return v, err
}

func set(m *schema.MemberSchema, obj, v interface{}) error {
	if v != nil && !reflect.TypeOf(v).AssignableTo(m.Member.Type) {
		return errors.Wrapf(ErrMismatch, "%T is not assignable to %v", v, m.Member.Type)
	}
	return Protect(func() { m.Member.Set(obj, v) })
}

// snapshot reads the readable members of the instance at index once. The
// same values are reached during discovery and written by Save, so getters
// that build a new value on each call still refer to what was recorded.
func (o *Object) snapshot(e Encoder, index int) []interface{} {
	if index < len(o.values) && o.values[index] != nil {
		return o.values[index]
	}
	obj := o.objects[index]
	values := make([]interface{}, len(o.members))
	for i, m := range o.members {
		if !m.Readable {
			continue
		}
		v, err := get(m, obj)
		if err != nil {
			e.Fail(o.ts, m.Name, index, err)
			continue
		}
		values[i] = v
	}
	for len(o.values) <= index {
		o.values = append(o.values, nil)
	}
	o.values[index] = values
	return values
}

func (o *Object) Children(e Encoder, index int) {
	values := o.snapshot(e, index)
	for i, m := range o.members {
		if !m.Readable {
			continue
		}
		if declared := e.Schema(m.TypeIndex); !declared.IsValue() {
			e.Reach(declared, values[i])
		}
	}
}

func (o *Object) Save(e Encoder, w io.Writer) error {
	return saveTabled(w, len(o.objects), func(w binary.Writer, index int) {
		values := o.snapshot(e, index)
		for i, m := range o.members {
			if !m.Readable {
				continue
			}
			declared := e.Schema(m.TypeIndex)
			var err error
			if perr := Protect(func() { err = e.WriteValue(w, declared, values[i]) }); perr != nil {
				err = perr
			}
			if err != nil {
				e.Fail(o.ts, m.Name, index, err)
				e.WriteValue(w, declared, nil)
			}
		}
	})
}

func (o *Object) Instance(d Decoder, index int) (interface{}, bool, error) {
	switch o.states[index] {
	case allocated, loaded:
		return o.instances[index], false, nil
	case constructing:
		d.Fail(o.ts, "", index, errors.Wrapf(ErrConstructorCycle, "%s instance %d", o.ts.Name, index))
		return nil, false, nil
	}
	switch o.ts.Strategy {
	case schema.Allocate:
		obj := o.ts.Class.New()
		o.instances[index], o.states[index] = obj, allocated
		return obj, true, nil
	case schema.Construct:
		obj, err := o.construct(d, index)
		return obj, false, err
	default:
		o.states[index] = loaded
		return nil, false, nil
	}
}

// construct reads every member of the instance, builds it with the
// deserializing constructor and then assigns the members that were not
// constructor parameters.
func (o *Object) construct(d Decoder, index int) (interface{}, error) {
	o.states[index] = constructing
	r, err := o.span(index)
	if err != nil {
		return nil, err
	}
	values, err := o.read(d, r, index)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(o.params))
	for m, i := range o.params {
		args[i] = values[m]
	}
	var obj interface{}
	if perr := Protect(func() { obj, err = o.ts.Constructor.Func(args) }); perr != nil {
		err = perr
	}
	if err != nil {
		d.Fail(o.ts, "", index, err)
		obj = nil
	}
	if obj != nil {
		for _, m := range o.members {
			if _, param := o.params[m]; m.Readable && !param {
				if err := set(m, obj, values[m]); err != nil {
					d.Fail(o.ts, m.Name, index, err)
				}
			}
		}
	}
	o.instances[index], o.states[index] = obj, loaded
	return obj, nil
}

func (o *Object) read(d Decoder, r binary.Reader, index int) (map[*schema.MemberSchema]interface{}, error) {
	values := make(map[*schema.MemberSchema]interface{}, len(o.members))
	for _, m := range o.members {
		declared := d.Schema(m.TypeIndex)
		if !m.Readable {
			d.SkipValue(r, declared)
		} else {
			values[m] = d.ReadValue(r, declared)
		}
		if err := r.Error(); err != nil {
			return nil, errors.Wrapf(err, "%s instance %d member %s", o.ts.Name, index, m.Name)
		}
	}
	return values, nil
}

func (o *Object) Load(d Decoder, index int) error {
	if o.states[index] != allocated {
		return nil
	}
	r, err := o.span(index)
	if err != nil {
		return err
	}
	values, err := o.read(d, r, index)
	if err != nil {
		return err
	}
	obj := o.instances[index]
	for _, m := range o.members {
		if !m.Readable {
			continue
		}
		if err := set(m, obj, values[m]); err != nil {
			d.Fail(o.ts, m.Name, index, err)
		}
	}
	o.states[index] = loaded
	return nil
}
