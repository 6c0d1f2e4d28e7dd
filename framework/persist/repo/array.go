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
	"fmt"
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// Array stores slices. Each instance is a count followed by its elements.
type Array struct{ base }

func newArray(ts *schema.TypeSchema) *Array { return &Array{newBase(ts)} }

func (a *Array) Length(index int) int { return reflect.ValueOf(a.objects[index]).Len() }

func (a *Array) Children(e Encoder, index int) {
	elem := e.Schema(a.ts.Elem)
	if elem.IsValue() {
		return
	}
	s := reflect.ValueOf(a.objects[index])
	for i, n := 0, s.Len(); i < n; i++ {
		e.Reach(elem, s.Index(i).Interface())
	}
}

func (a *Array) Save(e Encoder, w io.Writer) error {
	elem := e.Schema(a.ts.Elem)
	return saveTabled(w, len(a.objects), func(w binary.Writer, index int) {
		s := reflect.ValueOf(a.objects[index])
		n := s.Len()
		w.Count(uint32(n))
		for i := 0; i < n; i++ {
			if err := e.WriteValue(w, elem, s.Index(i).Interface()); err != nil {
				e.Fail(a.ts, fmt.Sprintf("[%d]", i), index, err)
				e.WriteValue(w, elem, nil)
			}
		}
	})
}

func (a *Array) Instance(d Decoder, index int) (interface{}, bool, error) {
	if a.states[index] != empty {
		return a.instances[index], false, nil
	}
	r, err := a.span(index)
	if err != nil {
		return nil, false, err
	}
	n := int(r.Count())
	if err := r.Error(); err != nil {
		return nil, false, errors.Wrapf(err, "%s instance %d", a.ts.Name, index)
	}
	if int64(n) > a.size() {
		return nil, false, errors.Wrapf(ErrBlock, "%s: %d elements in a block of %d bytes", a.ts.Name, n, a.size())
	}
	obj := reflect.MakeSlice(a.ts.Class.Type, n, n).Interface()
	a.instances[index] = obj
	if n == 0 {
		a.states[index] = loaded
		return obj, false, nil
	}
	a.states[index] = allocated
	return obj, true, nil
}

func (a *Array) Load(d Decoder, index int) error {
	if a.states[index] != allocated {
		return nil
	}
	r, err := a.span(index)
	if err != nil {
		return err
	}
	n := int(r.Count())
	s := reflect.ValueOf(a.instances[index])
	elem := d.Schema(a.ts.Elem)
	for i := 0; i < n && i < s.Len(); i++ {
		v := d.ReadValue(r, elem)
		if err := r.Error(); err != nil {
			return errors.Wrapf(err, "%s instance %d", a.ts.Name, index)
		}
		if err := Assign(s.Index(i), v); err != nil {
			d.Fail(a.ts, fmt.Sprintf("[%d]", i), index, err)
		}
	}
	a.states[index] = loaded
	return nil
}
