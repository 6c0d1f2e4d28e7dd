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
	"strings"
	"unique"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// decodeFunc reads one variable-width instance.
type decodeFunc func(d Decoder, r binary.Reader, index int) interface{}

// tabled stores variable-width values that are complete after reading, behind
// an offset table.
type tabled struct {
	base
	encode func(e Encoder, w binary.Writer, index int)
	decode decodeFunc
}

func (t *tabled) Save(e Encoder, w io.Writer) error {
	return saveTabled(w, len(t.objects), func(w binary.Writer, i int) { t.encode(e, w, i) })
}

func (t *tabled) Instance(d Decoder, index int) (interface{}, bool, error) {
	if t.states[index] == loaded {
		return t.instances[index], false, nil
	}
	r, err := t.span(index)
	if err != nil {
		return nil, false, err
	}
	v := t.decode(d, r, index)
	if err := r.Error(); err != nil {
		return nil, false, errors.Wrapf(err, "%s instance %d", t.ts.Name, index)
	}
	t.instances[index], t.states[index] = v, loaded
	return v, false, nil
}

// String stores strings. Loaded strings are interned, so equal strings
// share their storage.
type String struct{ tabled }

func newString(ts *schema.TypeSchema) *String {
	s := &String{tabled{base: newBase(ts)}}
	s.encode = func(e Encoder, w binary.Writer, i int) { w.String(s.objects[i].(string)) }
	s.decode = func(d Decoder, r binary.Reader, i int) interface{} { return unique.Make(r.String()).Value() }
	return s
}

// Bytes stores byte slices.
type Bytes struct{ tabled }

func newBytes(ts *schema.TypeSchema) *Bytes {
	b := &Bytes{tabled{base: newBase(ts)}}
	b.encode = func(e Encoder, w binary.Writer, i int) {
		data := b.objects[i].([]byte)
		w.Count(uint32(len(data)))
		w.Data(data)
	}
	b.decode = func(d Decoder, r binary.Reader, i int) interface{} {
		n := r.Count()
		if int64(n) > b.size() {
			r.SetError(errors.Wrapf(ErrBlock, "%s: %d bytes in a block of %d", b.ts.Name, n, b.size()))
			return nil
		}
		data := make([]byte, n)
		r.Data(data)
		return data
	}
	return b
}

// pointerPrefix marks a stored type value that is the element of a
// registered pointer type.
const pointerPrefix = "*"

// TypeValue stores reflect.Type values by the identifier of their class.
type TypeValue struct{ tabled }

func newTypeValue(ts *schema.TypeSchema) *TypeValue {
	t := &TypeValue{tabled{base: newBase(ts)}}
	t.encode = func(e Encoder, w binary.Writer, i int) {
		ty := t.objects[i].(reflect.Type)
		if c := e.ClassOf(ty); c != nil {
			w.String(c.Identifier())
			return
		}
		if c := e.ClassOf(reflect.PointerTo(ty)); c != nil {
			w.String(pointerPrefix + c.Identifier())
			return
		}
		e.Fail(t.ts, "", i, errors.Errorf("type %v is not registered", ty))
		w.String("")
	}
	t.decode = func(d Decoder, r binary.Reader, i int) interface{} {
		id := r.String()
		if id == "" {
			return nil
		}
		elem := strings.HasPrefix(id, pointerPrefix)
		c := d.Resolve(strings.TrimPrefix(id, pointerPrefix))
		if c == nil {
			log.W(d.Context(), "Type value %s could not be resolved", id)
			return nil
		}
		if elem {
			return c.Type.Elem()
		}
		return c.Type
	}
	return t
}

// Unknown stands in for a type that could not be resolved. Its instances
// load as nil.
type Unknown struct{ base }

func (u *Unknown) Save(e Encoder, w io.Writer) error {
	if len(u.objects) > 0 {
		return errors.Errorf("cannot save instances of unresolved type %s", u.ts.Name)
	}
	return nil
}

func (u *Unknown) Instance(d Decoder, index int) (interface{}, bool, error) {
	return nil, false, nil
}

func (u *Unknown) Loaded(index int) bool { return true }
