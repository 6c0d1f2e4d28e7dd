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

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// fixed stores fixed-width values back to back without an offset table.
type fixed struct {
	base
	width int64
}

func newFixed(ts *schema.TypeSchema) fixed {
	return fixed{base: newBase(ts), width: int64(ts.Wire.Size())}
}

func (f *fixed) Save(e Encoder, w io.Writer) error {
	out := endian.Writer(w, Order)
	for _, v := range f.objects {
		f.ts.Class.Encode(out, v)
	}
	return out.Error()
}

func (f *fixed) Instance(d Decoder, index int) (interface{}, bool, error) {
	if f.states[index] == loaded {
		return f.instances[index], false, nil
	}
	r, err := f.reader(int64(index)*f.width, f.width)
	if err != nil {
		return nil, false, err
	}
	v := f.ts.Class.Decode(r)
	if err := r.Error(); err != nil {
		return nil, false, errors.Wrapf(err, "%s instance %d", f.ts.Name, index)
	}
	f.instances[index], f.states[index] = v, loaded
	return v, false, nil
}

// Preload reads and decodes every value in the block.
func (f *fixed) Preload(d Decoder) error {
	if err := f.base.Preload(d); err != nil {
		return err
	}
	if int64(len(f.states))*f.width > f.size() {
		return errors.Wrapf(ErrBlock, "%s: %d values do not fit in %d bytes", f.ts.Name, len(f.states), f.size())
	}
	for i := range f.states {
		if _, _, err := f.Instance(d, i); err != nil {
			return err
		}
	}
	return nil
}

// Primitive stores boxed bool, integer and floating point values.
type Primitive struct{ fixed }

func newPrimitive(ts *schema.TypeSchema) *Primitive { return &Primitive{newFixed(ts)} }

// Enum stores boxed enum values as their underlying integers.
type Enum struct{ fixed }

func newEnum(ts *schema.TypeSchema) *Enum { return &Enum{newFixed(ts)} }
