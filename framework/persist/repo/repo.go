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

// Package repo holds the per-type instance stores used while saving and
// loading. Each Repo owns the instances of one TypeSchema: it deduplicates
// and numbers them when saving, and allocates, caches and populates them
// from its data block when loading.
package repo

import (
	"bytes"
	"context"
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/fault"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// Order is the byte order of every persisted value.
const Order = endian.LittleEndian

// The tags that prefix a value held by reference.
const (
	TagNull    = 0
	TagBase    = 1
	TagDerived = 2
)

const (
	// ErrBlock is returned when a data block is malformed.
	ErrBlock = fault.Const("Malformed data block")
	// ErrConstructorCycle is returned when an object built by a constructor
	// is reachable from its own constructor arguments.
	ErrConstructorCycle = fault.Const("Constructor cycle")
	// ErrMismatch is returned when a loaded value cannot be assigned.
	ErrMismatch = fault.Const("Value type mismatch")
	// ErrNotSaved is returned when a value was not recorded while saving.
	ErrNotSaved = fault.Const("Value was not recorded")
)

// Encoder is the saving side of the serializer, as seen by a Repo.
type Encoder interface {
	// Schema returns the schema at index.
	Schema(index int) *schema.TypeSchema
	// ClassOf returns the class of a Go type.
	ClassOf(t reflect.Type) *class.Class
	// Reach records v, held by a member or element declared as declared.
	Reach(declared *schema.TypeSchema, v interface{})
	// WriteValue writes v as declared. A nil v writes a null reference or a
	// zero value. It returns ErrNotSaved, having written nothing, if v is a
	// reference that was not recorded.
	WriteValue(w binary.Writer, declared *schema.TypeSchema, v interface{}) error
	// Fail records that a member of an instance could not be saved.
	Fail(ts *schema.TypeSchema, member string, index int, cause error)
}

// Decoder is the loading side of the serializer, as seen by a Repo.
type Decoder interface {
	// Context returns the context of the load, used for logging.
	Context() context.Context
	// Schema returns the schema at index.
	Schema(index int) *schema.TypeSchema
	// Resolve returns the class for a stored identifier, or nil.
	Resolve(id string) *class.Class
	// ReadValue reads a value written by Encoder.WriteValue.
	ReadValue(r binary.Reader, declared *schema.TypeSchema) interface{}
	// SkipValue reads past a value written by Encoder.WriteValue.
	SkipValue(r binary.Reader, declared *schema.TypeSchema)
	// Fail records that a member of an instance could not be loaded.
	Fail(ts *schema.TypeSchema, member string, index int, cause error)
}

// Repo stores the instances of one type.
type Repo interface {
	// Schema returns the type the repo stores.
	Schema() *schema.TypeSchema
	// Count returns the number of instances added.
	Count() int
	// Add adds obj if it was not already present, returning its index and
	// whether it was added.
	Add(obj interface{}) (index int, added bool)
	// Lookup returns the index of a previously added obj.
	Lookup(obj interface{}) (index int, found bool)
	// Children reaches each value held by the instance at index.
	Children(e Encoder, index int)
	// Save writes the data block of the repo.
	Save(e Encoder, w io.Writer) error
	// Bind attaches the data block the repo loads instances from.
	Bind(block *io.SectionReader)
	// Instance returns the instance at index, creating it if needed. pending
	// is true if the instance was newly allocated and must be passed to Load.
	Instance(d Decoder, index int) (obj interface{}, pending bool, err error)
	// Loaded returns true if the instance at index is fully populated.
	Loaded(index int) bool
	// Load populates an instance returned as pending by Instance.
	Load(d Decoder, index int) error
}

// Preloader is implemented by repos that can read their block in one go
// ahead of parsing individual instances.
type Preloader interface {
	Preload(d Decoder) error
}

// Sized is implemented by repos of collections.
type Sized interface {
	// Length returns the number of elements of the instance at index.
	Length(index int) int
}

// New returns the repo for ts. Types without a bound class get an Unknown
// repo.
func New(ts *schema.TypeSchema) Repo {
	if ts.Class == nil {
		return &Unknown{base: newBase(ts)}
	}
	switch ts.Kind {
	case class.String:
		return newString(ts)
	case class.Bytes:
		return newBytes(ts)
	case class.TypeValue:
		return newTypeValue(ts)
	case class.Enum:
		return newEnum(ts)
	case class.Array:
		return newArray(ts)
	case class.Object:
		return newObject(ts)
	case class.Interface:
		return &Unknown{base: newBase(ts)}
	default:
		return newPrimitive(ts)
	}
}

type state uint8

const (
	empty state = iota
	allocated
	constructing
	loaded
)

// base holds what every repo shares: the identity table used when saving
// and the instance cache and data block used when loading.
type base struct {
	ts      *schema.TypeSchema
	objects []interface{}
	index   map[interface{}]int

	block     *io.SectionReader
	data      []byte
	offsets   []int64
	instances []interface{}
	states    []state
}

func newBase(ts *schema.TypeSchema) base {
	return base{ts: ts, index: map[interface{}]int{}}
}

func (b *base) Schema() *schema.TypeSchema { return b.ts }

func (b *base) Count() int { return len(b.objects) }

func (b *base) Add(obj interface{}) (int, bool) {
	key := class.Identity(obj)
	if i, found := b.index[key]; found {
		return i, false
	}
	i := len(b.objects)
	b.objects = append(b.objects, obj)
	b.index[key] = i
	return i, true
}

func (b *base) Lookup(obj interface{}) (int, bool) {
	i, found := b.index[class.Identity(obj)]
	return i, found
}

func (b *base) Children(e Encoder, index int) {}

func (b *base) Bind(block *io.SectionReader) {
	n := b.ts.NumObjects
	b.block = block
	b.instances = make([]interface{}, n)
	b.states = make([]state, n)
}

func (b *base) Loaded(index int) bool { return b.states[index] == loaded }

func (b *base) Load(d Decoder, index int) error { return nil }

// Preload reads the whole data block into memory.
func (b *base) Preload(d Decoder) error {
	if b.data != nil || b.block == nil {
		return nil
	}
	data := make([]byte, b.block.Size())
	if _, err := b.block.ReadAt(data, 0); err != nil && err != io.EOF {
		return errors.Wrapf(err, "preloading %s", b.ts.Name)
	}
	b.data = data
	return nil
}

func (b *base) size() int64 {
	if b.block == nil {
		return 0
	}
	return b.block.Size()
}

// reader returns a reader over n bytes of the block starting at off.
func (b *base) reader(off, n int64) (binary.Reader, error) {
	if off < 0 || n < 0 || off+n > b.size() {
		return nil, errors.Wrapf(ErrBlock, "%s: range [%d, %d) outside block of %d bytes", b.ts.Name, off, off+n, b.size())
	}
	if b.data != nil {
		return endian.Reader(bytes.NewReader(b.data[off:off+n]), Order), nil
	}
	return endian.Reader(io.NewSectionReader(b.block, off, n), Order), nil
}

// span returns a reader over the bytes of instance index in a block that
// starts with an offset table.
func (b *base) span(index int) (binary.Reader, error) {
	if b.offsets == nil {
		if err := b.readOffsets(); err != nil {
			return nil, err
		}
	}
	start, end := b.offsets[index], b.size()
	if index+1 < len(b.offsets) {
		end = b.offsets[index+1]
	}
	return b.reader(start, end-start)
}

func (b *base) readOffsets() error {
	n := b.ts.NumObjects
	table := int64(n) * 4
	r, err := b.reader(0, table)
	if err != nil {
		return err
	}
	offsets := make([]int64, n)
	prev := table
	for i := range offsets {
		off := int64(r.Int32())
		if off < prev || off > b.size() {
			return errors.Wrapf(ErrBlock, "%s: offset %d of instance %d out of order", b.ts.Name, off, i)
		}
		offsets[i], prev = off, off
	}
	if err := r.Error(); err != nil {
		return err
	}
	b.offsets = offsets
	return nil
}

// saveTabled writes an offset table for count instances followed by the
// instance data produced by write.
func saveTabled(w io.Writer, count int, write func(w binary.Writer, index int)) error {
	body := &bytes.Buffer{}
	bw := endian.Writer(body, Order)
	offsets := make([]int32, count)
	table := 4 * count
	for i := range offsets {
		offsets[i] = int32(table + body.Len())
		write(bw, i)
	}
	if err := bw.Error(); err != nil {
		return err
	}
	out := endian.Writer(w, Order)
	for _, off := range offsets {
		out.Int32(off)
	}
	out.Data(body.Bytes())
	return out.Error()
}

// Protect calls f, converting a panic into an error.
func Protect(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e := fault.From(r); e != fault.InvalidErrorType {
				err = errors.Wrap(e, "panic")
			} else {
				err = errors.Errorf("panic: %v", r)
			}
		}
	}()
	f()
	return nil
}

// Assign stores v in dst, a settable value, returning ErrMismatch if v has
// the wrong type. Nil stores the zero value.
func Assign(dst reflect.Value, v interface{}) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if !src.Type().AssignableTo(dst.Type()) {
		return errors.Wrapf(ErrMismatch, "%v is not assignable to %v", src.Type(), dst.Type())
	}
	dst.Set(src)
	return nil
}
