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
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

func block(data []byte) *io.SectionReader {
	return io.NewSectionReader(bytes.NewReader(data), 0, int64(len(data)))
}

func TestStrings(t *testing.T) {
	ctx := log.Testing(t)
	save := New(schema.New(class.StringClass, 0, nil))
	for i, s := range []string{"a", "bb", "a", ""} {
		index, added := save.Add(s)
		assert.For(ctx, "add %d", i).ThatBoolean(added == (s != "a" || i == 0)).IsTrue()
		if s == "a" {
			assert.For(ctx, "index %d", i).ThatInteger(index).Equals(0)
		}
	}
	assert.For(ctx, "count").ThatInteger(save.Count()).Equals(3)
	buf := &bytes.Buffer{}
	assert.For(ctx, "save").ThatError(save.Save(nil, buf)).Succeeded()

	ts := schema.New(class.StringClass, 0, nil)
	ts.NumObjects = 3
	load := New(ts)
	load.Bind(block(buf.Bytes()))
	for i, expect := range []string{"a", "bb", ""} {
		v, pending, err := load.Instance(nil, i)
		assert.For(ctx, "load %d", i).ThatError(err).Succeeded()
		assert.For(ctx, "pending %d", i).ThatBoolean(pending).IsFalse()
		assert.For(ctx, "value %d", i).That(v).Equals(expect)
		assert.For(ctx, "loaded %d", i).ThatBoolean(load.Loaded(i)).IsTrue()
	}
}

func TestMalformedOffsets(t *testing.T) {
	ctx := log.Testing(t)
	for _, test := range []struct {
		name    string
		offsets []int32
	}{
		{"backwards", []int32{8, 4}},
		{"inside table", []int32{2, 8}},
		{"past end", []int32{8, 100}},
	} {
		buf := &bytes.Buffer{}
		w := endian.Writer(buf, Order)
		for _, off := range test.offsets {
			w.Int32(off)
		}
		ts := schema.New(class.StringClass, 0, nil)
		ts.NumObjects = len(test.offsets)
		rp := New(ts)
		rp.Bind(block(buf.Bytes()))
		_, _, err := rp.Instance(nil, 0)
		assert.For(ctx, test.name).ThatError(err).HasCause(ErrBlock)
	}
}

func TestFixed(t *testing.T) {
	ctx := log.Testing(t)
	save := New(schema.New(class.Int32Class, 0, nil))
	save.Add(int32(-4))
	save.Add(int32(9))
	_, added := save.Add(int32(-4))
	assert.For(ctx, "dedupe").ThatBoolean(added).IsFalse()
	buf := &bytes.Buffer{}
	assert.For(ctx, "save").ThatError(save.Save(nil, buf)).Succeeded()
	assert.For(ctx, "packed").ThatInteger(buf.Len()).Equals(8)

	ts := schema.New(class.Int32Class, 0, nil)
	ts.NumObjects = 2
	load := New(ts)
	load.Bind(block(buf.Bytes()))
	assert.For(ctx, "preload").ThatError(load.(Preloader).Preload(nil)).Succeeded()
	v, _, err := load.Instance(nil, 1)
	assert.For(ctx, "instance").ThatError(err).Succeeded()
	assert.For(ctx, "value").That(v).Equals(int32(9))

	ts.NumObjects = 3
	short := New(ts)
	short.Bind(block(buf.Bytes()))
	assert.For(ctx, "short").ThatError(short.(Preloader).Preload(nil)).HasCause(ErrBlock)
}

func TestProtect(t *testing.T) {
	ctx := log.Testing(t)
	cause := errors.New("boom")
	assert.For(ctx, "no panic").ThatError(Protect(func() {})).Succeeded()
	assert.For(ctx, "error").ThatError(Protect(func() { panic(cause) })).HasCause(cause)
	assert.For(ctx, "value").ThatError(Protect(func() { panic(42) })).HasMessage("panic: 42")
}

func TestAssign(t *testing.T) {
	ctx := log.Testing(t)
	var s []string
	dst := reflect.ValueOf(&s).Elem()
	assert.For(ctx, "assign").ThatError(Assign(dst, []string{"x"})).Succeeded()
	assert.For(ctx, "value").ThatSlice(s).Equals([]string{"x"})
	assert.For(ctx, "nil").ThatError(Assign(dst, nil)).Succeeded()
	assert.For(ctx, "zero").That(s).IsNil()
	assert.For(ctx, "mismatch").ThatError(Assign(dst, 3)).HasCause(ErrMismatch)
}
