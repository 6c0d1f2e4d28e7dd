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

package endian_test

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/log"
)

type readWriteTest struct {
	Name   string
	Values interface{}
	Data   []byte
}

var littleEndianTests = []readWriteTest{
	{"Bool", []bool{true, false}, []byte{1, 0}},
	{"Int8", []int8{0, 127, -128, -1}, []byte{0x00, 0x7f, 0x80, 0xff}},
	{"Uint16", []uint16{0, 0xbeef}, []byte{0x00, 0x00, 0xef, 0xbe}},
	{"Int32", []int32{-1, 2}, []byte{0xff, 0xff, 0xff, 0xff, 0x02, 0x00, 0x00, 0x00}},
	{"Uint64", []uint64{0x0102030405060708}, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}},
	{"Float32", []float32{1}, []byte{0x00, 0x00, 0x80, 0x3f}},
	{"Float64", []float64{-2}, []byte{0, 0, 0, 0, 0, 0, 0x00, 0xc0}},
	{"String", []string{"", "hi"}, []byte{0, 0, 0, 0, 2, 0, 0, 0, 'h', 'i'}},
}

// readWrite writes every value of each test with the method of the test's
// name, checks the bytes, and reads them back with the matching method.
func readWrite(t *testing.T, order endian.Order, tests []readWriteTest) {
	ctx := log.Testing(t)
	for _, e := range tests {
		ctx := log.V{"name": e.Name}.Bind(ctx)
		b := &bytes.Buffer{}
		reader, writer := endian.Reader(b, order), endian.Writer(b, order)
		r := reflect.ValueOf(reader).MethodByName(e.Name)
		w := reflect.ValueOf(writer).MethodByName(e.Name)
		s := reflect.ValueOf(e.Values)
		for i := 0; i < s.Len(); i++ {
			w.Call([]reflect.Value{s.Index(i)})
		}
		assert.For(ctx, "written").ThatSlice(b.Bytes()).Equals(e.Data)
		for i := 0; i < s.Len(); i++ {
			ctx := log.V{"index": i}.Bind(ctx)
			got := r.Call(nil)[0]
			assert.For(ctx, "read err").ThatError(reader.Error()).Succeeded()
			assert.For(ctx, "read").That(got.Interface()).Equals(s.Index(i).Interface())
		}
	}
}

func TestLittleEndian(t *testing.T) {
	readWrite(t, endian.LittleEndian, littleEndianTests)
}

func TestBigEndian(t *testing.T) {
	readWrite(t, endian.BigEndian, []readWriteTest{
		{"Uint16", []uint16{0xbeef}, []byte{0xbe, 0xef}},
		{"Int32", []int32{2}, []byte{0x00, 0x00, 0x00, 0x02}},
	})
}

func TestShortRead(t *testing.T) {
	ctx := log.Testing(t)
	r := endian.Reader(bytes.NewReader([]byte{1, 2}), endian.LittleEndian)
	assert.For(ctx, "value").That(r.Uint32()).Equals(uint32(0))
	assert.For(ctx, "err").ThatError(r.Error()).Equals(io.ErrUnexpectedEOF)
	assert.For(ctx, "sticky").That(r.Uint8()).Equals(uint8(0))
}

type limitedWriter struct{ limit int }

func (w *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, io.ErrShortWrite
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestShortWrite(t *testing.T) {
	ctx := log.Testing(t)
	w := endian.Writer(&limitedWriter{limit: 3}, endian.LittleEndian)
	w.Uint16(1)
	assert.For(ctx, "first").ThatError(w.Error()).Succeeded()
	w.Uint32(2)
	assert.For(ctx, "second").ThatError(w.Error()).Equals(io.ErrShortWrite)
}
