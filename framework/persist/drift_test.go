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

package persist_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist"
	"github.com/graphstore/graphstore/framework/persist/test"
)

func TestDrift(t *testing.T) {
	recorder := &log.Recorder{}
	ctx := log.PutHandler(context.Background(), recorder)
	assert := assert.To(t)
	tag := &test.Tag{Key: "k"}
	root := &test.Node{
		Name:   "drift",
		Tag:    tag,
		Tags:   []*test.Tag{tag},
		Weight: 1.5,
		Count:  4,
		Point:  test.NewPoint(1, 2),
		Widget: &test.Widget{Size: 8, Label: "renamed"},
		Colour: test.Green,
		Extra:  &test.Tag{Key: "boxed"},
	}
	data, err := persist.Save(ctx, root, config())
	assert.For("save").ThatError(err).Succeeded()

	v, err := persist.Load(ctx, data, persist.Config{Namespace: test.Drifted()})
	assert.For("load").ThatError(err).Succeeded()
	got := v.(*test.Node)
	assert.For("name").ThatString(got.Name).Equals("drift")
	assert.For("missing type").That(got.Tag).IsNil()
	assert.For("missing elements").That(got.Tags).IsNil()
	assert.For("missing boxed type").That(got.Extra).IsNil()
	assert.For("removed member").That(got.Weight).Equals(0.0)
	assert.For("changed member").That(got.Count).Equals(int32(0))
	assert.For("renamed type").That(got.Widget).DeepEquals(&test.Widget{Size: 8, Label: "renamed"})
	assert.For("new version").That(got.Point.X()).Equals(int32(1))
	assert.For("enum").That(got.Colour).Equals(test.Green)
	assert.For("warnings").ThatInteger(recorder.Count(log.Warning)).IsAtLeast(3)
	assert.For("no errors").ThatInteger(recorder.Count(log.Error)).Equals(0)
}

// corruptions are applied to a valid stream to check each integrity error.
var corruptions = []struct {
	name   string
	mutate func(data []byte) []byte
	cause  error
}{
	{"version", func(d []byte) []byte { d[0] = 9; return d }, persist.ErrVersion},
	{"truncated", func(d []byte) []byte { return d[:len(d)-1] }, persist.ErrLength},
	{"short", func(d []byte) []byte { return d[:3] }, persist.ErrLength},
	{"magic", func(d []byte) []byte {
		d[magicAt(d)] ^= 0xff
		return d
	}, persist.ErrMagic},
	{"type header", func(d []byte) []byte {
		at := magicAt(d) + 4 + 2
		binary.LittleEndian.PutUint32(d[at:], 77)
		return d
	}, persist.ErrTypeHeader},
}

func magicAt(data []byte) int {
	magic := make([]byte, 4)
	binary.LittleEndian.PutUint32(magic, persist.Magic)
	return bytes.Index(data, magic)
}

func TestCorruptStreams(t *testing.T) {
	assert := assert.To(t)
	data, err := persist.Save(context.Background(), sample(), config())
	assert.For("save").ThatError(err).Succeeded()
	for _, c := range corruptions {
		recorder := &log.Recorder{}
		ctx := log.PutHandler(context.Background(), recorder)
		mutated := c.mutate(append([]byte{}, data...))
		v, err := persist.Load(ctx, mutated, config())
		assert.For("%s root", c.name).That(v).IsNil()
		assert.For("%s error", c.name).ThatError(err).HasCause(c.cause)
		assert.For("%s logged", c.name).ThatInteger(recorder.Count(log.Error)).Equals(1)
	}
}
