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
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist"
	"github.com/graphstore/graphstore/framework/persist/test"
)

type closingReader struct {
	*bytes.Reader
	closed bool
}

func (r *closingReader) Close() error {
	r.closed = true
	return nil
}

func sample() *test.Node {
	tag := &test.Tag{Key: "colour", Value: "blue"}
	child := &test.Node{Name: "child", Tag: tag}
	root := &test.Node{Name: "root", Tag: tag, Children: []*test.Node{child}, Shape: &test.Square{S: 3}}
	child.Self = root
	return root
}

func TestLazyLoad(t *testing.T) {
	ctx := log.Testing(t)
	data, err := persist.Save(ctx, sample(), config())
	assert.For(ctx, "save").ThatError(err).Succeeded()
	for _, preload := range []bool{false, true} {
		cfg := config()
		cfg.Preload = preload
		s, err := persist.Open(ctx, bytes.NewReader(data), int64(len(data)), cfg)
		assert.For(ctx, "open").ThatError(err).Succeeded()

		tags := s.Type("test.Tag")
		assert.For(ctx, "tag type").That(tags).IsNotNil()
		assert.For(ctx, "tag count").ThatInteger(tags.NumObjects).Equals(1)
		tag, err := s.LoadObject(ctx, tags, 0)
		assert.For(ctx, "load tag").ThatError(err).Succeeded()
		assert.For(ctx, "tag").That(tag).DeepEquals(&test.Tag{Key: "colour", Value: "blue"})
		again, _ := s.LoadObject(ctx, tags, 0)
		assert.For(ctx, "idempotent").ThatBoolean(again == tag).IsTrue()

		v, err := s.Root(ctx)
		assert.For(ctx, "root").ThatError(err).Succeeded()
		root := v.(*test.Node)
		assert.For(ctx, "root tag").ThatBoolean(root.Tag == tag).IsTrue()
		assert.For(ctx, "child").ThatString(root.Children[0].Name).Equals("child")
		assert.For(ctx, "cycle").ThatBoolean(root.Children[0].Self == root).IsTrue()
		assert.For(ctx, "shared").ThatBoolean(root.Children[0].Tag == tag).IsTrue()
		nodes := s.Type("test.Node")
		first, _ := s.LoadObject(ctx, nodes, 0)
		assert.For(ctx, "root is first node").ThatBoolean(first == v).IsTrue()
		assert.For(ctx, "close").ThatError(s.Close()).Succeeded()
	}
}

func TestSessionTypes(t *testing.T) {
	ctx := log.Testing(t)
	data, _ := persist.Save(ctx, sample(), config())
	s, err := persist.Open(ctx, bytes.NewReader(data), int64(len(data)), config())
	assert.For(ctx, "open").ThatError(err).Succeeded()
	defer s.Close()
	assert.For(ctx, "name").ThatString(s.Header().Name).Equals("test")
	assert.For(ctx, "length").That(s.Header().Length).Equals(int64(len(data)))
	assert.For(ctx, "root type").ThatString(s.Types()[0].Name).Equals("test.Node")
	assert.For(ctx, "nodes").ThatInteger(s.Type("test.Node").NumObjects).Equals(2)
	assert.For(ctx, "shape subtype").ThatBoolean(s.Type("test.Shape").HasSubType).IsTrue()
	assert.For(ctx, "tag no subtype").ThatBoolean(s.Type("test.Tag").HasSubType).IsFalse()
	assert.For(ctx, "missing").That(s.Type("test.Ledger")).IsNil()
	quiet := log.PutHandler(context.Background(), &log.Recorder{})
	_, err = s.LoadObject(quiet, s.Type("test.Tag"), 5)
	assert.For(ctx, "out of range").ThatError(err).HasCause(persist.ErrBadReference)
}

func TestSessionClose(t *testing.T) {
	ctx := log.Testing(t)
	data, _ := persist.Save(ctx, sample(), config())
	r := &closingReader{Reader: bytes.NewReader(data)}
	s, err := persist.Open(ctx, r, int64(len(data)), config())
	assert.For(ctx, "open").ThatError(err).Succeeded()
	assert.For(ctx, "close").ThatError(s.Close()).Succeeded()
	assert.For(ctx, "closed reader").ThatBoolean(r.closed).IsTrue()
	_, err = s.Root(ctx)
	assert.For(ctx, "after close").ThatError(err).Equals(persist.ErrClosed)
}

func TestLoadAll(t *testing.T) {
	ctx := log.Testing(t)
	data, _ := persist.Save(ctx, sample(), config())
	s, err := persist.Open(ctx, bytes.NewReader(data), int64(len(data)), config())
	assert.For(ctx, "open").ThatError(err).Succeeded()
	defer s.Close()
	assert.For(ctx, "load all").ThatError(s.LoadAll(ctx)).Succeeded()
	v, _ := s.Root(ctx)
	assert.For(ctx, "root").ThatString(v.(*test.Node).Name).Equals("root")
}

func TestInspect(t *testing.T) {
	ctx := log.Testing(t)
	data, _ := persist.Save(ctx, int32(3), config())
	report, err := persist.Inspect(ctx, data, config())
	assert.For(ctx, "inspect").ThatError(err).Succeeded()
	assert.For(ctx, "version").That(report.Header.Version).Equals(persist.FormatVersion)
	assert.For(ctx, "types").ThatSlice(report.Types).IsLength(1)
	assert.For(ctx, "roots").ThatInteger(report.Roots).Equals(1)
	assert.For(ctx, "resolved").That(report.Types[0].Class).IsNotNil()
}
