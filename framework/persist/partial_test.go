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
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist"
	"github.com/graphstore/graphstore/framework/persist/test"
)

func TestSaveFailure(t *testing.T) {
	ctx := log.Testing(t)
	root := &test.Node{Name: "faulty", Faulty: &test.Faulty{Value: 3, Explode: true, Fragile: 2}}
	data, err := persist.Save(ctx, root, config())
	assert.For(ctx, "partial").ThatBoolean(persist.IsPartial(err)).IsTrue()
	partial := err.(*persist.PartialError)
	assert.For(ctx, "member").ThatBoolean(partial.Has("test.Faulty", "Value")).IsTrue()
	assert.For(ctx, "count").ThatSlice(partial.Members()).IsLength(1)
	assert.For(ctx, "cause").ThatError(partial.Members()[0].Cause).HasCause(test.ErrExplode)

	v, err := persist.Load(ctx, data, config())
	assert.For(ctx, "load").ThatError(err).Succeeded()
	got := v.(*test.Node)
	assert.For(ctx, "name").ThatString(got.Name).Equals("faulty")
	assert.For(ctx, "skipped").That(got.Faulty.Value).Equals(int32(0))
	assert.For(ctx, "kept").That(got.Faulty.Fragile).Equals(int32(2))
}

func TestLoadFailure(t *testing.T) {
	ctx := log.Testing(t)
	root := &test.Node{Name: "fragile", Faulty: &test.Faulty{Value: 1, Fragile: -1}}
	data, err := persist.Save(ctx, root, config())
	assert.For(ctx, "save").ThatError(err).Succeeded()

	v, err := persist.Load(ctx, data, config())
	assert.For(ctx, "partial").ThatBoolean(persist.IsPartial(err)).IsTrue()
	assert.For(ctx, "member").ThatBoolean(err.(*persist.PartialError).Has("test.Faulty", "Fragile")).IsTrue()
	got := v.(*test.Node)
	assert.For(ctx, "root").ThatString(got.Name).Equals("fragile")
	assert.For(ctx, "other members").That(got.Faulty.Value).Equals(int32(1))
}

func TestConstructorCycle(t *testing.T) {
	ctx := log.Testing(t)
	data, err := persist.Save(ctx, test.Loop("a"), config())
	assert.For(ctx, "save").ThatError(err).Succeeded()
	v, err := persist.Load(ctx, data, config())
	assert.For(ctx, "partial").ThatBoolean(persist.IsPartial(err)).IsTrue()
	got := v.(*test.Pair)
	assert.For(ctx, "first").That(got.First()).Equals("a")
	assert.For(ctx, "broken").That(got.Second()).IsNil()
}
