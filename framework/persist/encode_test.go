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

package persist

import (
	"bytes"
	"context"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/repo"
	"github.com/graphstore/graphstore/framework/persist/test"
)

func TestWriteUnrecorded(t *testing.T) {
	ctx := log.Testing(t)
	tag := &test.Tag{Key: "k"}
	e := newEncoder(ctx, Config{Namespace: test.Namespace()}.withDefaults())
	assert.For(ctx, "discover").ThatError(e.discover(&test.Node{Tag: tag})).Succeeded()
	declared := e.Schema(e.types[e.cfg.Namespace.ClassOfValue(tag).Type])

	buf := &bytes.Buffer{}
	w := endian.Writer(buf, repo.Order)
	assert.For(ctx, "recorded").ThatError(e.WriteValue(w, declared, tag)).Succeeded()
	assert.For(ctx, "null").ThatError(e.WriteValue(w, declared, nil)).Succeeded()
	written := buf.Len()
	err := e.WriteValue(w, declared, &test.Tag{Key: "k"})
	assert.For(ctx, "unrecorded").ThatError(err).HasCause(repo.ErrNotSaved)
	assert.For(ctx, "nothing written").ThatInteger(buf.Len()).Equals(written)
}

func TestWriteFiltered(t *testing.T) {
	ctx := context.Background()
	assert := assert.To(t)
	cfg := Config{Namespace: test.Namespace(), PublicOnly: true}.withDefaults()
	e := newEncoder(ctx, cfg)
	assert.For("discover").ThatError(e.discover(&test.Node{})).Succeeded()
	declared := e.Schema(0)
	w := endian.Writer(&bytes.Buffer{}, repo.Order)
	assert.For("private").ThatBoolean(e.filtered(&test.Secret{})).IsTrue()
	assert.For("public").ThatBoolean(e.filtered(&test.Tag{})).IsFalse()
	assert.For("private value").ThatError(e.WriteValue(w, declared, &test.Secret{})).Succeeded()
}
