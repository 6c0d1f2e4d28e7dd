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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist"
	"github.com/graphstore/graphstore/framework/persist/test"
)

func writeStream(t *testing.T) string {
	ctx := log.Testing(t)
	root := &test.Node{Name: "dump", Tag: &test.Tag{Key: "k"}}
	data, err := persist.Save(ctx, root, persist.Config{Name: "dump", Namespace: test.Namespace()})
	assert.For(ctx, "save").ThatError(err).Succeeded()
	path := filepath.Join(t.TempDir(), "dump.graph")
	assert.For(ctx, "write").ThatError(os.WriteFile(path, data, 0644)).Succeeded()
	return path
}

func TestFormats(t *testing.T) {
	ctx := log.Testing(t)
	path := writeStream(t)
	for _, test := range []struct {
		format string
		expect []string
	}{
		{"text", []string{`"dump" version 1`, "test.Node", "Tag"}},
		{"json", []string{`"name": "test.Node"`, `"file":`}},
		{"yaml", []string{"name: test.Node", "version: 1"}},
	} {
		out := &bytes.Buffer{}
		err := run(ctx, []string{"-format", test.format, path}, out)
		assert.For(ctx, "%s run", test.format).ThatError(err).Succeeded()
		for _, s := range test.expect {
			assert.For(ctx, "%s output", test.format).ThatString(out.String()).Contains(s)
		}
	}
}

func TestTypeFilter(t *testing.T) {
	ctx := log.Testing(t)
	out := &bytes.Buffer{}
	err := run(ctx, []string{"-format=yaml", "-types", "test.T*", writeStream(t)}, out)
	assert.For(ctx, "run").ThatError(err).Succeeded()
	assert.For(ctx, "kept").ThatString(out.String()).Contains("name: test.Tag")
	assert.For(ctx, "dropped").ThatBoolean(bytes.Contains(out.Bytes(), []byte("name: test.Node"))).IsFalse()

	out.Reset()
	err = run(ctx, []string{"-format=yaml", "-types", "test.T*", "-types", "test.N*", writeStream(t)}, out)
	assert.For(ctx, "repeated").ThatError(err).Succeeded()
	assert.For(ctx, "first glob").ThatString(out.String()).Contains("name: test.Tag")
	assert.For(ctx, "second glob").ThatString(out.String()).Contains("name: test.Node")
	assert.For(ctx, "unmatched").ThatBoolean(bytes.Contains(out.Bytes(), []byte("name: string"))).IsFalse()
}

func TestClasses(t *testing.T) {
	ctx := log.Testing(t)
	out := &bytes.Buffer{}
	err := run(ctx, []string{"-classes"}, out)
	assert.For(ctx, "run").ThatError(err).Succeeded()
	assert.For(ctx, "count").ThatString(out.String()).Contains(" classes\n")
	assert.For(ctx, "builtin").ThatString(out.String()).Contains("  string\t")
}

func TestCorruptStream(t *testing.T) {
	ctx := log.PutHandler(context.Background(), &log.Recorder{})
	assert := assert.To(t)
	path := filepath.Join(t.TempDir(), "bad.graph")
	assert.For("write").ThatError(os.WriteFile(path, []byte{9, 0, 0, 0, 0}, 0644)).Succeeded()
	err := run(ctx, []string{path}, &bytes.Buffer{})
	assert.For("err").ThatError(err).HasCause(persist.ErrVersion)
}

func TestBadArguments(t *testing.T) {
	ctx := log.Testing(t)
	for _, args := range [][]string{
		{},
		{"-format", "xml", "a.graph"},
		{"-types", "[", "a.graph"},
		{filepath.Join(t.TempDir(), "missing.graph")},
	} {
		err := run(ctx, args, &bytes.Buffer{})
		assert.For(ctx, "%v", args).ThatError(err).Failed()
	}
}
