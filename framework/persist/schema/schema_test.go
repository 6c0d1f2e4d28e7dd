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

package schema_test

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/registry"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

type account struct {
	Owner   string
	Balance int64
	pin     int32
	Next    *account
}

type point struct{ x, y int32 }

type env struct {
	ns    *registry.Namespace
	opts  schema.Options
	list  []*schema.TypeSchema
	index map[reflect.Type]int
}

func newEnv(ns *registry.Namespace, opts schema.Options) *env {
	return &env{ns: ns, opts: opts, index: map[reflect.Type]int{}}
}

func (e *env) ClassOf(t reflect.Type) *class.Class { return e.ns.ClassOf(t) }

func (e *env) Declare(t reflect.Type) (int, error) {
	if i, found := e.index[t]; found {
		return i, nil
	}
	c := e.ns.ClassOf(t)
	if c == nil {
		return 0, schema.ErrUnregistered
	}
	ts := schema.New(c, len(e.list), e.opts.Annotator)
	e.index[t] = ts.Index
	e.list = append(e.list, ts)
	return ts.Index, ts.Build(e, e.opts)
}

func accountClass() *class.Class {
	return class.ObjectOf[account]("bank.Account",
		class.Field("Owner", func(a *account) string { return a.Owner }, func(a *account, v string) { a.Owner = v }).Public(),
		class.Field("Balance", func(a *account) int64 { return a.Balance }, func(a *account, v int64) { a.Balance = v }),
		class.Field("pin", func(a *account) int32 { return a.pin }, func(a *account, v int32) { a.pin = v }).Private(),
		class.Property("Next", func(a *account) *account { return a.Next }, func(a *account, v *account) { a.Next = v }),
		class.Constant("Currency", func(a *account) string { return "EUR" }),
	)
}

func pointClass() *class.Class {
	return class.ObjectOf[point]("geo.Point",
		class.Property("X", func(p *point) int32 { return p.x }, nil),
		class.Property("Y", func(p *point) int32 { return p.y }, nil),
	).WithConstructor([]string{"x", "y"}, func(args []interface{}) (interface{}, error) {
		return &point{args[0].(int32), args[1].(int32)}, nil
	})
}

// excluded marks the named types as no longer serialized.
type excluded []string

func (x excluded) Type(c *class.Class) class.TypeAnnotations {
	ann := class.Declared{}.Type(c)
	for _, n := range x {
		ann.Unserialized = ann.Unserialized || n == c.Name
	}
	return ann
}

func (x excluded) Member(c *class.Class, m *class.Member) class.MemberAnnotations {
	return class.Declared{}.Member(c, m)
}

func reload(ctx context.Context, e *env, ns *registry.Namespace) []*schema.TypeSchema {
	loaded := make([]*schema.TypeSchema, len(e.list))
	for i, ts := range e.list {
		buf := &bytes.Buffer{}
		ts.Save(endian.Writer(buf, endian.LittleEndian))
		l, err := schema.Load(endian.Reader(buf, endian.LittleEndian), i, len(e.list))
		assert.For(ctx, "load").ThatError(err).Succeeded()
		loaded[i] = l
	}
	r := schema.NewResolver(ns)
	for _, ts := range loaded {
		ts.ResolveType(r)
	}
	return loaded
}

func names(ms []*schema.MemberSchema) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestBuild(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(accountClass())
	e := newEnv(ns, schema.Options{})
	_, err := e.Declare(reflect.TypeOf(&account{}))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	ts := e.list[0]
	assert.For(ctx, "members").ThatSlice(names(ts.Members())).Equals([]string{"Owner", "Balance", "pin", "Next"})
	assert.For(ctx, "fields").ThatSlice(ts.Fields).IsLength(3)
	assert.For(ctx, "properties").ThatSlice(ts.Properties).IsLength(1)
	assert.For(ctx, "strategy").That(ts.Strategy).Equals(schema.Allocate)
	assert.For(ctx, "self reference").ThatInteger(ts.Properties[0].TypeIndex).Equals(0)
	assert.For(ctx, "object").ThatBoolean(ts.CanReference).IsTrue()
	assert.For(ctx, "category").ThatInteger(ts.Category()).Equals(1)
	assert.For(ctx, "string schema").ThatString(e.list[ts.Fields[0].TypeIndex].Name).Equals("string")
	assert.For(ctx, "string category").ThatInteger(e.list[ts.Fields[0].TypeIndex].Category()).Equals(0)
}

func TestBuildPublicOnly(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(accountClass().WithVisibility(class.Protected))
	e := newEnv(ns, schema.Options{PublicOnly: true})
	_, err := e.Declare(reflect.TypeOf(&account{}))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	ts := e.list[0]
	assert.For(ctx, "public type").ThatBoolean(ts.IsPublic).IsTrue()
	assert.For(ctx, "members").ThatSlice(names(ts.Members())).Equals([]string{"Owner"})
}

func TestBuildUnregistered(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(class.ObjectOf[account]("bank.Account",
		class.Field("Chan", func(a *account) chan int { return nil }, nil),
	))
	e := newEnv(ns, schema.Options{})
	_, err := e.Declare(reflect.TypeOf(&account{}))
	assert.For(ctx, "err").ThatError(err).HasCause(schema.ErrUnregistered)
}

func TestConstructorStrategy(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(pointClass())
	e := newEnv(ns, schema.Options{})
	_, err := e.Declare(reflect.TypeOf(&point{}))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	ts := e.list[0]
	assert.For(ctx, "strategy").That(ts.Strategy).Equals(schema.Construct)
	assert.For(ctx, "params").ThatSlice(names(ts.Params())).Equals([]string{"X", "Y"})
	for _, m := range ts.Members() {
		assert.For(ctx, "%s writable", m.Name).ThatBoolean(m.Writable).IsTrue()
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(accountClass())
	e := newEnv(ns, schema.Options{})
	e.Declare(reflect.TypeOf(&account{}))
	ts := e.list[0]

	buf := &bytes.Buffer{}
	ts.Save(endian.Writer(buf, endian.LittleEndian))
	size := buf.Len()

	ts.NumObjects, ts.DataOffset, ts.DataSize, ts.HasSubType = 12, 1<<40, 99, true
	patched := &bytes.Buffer{}
	ts.Save(endian.Writer(patched, endian.LittleEndian))
	assert.For(ctx, "fixed size").ThatInteger(patched.Len()).Equals(size)

	got, err := schema.Load(endian.Reader(patched, endian.LittleEndian), 0, len(e.list))
	assert.For(ctx, "err").ThatError(err).Succeeded()
	assert.For(ctx, "name").ThatString(got.Name).Equals("bank.Account")
	assert.For(ctx, "kind").That(got.Kind).Equals(class.Object)
	assert.For(ctx, "objects").ThatInteger(got.NumObjects).Equals(12)
	assert.For(ctx, "offset").That(got.DataOffset).Equals(int64(1 << 40))
	assert.For(ctx, "size").That(got.DataSize).Equals(int64(99))
	assert.For(ctx, "subtype").ThatBoolean(got.HasSubType).IsTrue()
	assert.For(ctx, "members").ThatSlice(names(got.Members())).Equals([]string{"Owner", "Balance", "pin", "Next"})
	assert.For(ctx, "private").ThatBoolean(got.Fields[2].IsPublic()).IsFalse()
	assert.For(ctx, "property").ThatBoolean(got.Properties[0].Property).IsTrue()
	assert.For(ctx, "unbound").That(got.Class).IsNil()
}

func TestLoadBadIndex(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(accountClass())
	e := newEnv(ns, schema.Options{})
	e.Declare(reflect.TypeOf(&account{}))
	buf := &bytes.Buffer{}
	e.list[0].Save(endian.Writer(buf, endian.LittleEndian))
	_, err := schema.Load(endian.Reader(buf, endian.LittleEndian), 0, 1)
	assert.For(ctx, "err").ThatError(err).HasCause(schema.ErrSchema)
}

func TestResolver(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	acc := ns.Add(accountClass().WithVersion("2"))
	r := schema.NewResolver(ns)
	assert.For(ctx, "exact").That(r.Resolve("bank.Account@2")).Equals(acc)
	assert.For(ctx, "version").That(r.Resolve("bank.Account@1")).Equals(acc)
	assert.For(ctx, "bare").That(r.Resolve("legacy.Account@1")).Equals(acc)
	assert.For(ctx, "array").That(r.Resolve("[]legacy.Account").Elem).Equals(acc)
	assert.For(ctx, "miss").That(r.Resolve("bank.Ledger")).IsNil()

	ts := &schema.TypeSchema{Name: "bank.Account@1", Kind: class.Int32, Wire: class.Int32}
	assert.For(ctx, "kind change").ThatBoolean(ts.ResolveType(r)).IsFalse()
}

func TestBind(t *testing.T) {
	ctx := log.Testing(t)
	old := registry.NewNamespace(registry.Builtins)
	old.Add(accountClass())
	e := newEnv(old, schema.Options{})
	e.Declare(reflect.TypeOf(&account{}))

	// Reload the schemas into a process where pin was removed and Balance
	// became a string.
	cur := registry.NewNamespace(registry.Builtins)
	cur.Add(class.ObjectOf[account]("bank.Account",
		class.Field("Owner", func(a *account) string { return a.Owner }, func(a *account, v string) { a.Owner = v }),
		class.Field("Balance", func(a *account) string { return "" }, func(a *account, v string) {}),
		class.Property("Next", func(a *account) *account { return a.Next }, nil),
	))
	loaded := reload(ctx, e, cur)
	skipped := loaded[0].Bind(loaded, nil)
	assert.For(ctx, "skipped").ThatSlice(skipped).Equals([]string{
		"bank.Account.Balance changed type",
		"bank.Account.pin was removed",
		"bank.Account.Next cannot be assigned",
	})
	readable := []string{}
	for _, m := range loaded[0].Members() {
		if m.Readable {
			readable = append(readable, m.Name)
		}
	}
	assert.For(ctx, "readable").ThatSlice(readable).Equals([]string{"Owner"})
}

func TestBindExcludedType(t *testing.T) {
	ctx := log.Testing(t)
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(accountClass())
	e := newEnv(ns, schema.Options{})
	e.Declare(reflect.TypeOf(&account{}))

	loaded := reload(ctx, e, ns)
	skipped := loaded[0].Bind(loaded, excluded{"string"})
	assert.For(ctx, "skipped").ThatSlice(skipped).Equals([]string{
		"bank.Account.Owner is no longer serialized",
	})
	assert.For(ctx, "owner").ThatBoolean(loaded[0].Fields[0].Readable).IsFalse()
	assert.For(ctx, "balance").ThatBoolean(loaded[0].Fields[1].Readable).IsTrue()
}
