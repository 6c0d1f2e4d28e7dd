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
	"io"
	"reflect"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/data/seekbuf"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/repo"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// cancelCheckInterval is how many discovered objects are processed between
// checks for cancellation.
const cancelCheckInterval = 1024

// operation returns the logging context of one save, load or clone.
func operation(ctx context.Context, name string) context.Context {
	return log.V{"op": uuid.NewString()}.Bind(log.Enter(ctx, name))
}

type item struct {
	repo  repo.Repo
	index int
}

// encoder discovers the graph reachable from a root and writes it.
type encoder struct {
	ctx      context.Context
	cfg      Config
	opts     schema.Options
	schemas  []*schema.TypeSchema
	types    map[reflect.Type]int
	repos    []repo.Repo
	queue    []item
	roots    []ref
	failures failures
	err      error
}

func newEncoder(ctx context.Context, cfg Config) *encoder {
	return &encoder{
		ctx:   ctx,
		cfg:   cfg,
		opts:  schema.Options{Annotator: cfg.Annotator, PublicOnly: cfg.PublicOnly},
		types: map[reflect.Type]int{},
	}
}

func (e *encoder) Schema(index int) *schema.TypeSchema { return e.schemas[index] }

func (e *encoder) ClassOf(t reflect.Type) *class.Class { return e.cfg.Namespace.ClassOf(t) }

func (e *encoder) Declare(t reflect.Type) (int, error) {
	if i, found := e.types[t]; found {
		return i, nil
	}
	c := e.ClassOf(t)
	if c == nil {
		return 0, errors.Wrapf(ErrUnregistered, "%v", t)
	}
	if i, found := e.types[c.Type]; found {
		return i, nil
	}
	if len(e.schemas) >= maxTypes {
		return 0, errors.Wrapf(ErrTooManyTypes, "declaring %s", c.Identifier())
	}
	ts := schema.New(c, len(e.schemas), e.cfg.Annotator)
	e.types[c.Type] = ts.Index
	e.schemas = append(e.schemas, ts)
	e.repos = append(e.repos, nil)
	return ts.Index, ts.Build(e, e.opts)
}

func (e *encoder) public(c *class.Class) bool {
	return e.cfg.Annotator.Type(c).Visibility != class.Private
}

func (e *encoder) repoFor(c *class.Class) (repo.Repo, error) {
	i, err := e.Declare(c.Type)
	if err != nil {
		return nil, err
	}
	if e.repos[i] == nil {
		e.repos[i] = repo.New(e.schemas[i])
	}
	return e.repos[i], nil
}

// add registers v with the repo of its class and queues it for discovery of
// its children if it was new.
func (e *encoder) add(v interface{}) (repo.Repo, int, error) {
	c := e.cfg.Namespace.ClassOfValue(v)
	if c == nil {
		return nil, 0, errors.Wrapf(ErrUnregistered, "value of type %T", v)
	}
	rp, err := e.repoFor(c)
	if err != nil {
		return nil, 0, err
	}
	i, added := rp.Add(v)
	if !added {
		return rp, i, nil
	}
	if sized, ok := rp.(repo.Sized); ok && e.cfg.PublicOnly {
		if n := sized.Length(i); n > e.cfg.MaxPublicObjects {
			return nil, 0, &PublicSizeError{Type: rp.Schema().Name, Count: n, Max: e.cfg.MaxPublicObjects}
		}
	}
	if rp.Schema().CanReference {
		e.queue = append(e.queue, item{rp, i})
	}
	return rp, i, nil
}

func (e *encoder) Reach(declared *schema.TypeSchema, v interface{}) {
	if e.err != nil || declared.IsValue() || class.IsNil(v) {
		return
	}
	if e.filtered(v) {
		return
	}
	rp, _, err := e.add(v)
	if err != nil {
		e.err = err
		return
	}
	if rp.Schema() != declared {
		declared.HasSubType = true
	}
}

func (e *encoder) WriteValue(w binary.Writer, declared *schema.TypeSchema, v interface{}) error {
	if declared.IsValue() {
		if v == nil {
			w.Data(make([]byte, declared.Wire.Size()))
			return nil
		}
		declared.Class.Encode(w, v)
		return nil
	}
	index, i, ok := e.locate(v)
	switch {
	case !ok && !class.IsNil(v) && !e.filtered(v):
		return errors.Wrapf(repo.ErrNotSaved, "value of type %T", v)
	case !ok:
		w.Uint8(repo.TagNull)
	case index == declared.Index:
		w.Uint8(repo.TagBase)
		w.Int32(int32(i))
	default:
		w.Uint8(repo.TagDerived)
		w.Uint16(uint16(index))
		w.Int32(int32(i))
	}
	return nil
}

// filtered returns true if v was left out of a public-only save.
func (e *encoder) filtered(v interface{}) bool {
	c := e.cfg.Namespace.ClassOfValue(v)
	return c != nil && e.cfg.PublicOnly && !e.public(c)
}

// locate returns the type and object index of a recorded value. It only
// reads state built during discovery, so it is safe to call from the block
// writers.
func (e *encoder) locate(v interface{}) (typ, index int, ok bool) {
	if class.IsNil(v) {
		return 0, 0, false
	}
	c := e.cfg.Namespace.ClassOfValue(v)
	if c == nil {
		return 0, 0, false
	}
	typ, found := e.types[c.Type]
	if !found || e.repos[typ] == nil {
		return 0, 0, false
	}
	index, ok = e.repos[typ].Lookup(v)
	return typ, index, ok
}

func (e *encoder) Fail(ts *schema.TypeSchema, member string, index int, cause error) {
	e.failures.add(e.ctx, ts.Name, member, index, cause)
}

// discover records the root and, breadth first, every value reachable from
// it.
func (e *encoder) discover(root interface{}) error {
	if class.IsNil(root) {
		return nil
	}
	c := e.cfg.Namespace.ClassOfValue(root)
	if c == nil {
		return errors.Wrapf(ErrUnregistered, "root of type %T", root)
	}
	if e.cfg.PublicOnly && !e.public(c) {
		return errors.Wrapf(ErrPrivateRoot, "%s", c.Identifier())
	}
	rp, i, err := e.add(root)
	if err != nil {
		return err
	}
	if !rp.Schema().CanReference {
		e.roots = append(e.roots, ref{rp.Schema().Index, i})
	}
	for n := 0; len(e.queue) > 0 && e.err == nil; n++ {
		if n%cancelCheckInterval == 0 {
			if err := e.ctx.Err(); err != nil {
				return err
			}
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		next.repo.Children(e, next.index)
	}
	if e.err != nil {
		return e.err
	}
	for i, rp := range e.repos {
		if rp != nil {
			e.schemas[i].NumObjects = rp.Count()
		}
	}
	return nil
}

// render saves every repo into its own buffer, in parallel.
func (e *encoder) render(ctx context.Context) ([][]byte, error) {
	blocks := make([][]byte, len(e.schemas))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, rp := range e.repos {
		if rp == nil {
			continue
		}
		i, rp := i, rp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf := &bytes.Buffer{}
			if err := rp.Save(e, buf); err != nil {
				return errors.Wrapf(err, "saving %s", rp.Schema().Name)
			}
			blocks[i] = buf.Bytes()
			return nil
		})
	}
	return blocks, g.Wait()
}

// blockOrder returns the schema indices sorted by category.
func blockOrder(schemas []*schema.TypeSchema) []int {
	order := make([]int, len(schemas))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return schemas[order[a]].Category() < schemas[order[b]].Category()
	})
	return order
}

func (e *encoder) writeSchemas(out binary.Writer) {
	out.Int32(int32(len(e.schemas)))
	for _, ts := range e.schemas {
		ts.Save(out)
	}
}

func (e *encoder) writeHeaders(out binary.Writer) {
	for _, ts := range e.schemas {
		out.Uint16(uint16(ts.Index))
		out.Int32(int32(ts.NumObjects))
		out.Int64(ts.DataOffset)
	}
}

// write writes the stream to w, starting at its current position. Offsets
// are relative to that position.
func (e *encoder) write(ctx context.Context, w io.WriteSeeker) error {
	blocks, err := e.render(ctx)
	if err != nil {
		return err
	}
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	out := endian.Writer(w, repo.Order)
	tell := func() int64 {
		pos, err := w.Seek(0, io.SeekCurrent)
		if err != nil {
			out.SetError(err)
		}
		return pos - start
	}
	seek := func(pos int64) {
		if _, err := w.Seek(start+pos, io.SeekStart); err != nil {
			out.SetError(err)
		}
	}

	out.Uint32(FormatVersion)
	out.String(e.cfg.Name)
	lengthAt := tell()
	out.Int64(0)
	schemasAt := tell()
	e.writeSchemas(out)
	out.Int32(int32(len(e.roots)))
	for _, r := range e.roots {
		out.Uint8(repo.TagDerived)
		out.Uint16(uint16(r.typ))
		out.Int32(int32(r.index))
	}
	out.Uint32(Magic)
	headersAt := tell()
	e.writeHeaders(out)
	for _, i := range blockOrder(e.schemas) {
		if err := ctx.Err(); err != nil {
			return err
		}
		ts := e.schemas[i]
		ts.DataOffset = tell()
		ts.DataSize = int64(len(blocks[i]))
		out.Data(blocks[i])
	}
	end := tell()
	seek(lengthAt)
	out.Int64(end)
	seek(schemasAt)
	e.writeSchemas(out)
	seek(headersAt)
	e.writeHeaders(out)
	seek(end)
	return out.Error()
}

// Encode writes the graph reachable from root to w. Sinks that cannot seek
// are given the stream once it is complete. If some members could not be
// read the stream is still written, with those members null, and a
// *PartialError is returned.
func Encode(ctx context.Context, w io.Writer, root interface{}, cfg Config) error {
	ctx = operation(ctx, "Encode")
	e := newEncoder(ctx, cfg.withDefaults())
	if err := e.discover(root); err != nil {
		return err
	}
	ws, seekable := w.(io.WriteSeeker)
	if seekable {
		if _, err := ws.Seek(0, io.SeekCurrent); err != nil {
			seekable = false
		}
	}
	if seekable {
		if err := e.write(ctx, ws); err != nil {
			return err
		}
	} else {
		buf := &seekbuf.Buffer{}
		if err := e.write(ctx, buf); err != nil {
			return err
		}
		if _, err := buf.WriteTo(w); err != nil {
			return errors.Wrap(err, "writing stream")
		}
	}
	log.D(ctx, "Saved %d types", len(e.schemas))
	return e.failures.err()
}

// Save returns the stream for the graph reachable from root. A
// *PartialError is returned along with the stream if some members could not
// be read.
func Save(ctx context.Context, root interface{}, cfg Config) ([]byte, error) {
	buf := &seekbuf.Buffer{}
	err := Encode(ctx, buf, root, cfg)
	if err != nil && !IsPartial(err) {
		return nil, err
	}
	return buf.Bytes(), err
}
