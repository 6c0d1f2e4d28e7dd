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
	"bufio"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/data/binary"
	"github.com/graphstore/graphstore/core/data/endian"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/repo"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// decoder reads the header of a stream and materializes its instances on
// demand.
type decoder struct {
	ctx       context.Context
	cfg       Config
	header    Header
	schemas   []*schema.TypeSchema
	repos     []repo.Repo
	roots     []ref
	resolver  *schema.Resolver
	queue     []item
	preload   bool
	preloaded []bool
	failures  failures
}

// corrupt logs and returns an integrity error.
func corrupt(ctx context.Context, err error) error {
	log.E(ctx, "Corrupt stream: %v", err)
	return err
}

// openDecoder reads and checks everything up to the start of the data
// blocks, resolves the stored types and attaches each repo to its block.
func openDecoder(ctx context.Context, r io.ReaderAt, size int64, cfg Config) (*decoder, error) {
	d := &decoder{
		ctx:      ctx,
		cfg:      cfg,
		resolver: schema.NewResolver(cfg.Namespace),
		preload:  cfg.Preload,
	}
	in := endian.Reader(bufio.NewReader(io.NewSectionReader(r, 0, size)), repo.Order)
	if err := d.readHeader(in, size); err != nil {
		return nil, corrupt(ctx, err)
	}
	for _, ts := range d.schemas {
		if !ts.ResolveType(d.resolver) {
			log.W(ctx, "Type %s could not be resolved, its instances load as nil", ts.Name)
		}
	}
	for _, ts := range d.schemas {
		for _, msg := range ts.Bind(d.schemas, cfg.Annotator) {
			log.W(ctx, "Skipping %s", msg)
		}
	}
	d.repos = make([]repo.Repo, len(d.schemas))
	d.preloaded = make([]bool, len(d.schemas))
	for i, ts := range d.schemas {
		d.repos[i] = repo.New(ts)
		d.repos[i].Bind(io.NewSectionReader(r, ts.DataOffset, ts.DataSize))
	}
	return d, nil
}

func (d *decoder) readHeader(in binary.Reader, size int64) error {
	h := &d.header
	h.Version = in.Uint32()
	if err := in.Error(); err != nil {
		return errors.Wrapf(ErrLength, "reading version: %v", err)
	}
	if h.Version != FormatVersion {
		return errors.Wrapf(ErrVersion, "version %d, expected %d", h.Version, FormatVersion)
	}
	h.Name = in.String()
	h.Length = in.Int64()
	if err := in.Error(); err != nil {
		return errors.Wrapf(ErrLength, "reading header: %v", err)
	}
	if h.Length != size {
		return errors.Wrapf(ErrLength, "stream declares %d bytes, got %d", h.Length, size)
	}
	count := int(in.Int32())
	if count < 0 || count > maxTypes {
		return errors.Wrapf(schema.ErrSchema, "%d types", count)
	}
	d.schemas = make([]*schema.TypeSchema, count)
	for i := range d.schemas {
		ts, err := schema.Load(in, i, count)
		if err != nil {
			return err
		}
		d.schemas[i] = ts
	}
	roots := int(in.Int32())
	if roots < 0 || roots > count {
		return errors.Wrapf(ErrBadReference, "%d primitive roots", roots)
	}
	for i := 0; i < roots; i++ {
		tag, typ, index := in.Uint8(), int(in.Uint16()), int(in.Int32())
		if tag != repo.TagDerived || typ >= count || index < 0 || index >= d.schemas[typ].NumObjects {
			return errors.Wrapf(ErrBadReference, "primitive root %d", i)
		}
		d.roots = append(d.roots, ref{typ, index})
	}
	if magic := in.Uint32(); magic != Magic && in.Error() == nil {
		return errors.Wrapf(ErrMagic, "got %#x", magic)
	}
	for _, ts := range d.schemas {
		index, num, offset := int(in.Uint16()), int(in.Int32()), in.Int64()
		if in.Error() != nil {
			break
		}
		if index != ts.Index || num != ts.NumObjects || offset != ts.DataOffset {
			return errors.Wrapf(ErrTypeHeader, "%s: header (%d, %d, %d)", ts.Name, index, num, offset)
		}
		if ts.DataOffset+ts.DataSize > size {
			return errors.Wrapf(ErrTypeHeader, "%s: data [%d, %d) past end of stream", ts.Name, ts.DataOffset, ts.DataOffset+ts.DataSize)
		}
	}
	if err := in.Error(); err != nil {
		return errors.Wrapf(ErrLength, "truncated header: %v", err)
	}
	return nil
}

func (d *decoder) Context() context.Context { return d.ctx }

func (d *decoder) Schema(index int) *schema.TypeSchema { return d.schemas[index] }

func (d *decoder) Resolve(id string) *class.Class { return d.resolver.Resolve(id) }

func (d *decoder) Fail(ts *schema.TypeSchema, member string, index int, cause error) {
	d.failures.add(d.ctx, ts.Name, member, index, cause)
}

func (d *decoder) ReadValue(r binary.Reader, declared *schema.TypeSchema) interface{} {
	if declared.IsValue() {
		if declared.Class == nil {
			r.Data(make([]byte, declared.Wire.Size()))
			return nil
		}
		return declared.Class.Decode(r)
	}
	typ, ok := d.readRef(r, declared)
	if !ok {
		return nil
	}
	index := int(r.Int32())
	if r.Error() != nil {
		return nil
	}
	v, err := d.resolve(typ, index)
	if err != nil {
		r.SetError(err)
		return nil
	}
	return v
}

func (d *decoder) SkipValue(r binary.Reader, declared *schema.TypeSchema) {
	if declared.IsValue() {
		r.Data(make([]byte, declared.Wire.Size()))
		return
	}
	if _, ok := d.readRef(r, declared); ok {
		r.Int32()
	}
}

// readRef reads the tag of a reference and returns the type it refers to.
// It returns false for null.
func (d *decoder) readRef(r binary.Reader, declared *schema.TypeSchema) (int, bool) {
	switch tag := r.Uint8(); tag {
	case repo.TagNull:
		return 0, false
	case repo.TagBase:
		return declared.Index, true
	case repo.TagDerived:
		return int(r.Uint16()), true
	default:
		if r.Error() == nil {
			r.SetError(errors.Wrapf(ErrBadReference, "tag %d", tag))
		}
		return 0, false
	}
}

// resolve returns the instance at (typ, index), allocating it and queueing
// it to be populated if it has not been seen yet.
func (d *decoder) resolve(typ, index int) (interface{}, error) {
	if typ < 0 || typ >= len(d.repos) || index < 0 || index >= d.schemas[typ].NumObjects {
		return nil, errors.Wrapf(ErrBadReference, "instance %d of type %d", index, typ)
	}
	rp := d.repos[typ]
	if d.preload && !d.preloaded[typ] {
		d.preloaded[typ] = true
		if p, ok := rp.(repo.Preloader); ok {
			if err := p.Preload(d); err != nil {
				return nil, err
			}
		}
	}
	v, pending, err := rp.Instance(d, index)
	if err != nil {
		return nil, err
	}
	if pending {
		d.queue = append(d.queue, item{rp, index})
	}
	return v, nil
}

// drain populates queued instances until none are left. Instances
// discovered while populating are queued rather than loaded recursively.
func (d *decoder) drain(ctx context.Context) error {
	for n := 0; len(d.queue) > 0; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		next := d.queue[0]
		d.queue = d.queue[1:]
		if next.repo.Loaded(next.index) {
			continue
		}
		if err := next.repo.Load(d, next.index); err != nil {
			return corrupt(d.ctx, err)
		}
	}
	return nil
}

// load returns the fully populated instance at (typ, index).
func (d *decoder) load(ctx context.Context, typ, index int) (interface{}, error) {
	v, err := d.resolve(typ, index)
	if err != nil {
		return nil, corrupt(d.ctx, err)
	}
	if err := d.drain(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// loadAll populates every instance, in block order.
func (d *decoder) loadAll(ctx context.Context) error {
	d.preload = true
	for _, typ := range blockOrder(d.schemas) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, n := 0, d.schemas[typ].NumObjects; i < n; i++ {
			if _, err := d.load(ctx, typ, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) root(ctx context.Context) (interface{}, error) {
	switch {
	case len(d.roots) > 0:
		return d.load(ctx, d.roots[0].typ, d.roots[0].index)
	case len(d.schemas) > 0 && d.schemas[0].NumObjects > 0:
		return d.load(ctx, 0, 0)
	default:
		return nil, nil
	}
}
