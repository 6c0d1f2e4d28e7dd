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

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

// Session is an open stream whose instances are decoded on demand.
// A Session is not safe for concurrent use.
type Session struct {
	d      *decoder
	closer io.Closer
	closed bool
}

// Open reads the header and schema table of the size bytes of stream in r.
// Nothing else is decoded until it is asked for. If r is an io.Closer it is
// closed by Session.Close.
func Open(ctx context.Context, r io.ReaderAt, size int64, cfg Config) (*Session, error) {
	ctx = operation(ctx, "Open")
	d, err := openDecoder(ctx, r, size, cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	s := &Session{d: d}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	log.D(ctx, "Opened %q with %d types", d.header.Name, len(d.schemas))
	return s, nil
}

// bind makes ctx the context the decoder logs to for the next operation.
func (s *Session) bind(ctx context.Context, name string) context.Context {
	s.d.ctx = operation(ctx, name)
	return s.d.ctx
}

// Header returns the stream header.
func (s *Session) Header() Header { return s.d.header }

// Types returns the schema table of the stream.
func (s *Session) Types() []*schema.TypeSchema { return s.d.schemas }

// Type returns the schema with the given identifier or name, or nil.
func (s *Session) Type(name string) *schema.TypeSchema { return schema.Find(s.d.schemas, name) }

// Root returns the root of the graph, loading it and whatever it needs.
func (s *Session) Root(ctx context.Context) (interface{}, error) {
	if s.closed {
		return nil, ErrClosed
	}
	ctx = s.bind(ctx, "Root")
	before := s.d.failures.count()
	v, err := s.d.root(ctx)
	if err != nil {
		return nil, err
	}
	return v, s.d.failures.since(before)
}

// LoadObject returns the instance at index of ts, loading it if needed.
// Loading an instance also allocates every instance it refers to. Calling
// LoadObject again for the same instance returns the same value.
func (s *Session) LoadObject(ctx context.Context, ts *schema.TypeSchema, index int) (interface{}, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if ts == nil || ts.Index >= len(s.d.schemas) || s.d.schemas[ts.Index] != ts {
		return nil, errors.Wrap(ErrBadReference, "type is not part of this session")
	}
	ctx = s.bind(ctx, "LoadObject")
	before := s.d.failures.count()
	v, err := s.d.load(ctx, ts.Index, index)
	if err != nil {
		return nil, err
	}
	return v, s.d.failures.since(before)
}

// LoadAll loads every instance in the stream.
func (s *Session) LoadAll(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	ctx = s.bind(ctx, "LoadAll")
	before := s.d.failures.count()
	if err := s.d.loadAll(ctx); err != nil {
		return err
	}
	return s.d.failures.since(before)
}

// Close releases the session and closes its reader if it is an io.Closer.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Load decodes the whole stream in data and returns its root. If some
// members could not be loaded the root is returned with a *PartialError.
func Load(ctx context.Context, data []byte, cfg Config) (interface{}, error) {
	ctx = operation(ctx, "Load")
	d, err := openDecoder(ctx, bytes.NewReader(data), int64(len(data)), cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	if err := d.loadAll(ctx); err != nil {
		return nil, err
	}
	root, err := d.root(ctx)
	if err != nil {
		return nil, err
	}
	return root, d.failures.err()
}

// Report describes a stream without its instances.
type Report struct {
	Header Header
	Types  []*schema.TypeSchema
	// Roots is the number of primitive roots.
	Roots int
}

// Inspect reads the header and schema table of the stream in data and
// resolves its types against cfg, without loading any instance.
func Inspect(ctx context.Context, data []byte, cfg Config) (*Report, error) {
	ctx = operation(ctx, "Inspect")
	d, err := openDecoder(ctx, bytes.NewReader(data), int64(len(data)), cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	return &Report{Header: d.header, Types: d.schemas, Roots: len(d.roots)}, nil
}
