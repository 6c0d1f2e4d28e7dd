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
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/fault"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist/schema"
)

const (
	// ErrVersion is returned when a stream has an unsupported format version.
	ErrVersion = fault.Const("Unsupported format version")
	// ErrLength is returned when a stream is not the length it declares.
	ErrLength = fault.Const("Stream length mismatch")
	// ErrMagic is returned when the sentinel after the schema table is wrong.
	ErrMagic = fault.Const("Bad magic")
	// ErrTypeHeader is returned when a per-type header disagrees with its schema.
	ErrTypeHeader = fault.Const("Type header mismatch")
	// ErrPrivateRoot is returned when a public-only save is given a private root.
	ErrPrivateRoot = fault.Const("Root type is private")
	// ErrUnregistered is returned when a value's type has no class.
	ErrUnregistered = schema.ErrUnregistered
	// ErrTooManyTypes is returned when a graph has more types than a stream can describe.
	ErrTooManyTypes = fault.Const("Too many types")
	// ErrBadReference is returned when a stored reference is out of range.
	ErrBadReference = fault.Const("Bad reference")
	// ErrClosed is returned by a Session after Close.
	ErrClosed = fault.Const("Session is closed")
)

// PublicSizeError is returned by a public-only save when a public collection
// holds more objects than allowed. Nothing is written.
type PublicSizeError struct {
	Type  string
	Count int
	Max   int
}

func (e *PublicSizeError) Error() string {
	return fmt.Sprintf("public collection %s holds %d objects, more than the %d allowed", e.Type, e.Count, e.Max)
}

// MemberError records a member that could not be saved or loaded.
type MemberError struct {
	Type   string
	Member string
	Index  int
	Cause  error
}

func (e MemberError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%s[%d]: %v", e.Type, e.Index, e.Cause)
	}
	return fmt.Sprintf("%s[%d].%s: %v", e.Type, e.Index, e.Member, e.Cause)
}

func (e MemberError) Unwrap() error { return e.Cause }

// PartialError is returned alongside a result when some members failed. The
// failed members were written or loaded as null.
type PartialError struct {
	Failures fault.List
}

func (e *PartialError) Error() string {
	return "partial failure: " + e.Failures.Error()
}

// Members returns the failures as MemberErrors.
func (e *PartialError) Members() []MemberError {
	out := make([]MemberError, 0, len(e.Failures))
	for _, err := range e.Failures {
		if m, ok := err.(MemberError); ok {
			out = append(out, m)
		}
	}
	return out
}

// Has returns true if the named member of the named type failed.
func (e *PartialError) Has(typ, member string) bool {
	for _, m := range e.Members() {
		if strings.HasPrefix(m.Type, typ) && m.Member == member {
			return true
		}
	}
	return false
}

// failures collects member failures from the goroutines of one operation.
type failures struct {
	mutex sync.Mutex
	seen  map[failureKey]bool
	list  fault.List
}

type failureKey struct {
	typ, member string
	index       int
}

func (f *failures) add(ctx context.Context, typ, member string, index int, cause error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	key := failureKey{typ, member, index}
	if f.seen[key] {
		return
	}
	if f.seen == nil {
		f.seen = map[failureKey]bool{}
	}
	f.seen[key] = true
	err := MemberError{Type: typ, Member: member, Index: index, Cause: cause}
	log.W(ctx, "%v", err)
	f.list.Collect(err)
}

func (f *failures) count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.list)
}

// err returns a *PartialError if anything failed.
func (f *failures) err() error { return f.since(0) }

// since returns a *PartialError holding the failures after the first n.
func (f *failures) since(n int) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.list) <= n {
		return nil
	}
	return &PartialError{Failures: append(fault.List{}, f.list[n:]...)}
}

// IsPartial returns true if err reports member failures of an operation
// that otherwise completed.
func IsPartial(err error) bool {
	_, ok := errors.Cause(err).(*PartialError)
	return ok
}
