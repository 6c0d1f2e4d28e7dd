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
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/repo"
)

// Clone returns a deep copy of the graph reachable from obj, without going
// through a stream. Shared and cyclic references are preserved. Values of
// classes marked NeverClone are shared with the original, and immutable
// values such as strings and numbers are never copied.
func Clone(ctx context.Context, obj interface{}, cfg Config) (interface{}, error) {
	ctx = operation(ctx, "Clone")
	c := &cloner{
		ctx:      ctx,
		cfg:      cfg.withDefaults(),
		copies:   map[interface{}]interface{}{},
		building: map[interface{}]bool{},
		counts:   map[*class.Class]int{},
	}
	out := c.ref(obj)
	for n := 0; len(c.queue) > 0 && c.err == nil; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		next()
	}
	if c.err != nil {
		return nil, c.err
	}
	return out, c.failures.err()
}

type cloner struct {
	ctx      context.Context
	cfg      Config
	copies   map[interface{}]interface{}
	building map[interface{}]bool
	counts   map[*class.Class]int
	queue    []func()
	failures failures
	err      error
}

// ref returns the copy of v, creating it if this is the first time v is
// seen. New objects are returned as shells whose members are copied later
// from the queue.
func (c *cloner) ref(v interface{}) interface{} {
	if c.err != nil || class.IsNil(v) {
		return v
	}
	cls := c.cfg.Namespace.ClassOfValue(v)
	if cls == nil {
		c.err = errors.Wrapf(ErrUnregistered, "cloning value of type %T", v)
		return nil
	}
	switch cls.Kind {
	case class.Object, class.Array, class.Bytes:
	default:
		return v
	}
	if c.cfg.Annotator.Type(cls).NeverClone {
		return v
	}
	key := class.Identity(v)
	if dup, found := c.copies[key]; found {
		return dup
	}
	switch {
	case cls.Kind == class.Bytes:
		dup := bytes.Clone(v.([]byte))
		c.copies[key] = dup
		return dup
	case cls.Kind == class.Array:
		return c.array(cls, key, v)
	case cls.New != nil:
		dup := cls.New()
		c.copies[key] = dup
		index := c.next(cls)
		c.queue = append(c.queue, func() { c.members(cls, index, v, dup, nil) })
		return dup
	default:
		return c.construct(cls, key, v)
	}
}

func (c *cloner) next(cls *class.Class) int {
	i := c.counts[cls]
	c.counts[cls] = i + 1
	return i
}

func (c *cloner) array(cls *class.Class, key, v interface{}) interface{} {
	src := reflect.ValueOf(v)
	dup := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	out := dup.Interface()
	c.copies[key] = out
	if cls.Elem.Kind.IsValue() {
		reflect.Copy(dup, src)
		return out
	}
	index := c.next(cls)
	c.queue = append(c.queue, func() {
		for i, n := 0, src.Len(); i < n; i++ {
			if err := repo.Assign(dup.Index(i), c.ref(src.Index(i).Interface())); err != nil {
				c.fail(cls, "", index, err)
			}
		}
	})
	return out
}

// cloned returns true if a member takes part in a clone.
func (c *cloner) cloned(cls *class.Class, m *class.Member) bool {
	return !m.Const && !c.cfg.Annotator.Member(cls, m).Unserialized
}

// members copies every member of src into dst, except those in skip.
func (c *cloner) members(cls *class.Class, index int, src, dst interface{}, skip map[*class.Member]bool) {
	for _, m := range cls.Members {
		if !c.cloned(cls, m) || m.Set == nil || skip[m] {
			continue
		}
		var v interface{}
		err := repo.Protect(func() { v = m.Get(src) })
		if err == nil {
			v = c.ref(v)
			err = repo.Protect(func() { m.Set(dst, v) })
		}
		if err != nil {
			c.fail(cls, m.Name, index, err)
		}
	}
}

// construct copies an object that can only be built by a constructor.
// Constructor arguments are copied first, so a constructor argument that
// leads back to the object being built is reported as a cycle.
func (c *cloner) construct(cls *class.Class, key, v interface{}) interface{} {
	index := c.next(cls)
	if c.building[key] {
		c.fail(cls, "", index, repo.ErrConstructorCycle)
		return nil
	}
	ctor, params := c.constructor(cls)
	if ctor == nil {
		c.fail(cls, "", index, errors.Errorf("%s has no usable constructor", cls.Identifier()))
		return nil
	}
	c.building[key] = true
	args := make([]interface{}, len(params))
	for i, m := range params {
		var arg interface{}
		if err := repo.Protect(func() { arg = m.Get(v) }); err != nil {
			c.fail(cls, m.Name, index, err)
		}
		args[i] = c.ref(arg)
	}
	delete(c.building, key)
	var dup interface{}
	var err error
	if perr := repo.Protect(func() { dup, err = ctor.Func(args) }); perr != nil {
		err = perr
	}
	if err != nil {
		c.fail(cls, "", index, err)
		return nil
	}
	c.copies[key] = dup
	skip := make(map[*class.Member]bool, len(params))
	for _, m := range params {
		skip[m] = true
	}
	c.queue = append(c.queue, func() { c.members(cls, index, v, dup, skip) })
	return dup
}

// constructor returns the first constructor whose parameters all name
// cloned members, compared without case.
func (c *cloner) constructor(cls *class.Class) (*class.Constructor, []*class.Member) {
	for i := range cls.Constructors {
		ctor := &cls.Constructors[i]
		params := make([]*class.Member, 0, len(ctor.Params))
		for _, p := range ctor.Params {
			for _, m := range cls.Members {
				if c.cloned(cls, m) && strings.EqualFold(m.Name, p) {
					params = append(params, m)
					break
				}
			}
		}
		if len(params) == len(ctor.Params) {
			return ctor, params
		}
	}
	return nil, nil
}

func (c *cloner) fail(cls *class.Class, member string, index int, err error) {
	c.failures.add(c.ctx, cls.Identifier(), member, index, err)
}
