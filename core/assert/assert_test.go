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

package assert_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/graphstore/graphstore/core/assert"
	"github.com/pkg/errors"
)

// recorder is an assert.Output that keeps the last message.
type recorder struct {
	errors int
	last   string
}

func (r *recorder) Fatal(args ...interface{}) { r.Error(args...) }
func (r *recorder) Error(args ...interface{}) { r.errors++; r.last = fmt.Sprint(args...) }
func (r *recorder) Log(args ...interface{})   {}

func TestValue(t *testing.T) {
	r := &recorder{}
	ctx := assert.To(r)
	ptr := &struct{ A int }{1}
	var typedNil *int

	ctx.For("same").That(ptr).Equals(ptr)
	ctx.For("nil").That(typedNil).IsNil()
	ctx.For("deep").That([]int{1, 2}).DeepEquals([]int{1, 2})
	ctx.For("not nil").That(ptr).IsNotNil()
	if r.errors != 0 {
		t.Fatalf("Passing assertions reported %d failures: %s", r.errors, r.last)
	}

	if ctx.For("different").That(ptr).Equals(&struct{ A int }{1}) {
		t.Errorf("Distinct pointers compared equal")
	}
	if r.errors != 1 || !strings.HasPrefix(r.last, "Error:different") {
		t.Errorf("Unexpected failure output %q", r.last)
	}
}

func TestError(t *testing.T) {
	r := &recorder{}
	ctx := assert.To(r)
	cause := errors.New("root")
	wrapped := errors.Wrap(cause, "outer")

	ctx.For("nil").ThatError(nil).Succeeded()
	ctx.For("failed").ThatError(wrapped).Failed()
	ctx.For("cause").ThatError(wrapped).HasCause(cause)
	ctx.For("message").ThatError(wrapped).HasMessage("outer: root")
	if r.errors != 0 {
		t.Fatalf("Passing assertions reported %d failures: %s", r.errors, r.last)
	}
	if ctx.For("message").ThatError(nil).HasMessage("x") {
		t.Errorf("HasMessage passed on a nil error")
	}
}

func TestSlice(t *testing.T) {
	r := &recorder{}
	ctx := assert.To(r)
	ctx.For("equal").ThatSlice([]int{1, 2, 3}).Equals([]int{1, 2, 3})
	ctx.For("length").ThatSlice([]string{"a"}).IsLength(1)
	ctx.For("empty").ThatSlice([]string{}).IsEmpty()
	if r.errors != 0 {
		t.Fatalf("Passing assertions reported %d failures: %s", r.errors, r.last)
	}
	if ctx.For("short").ThatSlice([]int{1, 2}).Equals([]int{1, 2, 3}) {
		t.Errorf("Slices of different length compared equal")
	}
	if ctx.For("differ").ThatSlice([]int{1, 5}).Equals([]int{1, 2}) {
		t.Errorf("Differing slices compared equal")
	}
}
