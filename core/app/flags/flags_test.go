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

package flags_test

import (
	"io"
	"testing"

	"github.com/graphstore/graphstore/core/app/flags"
	"github.com/graphstore/graphstore/core/assert"
)

type level int

const (
	low level = iota
	high
)

func (l level) String() string {
	switch l {
	case low:
		return "low"
	case high:
		return "high"
	default:
		return ""
	}
}

func (l *level) Choose(v interface{}) { *l = v.(level) }

type limits struct {
	Depth int
	Label string `name:"tag"`
}

type options struct {
	Verbose bool  `help:"log more"`
	Level   level `help:"detail level"`
	Paths   []string
	Counts  []int
	Limits  limits
}

func parse(t *testing.T, args ...string) (*options, error) {
	o := &options{}
	set := flags.NewSet("test", io.Discard)
	set.Bind("", o, "")
	return o, set.Parse(args...)
}

func TestBind(t *testing.T) {
	assert := assert.To(t)
	o, err := parse(t,
		"-verbose", "-level", "HIGH",
		"-paths", "a", "-paths", "b",
		"-counts", "3",
		"-limits-depth", "7", "-limits-tag", "x",
		"rest")
	assert.For("parse").ThatError(err).Succeeded()
	assert.For("bool").ThatBoolean(o.Verbose).IsTrue()
	assert.For("enum").That(o.Level).Equals(high)
	assert.For("repeated").ThatSlice(o.Paths).Equals([]string{"a", "b"})
	assert.For("repeated ints").ThatSlice(o.Counts).Equals([]int{3})
	assert.For("nested").ThatInteger(o.Limits.Depth).Equals(7)
	assert.For("renamed").ThatString(o.Limits.Label).Equals("x")
}

func TestBadChoice(t *testing.T) {
	assert := assert.To(t)
	_, err := parse(t, "-level", "medium")
	assert.For("unknown choice").ThatError(err).Failed()
}

func TestChoices(t *testing.T) {
	assert := assert.To(t)
	l := low
	c := flags.ForEnum(&l)
	assert.For("choices").ThatSlice(c.Choices).IsLength(2)
	assert.For("names").ThatString(c.Choices.String()).Equals(`"low", "high"`)
	assert.For("set").ThatError(c.Set("high")).Succeeded()
	assert.For("chosen").That(l).Equals(high)
}

func TestUsage(t *testing.T) {
	assert := assert.To(t)
	o := &options{Level: high}
	set := flags.NewSet("test", io.Discard)
	set.Bind("", o, "")
	usage := set.Usage()
	assert.For("help").ThatString(usage).Contains("log more")
	assert.For("choices").ThatString(usage).Contains(`[one of: "low", "high"]`)
	assert.For("default").ThatString(usage).Contains("(default high)")
}
