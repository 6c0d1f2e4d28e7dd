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

// Package assert is a fluent assertion library for tests.
//
// An assertion starts with For, naming what is being checked, and is then
// narrowed by the type of the value under test:
//
//	ctx := log.Testing(t)
//	assert.For(ctx, "decoded").That(got).DeepEquals(want)
//	assert.For(ctx, "err").ThatError(err).Succeeded()
//
// Each terminal method returns whether the assertion held, so tests can bail
// out early when later checks depend on it.
package assert

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"
	"unicode"
)

type level int

const (
	// Log is the informational level.
	Log = level(iota)
	// Error is used for things that cause test failures but do not abort.
	Error
	// Fatal is used for failures that cause the running test to immediately stop.
	Fatal
)

func (l level) String() string {
	switch l {
	case Log:
		return "Info"
	case Error:
		return "Error"
	case Fatal:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Assertion is the type for the start of an assertion line.
// You construct an assertion from an Output using assert.For.
type Assertion struct {
	level level
	out   *bytes.Buffer
	to    Output
}

// Critical switches the assertion to stop the test on failure.
func (a *Assertion) Critical() *Assertion {
	a.level = Fatal
	return a
}

func (a Assertion) printValue(value interface{}) {
	switch value := value.(type) {
	case error:
		fmt.Fprintf(a.out, "`%v`", value)
	case string:
		fmt.Fprintf(a.out, "`%s`", value)
	default:
		fmt.Fprint(a.out, value)
	}
}

// Println prints each value, tab separated, followed by a new line.
func (a *Assertion) Println(args ...interface{}) *Assertion {
	for i, v := range args {
		if i != 0 {
			a.out.WriteString("\t")
		}
		a.printValue(v)
	}
	a.out.WriteString("\n    ")
	return a
}

// Printf writes a formatted message to the assertion text.
func (a *Assertion) Printf(format string, args ...interface{}) *Assertion {
	fmt.Fprintf(a.out, format, args...)
	return a
}

// Add appends a named line of values to the assertion text.
func (a *Assertion) Add(key string, values ...interface{}) *Assertion {
	a.out.WriteString(key)
	a.out.WriteString("\t\t")
	return a.Println(values...)
}

// Got adds the value that was observed.
func (a *Assertion) Got(values ...interface{}) *Assertion {
	return a.Add("Got", values...)
}

// Expect adds the comparison and expected value.
func (a *Assertion) Expect(op string, values ...interface{}) *Assertion {
	a.out.WriteString("Expect\t")
	a.out.WriteString(op)
	a.out.WriteString("\t")
	return a.Println(values...)
}

// Compare is shorthand for Got(value).Expect(op, expect...).
func (a *Assertion) Compare(value interface{}, op string, expect ...interface{}) *Assertion {
	return a.Got(value).Expect(op, expect...)
}

// Test commits the assertion as a failure if condition is false.
func (a *Assertion) Test(condition bool) bool {
	if !condition {
		if a.level < Error {
			a.level = Error
		}
		a.Commit()
	}
	return condition
}

// TestDeepEqual compares value and expect with reflect.DeepEqual.
func (a *Assertion) TestDeepEqual(value, expect interface{}) bool {
	return a.Compare(value, "deep ==", expect).Test(reflect.DeepEqual(value, expect))
}

// TestDeepNotEqual fails if value and expect are reflect.DeepEqual.
func (a *Assertion) TestDeepNotEqual(value, expect interface{}) bool {
	return a.Compare(value, "deep !=", expect).Test(!reflect.DeepEqual(value, expect))
}

// Commit sends the assertion text to the output at the assertion level.
func (a Assertion) Commit() {
	buf := &bytes.Buffer{}
	tabs := tabwriter.NewWriter(buf, 1, 4, 1, ' ', tabwriter.StripEscape)
	tabs.Write(a.out.Bytes())
	tabs.Flush()
	message := a.level.String() + ":" + strings.TrimRightFunc(buf.String(), unicode.IsSpace)
	switch a.level {
	case Error:
		a.to.Error(message)
	case Fatal:
		a.to.Fatal(message)
	default:
		a.to.Log(message)
	}
}
