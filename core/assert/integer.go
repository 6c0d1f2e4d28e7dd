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

package assert

// OnInteger is the result of calling ThatInteger on an Assertion.
type OnInteger struct {
	Assertion
	value int
}

// ThatInteger returns an OnInteger for integer based assertions.
func (a Assertion) ThatInteger(value int) OnInteger {
	return OnInteger{Assertion: a, value: value}
}

// Equals asserts that the integer equals expect.
func (o OnInteger) Equals(expect int) bool {
	return o.Compare(o.value, "==", expect).Test(o.value == expect)
}

// IsAtLeast asserts that the integer is >= min.
func (o OnInteger) IsAtLeast(min int) bool {
	return o.Compare(o.value, ">=", min).Test(o.value >= min)
}

// IsAtMost asserts that the integer is <= max.
func (o OnInteger) IsAtMost(max int) bool {
	return o.Compare(o.value, "<=", max).Test(o.value <= max)
}

// OnBoolean is the result of calling ThatBoolean on an Assertion.
type OnBoolean struct {
	Assertion
	value bool
}

// ThatBoolean returns an OnBoolean for boolean based assertions.
func (a Assertion) ThatBoolean(value bool) OnBoolean {
	return OnBoolean{Assertion: a, value: value}
}

// IsTrue asserts that the value is true.
func (o OnBoolean) IsTrue() bool {
	return o.Compare(o.value, "==", true).Test(o.value)
}

// IsFalse asserts that the value is false.
func (o OnBoolean) IsFalse() bool {
	return o.Compare(o.value, "==", false).Test(!o.value)
}
