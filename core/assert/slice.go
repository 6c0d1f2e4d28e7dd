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

import "reflect"

// OnSlice is the result of calling ThatSlice on an Assertion.
type OnSlice struct {
	Assertion
	slice interface{}
}

// ThatSlice returns an OnSlice for assertions on slice type objects.
// Calling any method on the result panics if slice is not a slice or array.
func (a Assertion) ThatSlice(slice interface{}) OnSlice {
	return OnSlice{Assertion: a, slice: slice}
}

func (o OnSlice) len() int { return reflect.ValueOf(o.slice).Len() }

// IsEmpty asserts that the slice has no elements.
func (o OnSlice) IsEmpty() bool {
	return o.Compare(o.len(), "is", "empty").Test(o.len() == 0)
}

// IsNotEmpty asserts that the slice has elements.
func (o OnSlice) IsNotEmpty() bool {
	return o.Compare(o.len(), "length >", 0).Test(o.len() > 0)
}

// IsLength asserts that the slice has exactly length elements.
func (o OnSlice) IsLength(length int) bool {
	return o.Compare(o.len(), "length ==", length).Test(o.len() == length)
}

// Equals asserts that the slice elements are == to those of expected.
func (o OnSlice) Equals(expected interface{}) bool {
	return o.compare(expected, func(a, b interface{}) bool { return a == b })
}

// DeepEquals asserts that the slice elements are reflect.DeepEqual to those
// of expected.
func (o OnSlice) DeepEquals(expected interface{}) bool {
	return o.compare(expected, reflect.DeepEqual)
}

func (o OnSlice) compare(expected interface{}, same func(a, b interface{}) bool) bool {
	got, expect := reflect.ValueOf(o.slice), reflect.ValueOf(expected)
	equal := got.Len() == expect.Len()
	for i := 0; i < got.Len() || i < expect.Len(); i++ {
		switch {
		case i >= got.Len():
			o.Printf("-\t%d\t", i).Println(expect.Index(i).Interface())
		case i >= expect.Len():
			o.Printf("+\t%d\t", i).Println(got.Index(i).Interface())
		default:
			g, e := got.Index(i).Interface(), expect.Index(i).Interface()
			if same(g, e) {
				o.Printf("\t%d\t", i).Println(g)
			} else {
				o.Printf("*\t%d\t", i).Println(g, "==>", e)
				equal = false
			}
		}
	}
	return o.Test(equal)
}
