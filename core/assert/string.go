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

import (
	"fmt"
	"strings"
)

// OnString is the result of calling ThatString on an Assertion.
type OnString struct {
	Assertion
	value string
}

// ThatString returns an OnString for string based assertions.
// Values that are not strings or byte slices are formatted with fmt.Sprint.
func (a Assertion) ThatString(value interface{}) OnString {
	switch v := value.(type) {
	case string:
		return OnString{Assertion: a, value: v}
	case []byte:
		return OnString{Assertion: a, value: string(v)}
	default:
		return OnString{Assertion: a, value: fmt.Sprint(value)}
	}
}

// Equals asserts that the string equals expect.
func (o OnString) Equals(expect string) bool {
	return o.Compare(o.value, "==", expect).Test(o.value == expect)
}

// Contains asserts that the string contains substr.
func (o OnString) Contains(substr string) bool {
	return o.Compare(o.value, "contains", substr).Test(strings.Contains(o.value, substr))
}

// HasPrefix asserts that the string starts with prefix.
func (o OnString) HasPrefix(prefix string) bool {
	return o.Compare(o.value, "starts with", prefix).Test(strings.HasPrefix(o.value, prefix))
}
