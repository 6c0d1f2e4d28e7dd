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

package flags

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type (
	// Choice is a value of an enumerated type.
	Choice interface {
		String() string
	}

	// Choices is the set of values of an enumerated type.
	Choices []Choice

	// Enum is an enumerated value. Anything that implements Enum can be
	// bound directly as a flag.
	Enum interface {
		// String is the name of the current value, used for matching.
		String() string
		// Choose is handed a value from the choices to set.
		Choose(interface{})
	}

	// Chooser selects an Enum value by name. It is a flag.Value.
	Chooser struct {
		Value   Enum
		Choices Choices
	}
)

// String returns the name of the current value.
func (c Chooser) String() string {
	if c.Value == nil {
		return ""
	}
	return c.Value.String()
}

// Set chooses the choice whose name matches value, ignoring case.
func (c Chooser) Set(value string) error {
	for _, e := range c.Choices {
		if strings.EqualFold(e.String(), value) {
			c.Value.Choose(e)
			return nil
		}
	}
	return fmt.Errorf("Unknown value %q, valid options are: %s", value, c.Choices)
}

// String returns the quoted names of the choices, comma separated.
func (c Choices) String() string {
	var b bytes.Buffer
	for _, e := range c {
		if b.Len() > 0 {
			fmt.Fprint(&b, ", ")
		}
		fmt.Fprintf(&b, "%q", e.String())
	}
	return b.String()
}

// ForEnum builds a Chooser for a 0 based sequential integer enum.
// Values are collected from 0 until String returns "" or the number itself.
func ForEnum(v Enum) Chooser {
	t := reflect.ValueOf(v).Elem().Type()
	c := Chooser{Value: v}
	for i := 0; i < 1000; i++ {
		ptr := reflect.New(t).Elem()
		switch ptr.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			ptr.SetInt(int64(i))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			ptr.SetUint(uint64(i))
		default:
			panic("Invalid enum kind")
		}
		e := ptr.Interface().(Choice)
		if name := e.String(); name == strconv.Itoa(i) || name == "" {
			break
		}
		c.Choices = append(c.Choices, e)
	}
	return c
}
