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

// Package flags binds command line flags to the fields of option structs.
package flags

import (
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
)

// Set is a set of bound flags.
type Set struct {
	// Raw is the underlying flag set.
	Raw flag.FlagSet
}

// NewSet returns an empty set that reports parse errors to out.
func NewSet(name string, out io.Writer) *Set {
	s := &Set{}
	s.Raw.Init(name, flag.ContinueOnError)
	s.Raw.SetOutput(out)
	return s
}

// Bind uses reflection to bind flag values to the value.
// It will recurse into nested structures adding all leaf fields. Struct
// fields are named by their lower case name, or by the name tag, prefixed by
// the name of the enclosing struct field; help text comes from the help tag.
func (s *Set) Bind(name string, value interface{}, help string) {
	switch val := value.(type) {
	case *bool:
		s.Raw.BoolVar(val, name, *val, help)
		return
	case *int:
		s.Raw.IntVar(val, name, *val, help)
		return
	case *int64:
		s.Raw.Int64Var(val, name, *val, help)
		return
	case *string:
		s.Raw.StringVar(val, name, *val, help)
		return
	case *time.Duration:
		s.Raw.DurationVar(val, name, *val, help)
		return
	case Enum:
		chooser := ForEnum(val)
		s.Raw.Var(chooser, name, fmt.Sprintf("%s [one of: %s]", help, chooser.Choices))
		return
	case flag.Value:
		s.Raw.Var(val, name, help)
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("Flag value not a pointer: %v", rv.Type()))
	}
	switch e := rv.Elem(); e.Kind() {
	case reflect.Slice:
		s.Raw.Var(newRepeatedFlag(e), name, help)
	case reflect.Struct:
		t := e.Type()
		for i := 0; i < e.NumField(); i++ {
			tf := t.Field(i)
			if tf.PkgPath != "" {
				continue // Unexported.
			}
			fname := strings.ToLower(tf.Name)
			if n := tf.Tag.Get("name"); n != "" {
				fname = n
			}
			if tf.Anonymous {
				fname = ""
			}
			s.Bind(join(name, fname), e.Field(i).Addr().Interface(), tf.Tag.Get("help"))
		}
	default:
		panic(fmt.Sprintf("Unhandled flag type: %v", rv.Type()))
	}
}

func join(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "-" + name
	}
}

// Usage returns the usage string for the flags.
func (s *Set) Usage() string {
	b := &strings.Builder{}
	s.Raw.VisitAll(func(fl *flag.Flag) {
		name, usage := flag.UnquoteUsage(fl)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "  -%s %s\n\t%s", fl.Name, name, usage)
		if fl.DefValue != "" && fl.DefValue != "false" && fl.DefValue != "0" && fl.DefValue != "[]" {
			fmt.Fprintf(b, " (default %v)", fl.DefValue)
		}
	})
	return b.String()
}

// Parse processes the args to fill in the flags.
func (s *Set) Parse(args ...string) error {
	return s.Raw.Parse(args)
}

// Args returns the unprocessed part of the command line passed to Parse.
func (s *Set) Args() []string {
	return s.Raw.Args()
}
