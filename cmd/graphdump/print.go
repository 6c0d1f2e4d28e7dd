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

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/golang/protobuf/jsonpb"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/graphstore/graphstore/framework/persist"
)

type stream struct {
	File   string         `yaml:"file"`
	Header persist.Header `yaml:"header"`
	Roots  int            `yaml:"roots"`
	Types  []typeInfo     `yaml:"types"`
}

type typeInfo struct {
	Index      int          `yaml:"index"`
	Name       string       `yaml:"name"`
	Resolved   string       `yaml:"resolved,omitempty"`
	Kind       string       `yaml:"kind"`
	Objects    int          `yaml:"objects"`
	Offset     int64        `yaml:"offset"`
	Size       int64        `yaml:"size"`
	Private    bool         `yaml:"private,omitempty"`
	HasSubType bool         `yaml:"subtypes,omitempty"`
	Members    []memberInfo `yaml:"members,omitempty"`
}

type memberInfo struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Property bool   `yaml:"property,omitempty"`
}

func describe(file string, r *persist.Report, filter glob.Glob) stream {
	s := stream{File: file, Header: r.Header, Roots: r.Roots}
	for _, ts := range r.Types {
		if !filter.Match(ts.Name) {
			continue
		}
		t := typeInfo{
			Index:      ts.Index,
			Name:       ts.Name,
			Kind:       ts.Kind.String(),
			Objects:    ts.NumObjects,
			Offset:     ts.DataOffset,
			Size:       ts.DataSize,
			Private:    ts.IsPrivate,
			HasSubType: ts.HasSubType,
		}
		if ts.Class != nil {
			t.Resolved = ts.Class.Identifier()
		}
		for _, m := range ts.Members() {
			t.Members = append(t.Members, memberInfo{
				Name:     m.Name,
				Type:     r.Types[m.TypeIndex].Name,
				Property: m.Property,
			})
		}
		s.Types = append(s.Types, t)
	}
	return s
}

var printers = map[format]func(io.Writer, stream) error{
	textFormat: printText,
	jsonFormat: printJSON,
	yamlFormat: printYAML,
}

func printText(w io.Writer, s stream) error {
	fmt.Fprintf(w, "%s: %q version %d, %d bytes, %d primitive roots\n",
		s.File, s.Header.Name, s.Header.Version, s.Header.Length, s.Roots)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tKIND\tOBJECTS\tOFFSET\tSIZE\tRESOLVED")
	for _, t := range s.Types {
		resolved := t.Resolved
		if resolved == "" {
			resolved = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n", t.Index, t.Name, t.Kind, t.Objects, t.Offset, t.Size, resolved)
		for _, m := range t.Members {
			fmt.Fprintf(tw, "\t  %s\t%s\t\t\t\t\n", m.Name, m.Type)
		}
	}
	return tw.Flush()
}

func printYAML(w io.Writer, s stream) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "encoding yaml")
	}
	return enc.Close()
}

func printJSON(w io.Writer, s stream) error {
	types := make([]interface{}, len(s.Types))
	for i, t := range s.Types {
		members := make([]interface{}, len(t.Members))
		for j, m := range t.Members {
			members[j] = map[string]interface{}{"name": m.Name, "type": m.Type, "property": m.Property}
		}
		types[i] = map[string]interface{}{
			"index":    t.Index,
			"name":     t.Name,
			"resolved": t.Resolved,
			"kind":     t.Kind,
			"objects":  t.Objects,
			"offset":   t.Offset,
			"size":     t.Size,
			"private":  t.Private,
			"subtypes": t.HasSubType,
			"members":  members,
		}
	}
	msg, err := structpb.NewStruct(map[string]interface{}{
		"file": s.File,
		"header": map[string]interface{}{
			"version": s.Header.Version,
			"name":    s.Header.Name,
			"length":  s.Header.Length,
		},
		"roots": s.Roots,
		"types": types,
	})
	if err != nil {
		return errors.Wrap(err, "building json")
	}
	m := jsonpb.Marshaler{Indent: "  "}
	if err := m.Marshal(w, msg); err != nil {
		return errors.Wrap(err, "encoding json")
	}
	_, err = fmt.Fprintln(w)
	return err
}
