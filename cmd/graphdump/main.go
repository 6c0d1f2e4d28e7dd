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

// The graphdump command prints the header and type table of graph streams.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/core/app/flags"
	"github.com/graphstore/graphstore/core/log"
	"github.com/graphstore/graphstore/framework/persist"
	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/registry"
)

func main() {
	ctx := log.PutHandler(context.Background(), log.Writer(log.Normal, os.Stderr))
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.E(ctx, "%v", err)
		os.Exit(1)
	}
}

type format int

const (
	textFormat format = iota
	jsonFormat
	yamlFormat
)

func (f format) String() string {
	switch f {
	case textFormat:
		return "text"
	case jsonFormat:
		return "json"
	case yamlFormat:
		return "yaml"
	default:
		return ""
	}
}

func (f *format) Choose(v interface{}) { *f = v.(format) }

type options struct {
	Format  format   `help:"output format"`
	Types   []string `help:"glob of the type names to list, may be repeated"`
	Config  string   `help:"YAML configuration file"`
	Classes bool     `help:"list the registered classes streams are resolved against"`
}

// anyOf matches a name against any of its globs. It matches everything when
// empty.
type anyOf []glob.Glob

func (a anyOf) Match(name string) bool {
	for _, g := range a {
		if g.Match(name) {
			return true
		}
	}
	return len(a) == 0
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts := &options{}
	set := flags.NewSet("graphdump", os.Stderr)
	set.Bind("", opts, "")
	set.Raw.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: graphdump [flags] stream...\n%s\n", set.Usage())
	}
	if err := set.Parse(args...); err != nil {
		return err
	}
	if len(set.Args()) == 0 && !opts.Classes {
		return errors.New("no stream files given")
	}
	filter := anyOf{}
	for _, pattern := range opts.Types {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return errors.Wrapf(err, "bad type glob %q", pattern)
		}
		filter = append(filter, g)
	}
	cfg := persist.Config{}
	if opts.Config != "" {
		var err error
		if cfg, err = persist.LoadConfig(opts.Config); err != nil {
			return err
		}
	}
	if opts.Classes {
		listClasses(out, cfg.Namespace)
	}
	printer := printers[opts.Format]
	for _, path := range set.Args() {
		ctx := log.Enter(ctx, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return log.Err(ctx, err, "Reading stream")
		}
		report, err := persist.Inspect(ctx, data, cfg)
		if err != nil {
			return log.Errf(ctx, err, "Inspecting %d bytes", len(data))
		}
		if err := printer(out, describe(path, report, filter)); err != nil {
			return err
		}
	}
	return nil
}

// listClasses prints every class reachable from ns, or from the global
// namespace if ns is nil.
func listClasses(out io.Writer, ns *registry.Namespace) {
	if ns == nil {
		ns = registry.Global
	}
	fmt.Fprintf(out, "%d classes\n", ns.Count())
	ns.Visit(func(c *class.Class) {
		fmt.Fprintf(out, "  %s\t%s\n", c.Identifier(), c.Kind)
	})
}
