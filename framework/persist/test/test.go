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

// Package test holds the types and namespaces shared by the persist tests.
package test

import (
	"math"
	"reflect"

	"github.com/pkg/errors"

	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/registry"
)

type Color uint8

const (
	Red Color = iota
	Green
	Blue
)

type Tag struct {
	Key, Value string
}

type Shape interface{ Area() float64 }

type Circle struct{ R float64 }

func (c *Circle) Area() float64 { return math.Pi * c.R * c.R }

type Square struct{ S float64 }

func (s *Square) Area() float64 { return s.S * s.S }

// Point can only be built through NewPoint.
type Point struct{ x, y int32 }

func NewPoint(x, y int32) *Point { return &Point{x, y} }

func (p *Point) X() int32 { return p.x }
func (p *Point) Y() int32 { return p.y }

// Pair is built by a constructor from two references, which may lead back
// to the pair itself.
type Pair struct{ first, second interface{} }

// Loop returns a pair whose second element is the pair itself.
func Loop(first interface{}) *Pair {
	p := &Pair{first: first}
	p.second = p
	return p
}

func (p *Pair) First() interface{}  { return p.first }
func (p *Pair) Second() interface{} { return p.second }

// Secret is a private type.
type Secret struct{ Code string }

// Shared is never copied by Clone.
type Shared struct{ Name string }

// Faulty has members whose accessors fail on demand.
type Faulty struct {
	Value   int32
	Explode bool
	Fragile int32
}

// Bag hands out copies of its contents, so every read returns new values.
type Bag struct {
	keys []string
	tag  *Tag
}

func NewBag(tag *Tag, keys ...string) *Bag { return &Bag{keys: keys, tag: tag} }

func (b *Bag) Keys() []string     { return append([]string(nil), b.keys...) }
func (b *Bag) SetKeys(k []string) { b.keys = k }

func (b *Bag) Tag() *Tag {
	if b.tag == nil {
		return nil
	}
	dup := *b.tag
	return &dup
}

func (b *Bag) SetTag(t *Tag) { b.tag = t }

type Widget struct {
	Size  int32
	Label string
}

type Node struct {
	Name     string
	Self     *Node
	Items    []int32
	Children []*Node
	Tag      *Tag
	Other    *Tag
	Colour   Color
	Weight   float64
	Count    int32
	Data     []byte
	Extra    interface{}
	Kind     reflect.Type
	Shape    Shape
	Point    *Point
	Secret   *Secret
	Shared   *Shared
	Faulty   *Faulty
	Widget   *Widget
	Tags     []*Tag
	Grid     [][]int32
	Scratch  int
	secret   string
}

// SetSecret sets the private member of n.
func (n *Node) SetSecret(s string) { n.secret = s }

// GetSecret returns the private member of n.
func (n *Node) GetSecret() string { return n.secret }

// ErrExplode is the panic raised by Faulty accessors.
var ErrExplode = errors.New("explode")

// Namespace returns a new namespace with every test type registered.
func Namespace() *registry.Namespace { return build(false) }

// Drifted returns a new namespace as a later build would register the test
// types: Tag is gone, Widget was renamed Gizmo, Point moved to version 2,
// Node lost Weight and its Count member became a string.
func Drifted() *registry.Namespace { return build(true) }

func build(drifted bool) *registry.Namespace {
	ns := registry.NewNamespace(registry.Builtins)
	ns.Add(class.EnumOf[Color]("test.Color"))
	if !drifted {
		ns.Add(class.ObjectOf[Tag]("test.Tag",
			class.Field("Key", func(t *Tag) string { return t.Key }, func(t *Tag, v string) { t.Key = v }),
			class.Field("Value", func(t *Tag) string { return t.Value }, func(t *Tag, v string) { t.Value = v }),
		))
	}
	ns.Add(class.InterfaceOf[Shape]("test.Shape"))
	ns.Add(class.ObjectOf[Circle]("test.Circle",
		class.Field("R", func(c *Circle) float64 { return c.R }, func(c *Circle, v float64) { c.R = v }),
	))
	ns.Add(class.ObjectOf[Square]("test.Square",
		class.Field("S", func(s *Square) float64 { return s.S }, func(s *Square, v float64) { s.S = v }),
	))
	point := class.ObjectOf[Point]("test.Point",
		class.Property("X", (*Point).X, nil),
		class.Property("Y", (*Point).Y, nil),
	).WithConstructor([]string{"x", "y"}, func(args []interface{}) (interface{}, error) {
		x, _ := args[0].(int32)
		y, _ := args[1].(int32)
		return NewPoint(x, y), nil
	})
	if drifted {
		point.WithVersion("2")
	} else {
		point.WithVersion("1")
	}
	ns.Add(point)
	ns.Add(class.ObjectOf[Pair]("test.Pair",
		class.Property("First", (*Pair).First, nil),
		class.Property("Second", (*Pair).Second, nil),
	).WithConstructor([]string{"first", "second"}, func(args []interface{}) (interface{}, error) {
		return &Pair{args[0], args[1]}, nil
	}))
	ns.Add(class.ObjectOf[Secret]("test.Secret",
		class.Field("Code", func(s *Secret) string { return s.Code }, func(s *Secret, v string) { s.Code = v }),
	).WithVisibility(class.Private))
	ns.Add(class.ObjectOf[Shared]("test.Shared",
		class.Field("Name", func(s *Shared) string { return s.Name }, func(s *Shared, v string) { s.Name = v }),
	).NotCloned())
	ns.Add(class.ObjectOf[Faulty]("test.Faulty",
		class.Field("Value", func(f *Faulty) int32 {
			if f.Explode {
				panic(ErrExplode)
			}
			return f.Value
		}, func(f *Faulty, v int32) { f.Value = v }),
		class.Field("Fragile", func(f *Faulty) int32 { return f.Fragile }, func(f *Faulty, v int32) {
			if v < 0 {
				panic(ErrExplode)
			}
			f.Fragile = v
		}),
	))
	ns.Add(class.ObjectOf[Bag]("test.Bag",
		class.Property("Keys", (*Bag).Keys, (*Bag).SetKeys),
		class.Property("Tag", (*Bag).Tag, (*Bag).SetTag),
	))
	widget := class.ObjectOf[Widget]("test.Widget",
		class.Field("Size", func(w *Widget) int32 { return w.Size }, func(w *Widget, v int32) { w.Size = v }),
		class.Field("Label", func(w *Widget) string { return w.Label }, func(w *Widget, v string) { w.Label = v }),
	)
	if drifted {
		widget.Name = "test.Gizmo"
		ns.AddAlias("test.Gizmo", "test.Widget")
	}
	ns.Add(widget)

	members := []*class.Member{
		class.Field("Name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
		class.Field("Self", func(n *Node) *Node { return n.Self }, func(n *Node, v *Node) { n.Self = v }),
		class.Field("Items", func(n *Node) []int32 { return n.Items }, func(n *Node, v []int32) { n.Items = v }),
		class.Field("Children", func(n *Node) []*Node { return n.Children }, func(n *Node, v []*Node) { n.Children = v }),
		class.Field("Tag", func(n *Node) *Tag { return n.Tag }, func(n *Node, v *Tag) { n.Tag = v }),
		class.Field("Other", func(n *Node) *Tag { return n.Other }, func(n *Node, v *Tag) { n.Other = v }),
		class.Field("Colour", func(n *Node) Color { return n.Colour }, func(n *Node, v Color) { n.Colour = v }),
	}
	if drifted {
		members = append(members,
			class.Field("Count", func(n *Node) string { return "" }, func(n *Node, v string) {}),
		)
	} else {
		members = append(members,
			class.Field("Weight", func(n *Node) float64 { return n.Weight }, func(n *Node, v float64) { n.Weight = v }),
			class.Field("Count", func(n *Node) int32 { return n.Count }, func(n *Node, v int32) { n.Count = v }),
		)
	}
	members = append(members,
		class.Field("Data", func(n *Node) []byte { return n.Data }, func(n *Node, v []byte) { n.Data = v }),
		class.Field("Extra", func(n *Node) interface{} { return n.Extra }, func(n *Node, v interface{}) { n.Extra = v }),
		class.Field("Kind", func(n *Node) reflect.Type { return n.Kind }, func(n *Node, v reflect.Type) { n.Kind = v }),
		class.Field("Shape", func(n *Node) Shape { return n.Shape }, func(n *Node, v Shape) { n.Shape = v }),
		class.Field("Point", func(n *Node) *Point { return n.Point }, func(n *Node, v *Point) { n.Point = v }),
		class.Field("Secret", func(n *Node) *Secret { return n.Secret }, func(n *Node, v *Secret) { n.Secret = v }),
		class.Field("Shared", func(n *Node) *Shared { return n.Shared }, func(n *Node, v *Shared) { n.Shared = v }),
		class.Field("Faulty", func(n *Node) *Faulty { return n.Faulty }, func(n *Node, v *Faulty) { n.Faulty = v }),
		class.Field("Widget", func(n *Node) *Widget { return n.Widget }, func(n *Node, v *Widget) { n.Widget = v }),
		class.Field("Tags", func(n *Node) []*Tag { return n.Tags }, func(n *Node, v []*Tag) { n.Tags = v }),
		class.Field("Grid", func(n *Node) [][]int32 { return n.Grid }, func(n *Node, v [][]int32) { n.Grid = v }),
		class.Field("Scratch", func(n *Node) int { return n.Scratch }, func(n *Node, v int) { n.Scratch = v }).Excluded(),
		class.Property("secret", (*Node).GetSecret, (*Node).SetSecret).Private(),
		class.Constant("Version", func(n *Node) int32 { return 3 }),
	)
	ns.Add(class.ObjectOf[Node]("test.Node", members...))
	return ns
}
