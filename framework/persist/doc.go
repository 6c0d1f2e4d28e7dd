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

// Package persist saves and loads graphs of Go objects in a binary format
// that carries its own schema.
//
// A stream holds one block of instance data per type preceded by a schema table
// that names each type and its members. References between objects are
// written as (type, index) pairs, so shared and cyclic references survive a
// round trip. Because members are matched by name when loading, a stream
// written by an older build still loads after members or types were added,
// removed or renamed; values that no longer fit are skipped.
//
// Types must be described in a registry.Namespace before they can be saved:
//
//	type Node struct {
//		Name string
//		Next *Node
//	}
//
//	func init() {
//		registry.Global.Add(class.ObjectOf[Node]("app.Node",
//			class.Field("Name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
//			class.Field("Next", func(n *Node) *Node { return n.Next }, func(n *Node, v *Node) { n.Next = v }),
//		))
//	}
//
// Save and Load convert whole graphs. Open returns a Session that decodes
// instances only when they are asked for, and Clone deep copies a graph
// without going through a stream.
package persist
