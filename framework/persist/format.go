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

package persist

// FormatVersion is the version of the stream layout written by Save.
const FormatVersion uint32 = 1

// Magic separates the schema table from the per-type headers.
const Magic uint32 = 0x4752414B

// typeHeaderSize is the size in bytes of one per-type header slot.
const typeHeaderSize = 2 + 4 + 8

// maxTypes is the number of types a single stream can describe.
const maxTypes = 0xffff

// Header is the fixed part at the start of a stream.
type Header struct {
	Version uint32 `yaml:"version"`
	Name    string `yaml:"name"`
	Length  int64  `yaml:"length"`
}

// ref locates one instance.
type ref struct {
	typ, index int
}
