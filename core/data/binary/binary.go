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

// Package binary declares the Reader and Writer interfaces used to encode
// and decode fixed-width primitive values to and from a byte stream.
// Implementations are sticky on error: once a read or write fails every
// further call is a no-op returning the zero value, and Error reports the
// first failure.
package binary

import "fmt"

// Reader provides methods for decoding values.
type Reader interface {
	// Data reads the data bytes in their entirety.
	Data([]byte)
	// Bool decodes and returns a boolean value from the Reader.
	Bool() bool
	// Int8 decodes and returns a signed, 8 bit integer value from the Reader.
	Int8() int8
	// Uint8 decodes and returns an unsigned, 8 bit integer value from the Reader.
	Uint8() uint8
	// Int16 decodes and returns a signed, 16 bit integer value from the Reader.
	Int16() int16
	// Uint16 decodes and returns an unsigned, 16 bit integer value from the Reader.
	Uint16() uint16
	// Int32 decodes and returns a signed, 32 bit integer value from the Reader.
	Int32() int32
	// Uint32 decodes and returns an unsigned, 32 bit integer value from the Reader.
	Uint32() uint32
	// Float32 decodes and returns a 32 bit floating-point value from the Reader.
	Float32() float32
	// Int64 decodes and returns a signed, 64 bit integer value from the Reader.
	Int64() int64
	// Uint64 decodes and returns an unsigned, 64 bit integer value from the Reader.
	Uint64() uint64
	// Float64 decodes and returns a 64 bit floating-point value from the Reader.
	Float64() float64
	// String decodes and returns a length prefixed string from the Reader.
	String() string
	// Count decodes a collection count from the stream.
	Count() uint32
	// Error returns the error which stopped reading from the stream, or nil.
	Error() error
	// SetError sets the error state and stops reading from the stream.
	SetError(error)
}

// Writer provides methods for encoding values.
type Writer interface {
	// Data writes the data bytes in their entirety.
	Data([]byte)
	// Bool encodes a boolean value to the Writer.
	Bool(bool)
	// Int8 encodes a signed, 8 bit integer value to the Writer.
	Int8(int8)
	// Uint8 encodes an unsigned, 8 bit integer value to the Writer.
	Uint8(uint8)
	// Int16 encodes a signed, 16 bit integer value to the Writer.
	Int16(int16)
	// Uint16 encodes an unsigned, 16 bit integer value to the Writer.
	Uint16(uint16)
	// Int32 encodes a signed, 32 bit integer value to the Writer.
	Int32(int32)
	// Uint32 encodes an usigned, 32 bit integer value to the Writer.
	Uint32(uint32)
	// Float32 encodes a 32 bit floating-point value to the Writer.
	Float32(float32)
	// Int64 encodes a signed, 64 bit integer value to the Writer.
	Int64(int64)
	// Uint64 encodes an unsigned, 64 bit integer value to the Writer.
	Uint64(uint64)
	// Float64 encodes a 64 bit floating-point value to the Writer.
	Float64(float64)
	// String encodes a length prefixed string to the Writer.
	String(string)
	// Count encodes a collection count to the stream.
	Count(uint32)
	// Error returns the error which stopped writing to the stream, or nil.
	Error() error
	// SetError sets the error state and stops writing to the stream.
	SetError(error)
}

// ReadUint reads an unsigned integer of the given bit width.
func ReadUint(r Reader, bits int32) uint64 {
	switch bits {
	case 8:
		return uint64(r.Uint8())
	case 16:
		return uint64(r.Uint16())
	case 32:
		return uint64(r.Uint32())
	case 64:
		return r.Uint64()
	default:
		r.SetError(fmt.Errorf("Unsupported integer bit count %v", bits))
		return 0
	}
}

// ReadInt reads a signed integer of the given bit width.
func ReadInt(r Reader, bits int32) int64 {
	switch bits {
	case 8:
		return int64(r.Int8())
	case 16:
		return int64(r.Int16())
	case 32:
		return int64(r.Int32())
	case 64:
		return r.Int64()
	default:
		r.SetError(fmt.Errorf("Unsupported integer bit count %v", bits))
		return 0
	}
}

// WriteUint writes an unsigned integer of the given bit width.
func WriteUint(w Writer, bits int32, v uint64) {
	switch bits {
	case 8:
		w.Uint8(uint8(v))
	case 16:
		w.Uint16(uint16(v))
	case 32:
		w.Uint32(uint32(v))
	case 64:
		w.Uint64(v)
	default:
		w.SetError(fmt.Errorf("Unsupported integer bit count %v", bits))
	}
}

// WriteInt writes a signed integer of the given bit width.
func WriteInt(w Writer, bits int32, v int64) {
	switch bits {
	case 8:
		w.Int8(int8(v))
	case 16:
		w.Int16(int16(v))
	case 32:
		w.Int32(int32(v))
	case 64:
		w.Int64(v)
	default:
		w.SetError(fmt.Errorf("Unsupported integer bit count %v", bits))
	}
}
