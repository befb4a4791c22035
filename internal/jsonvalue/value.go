// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jsonvalue is a closed model of JSON documents that keeps object key
// order and number literals exactly as they were decoded.
//
// Records flowing through the trace pipeline are arbitrary JSON. Holding them
// as map[string]any would lose key order and float-round large integers, which
// matters when the annotated records are handed back to the caller.
package jsonvalue

import (
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one of Null, Bool, Number, String, Array or *Object.
type Value interface {
	Kind() Kind
	MarshalJSON() ([]byte, error)
	isValue()
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number kept as its literal text.
type Number string

// String is a JSON string.
type String string

// Array is an ordered list of values.
type Array []Value

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}

func (n Null) MarshalJSON() ([]byte, error)   { return Marshal(n) }
func (b Bool) MarshalJSON() ([]byte, error)   { return Marshal(b) }
func (n Number) MarshalJSON() ([]byte, error) { return Marshal(n) }
func (s String) MarshalJSON() ([]byte, error) { return Marshal(s) }
func (a Array) MarshalJSON() ([]byte, error)  { return Marshal(a) }

// Int returns a Number holding the decimal form of i.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Float64 parses the number literal as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Int64 parses the number literal as an int64. Fails for fractions and
// exponents.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// IsComposite reports whether v is an Array or an Object.
func IsComposite(v Value) bool {
	switch v.(type) {
	case Array, *Object:
		return true
	}
	return false
}

// AsObject returns v as an object when it is one.
func AsObject(v Value) (*Object, bool) {
	o, ok := v.(*Object)
	return o, ok && o != nil
}

// AsString returns v as a Go string when it is a String.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}
