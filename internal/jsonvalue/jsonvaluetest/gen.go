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

// Package jsonvaluetest provides rapid generators for JSON values used by
// property tests across the trace pipeline.
package jsonvaluetest

import (
	"pgregory.net/rapid"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// KeyPool is the key alphabet used by generated objects. It is deliberately
// small so that generated redaction keys collide with record keys often.
var KeyPool = []string{
	"email", "Email", "password", "phone", "address", "name", "id",
	"headers", "x-request-id", "token", "nested", "items", "_miboTrace", "",
}

// Key draws an object key from KeyPool.
func Key() *rapid.Generator[string] {
	return rapid.SampledFrom(KeyPool)
}

// Primitive generates null, booleans, numbers and strings.
func Primitive() *rapid.Generator[jsonvalue.Value] {
	return rapid.Custom(func(t *rapid.T) jsonvalue.Value {
		switch rapid.IntRange(0, 4).Draw(t, "primitive") {
		case 0:
			return jsonvalue.Null{}
		case 1:
			return jsonvalue.Bool(rapid.Bool().Draw(t, "bool"))
		case 2:
			return jsonvalue.Int(rapid.Int64().Draw(t, "int"))
		case 3:
			return jsonvalue.Number(rapid.SampledFrom([]string{"0.5", "-1.25e3", "1e-7", "123456789012345678901234567890"}).Draw(t, "num"))
		default:
			return jsonvalue.String(rapid.String().Draw(t, "string"))
		}
	})
}

// Value generates arbitrary JSON values nested at most depth levels.
func Value(depth int) *rapid.Generator[jsonvalue.Value] {
	return rapid.Custom(func(t *rapid.T) jsonvalue.Value {
		if depth <= 0 {
			return Primitive().Draw(t, "leaf")
		}
		switch rapid.IntRange(0, 2).Draw(t, "shape") {
		case 0:
			return Primitive().Draw(t, "leaf")
		case 1:
			n := rapid.IntRange(0, 4).Draw(t, "len")
			arr := make(jsonvalue.Array, 0, n)
			for i := 0; i < n; i++ {
				arr = append(arr, Value(depth-1).Draw(t, "elem"))
			}
			return arr
		default:
			return Object(depth-1).Draw(t, "object")
		}
	})
}

// Object generates objects whose values nest at most depth levels.
func Object(depth int) *rapid.Generator[*jsonvalue.Object] {
	return rapid.Custom(func(t *rapid.T) *jsonvalue.Object {
		obj := jsonvalue.NewObject()
		n := rapid.IntRange(0, 5).Draw(t, "fields")
		for i := 0; i < n; i++ {
			obj.Set(Key().Draw(t, "key"), Value(depth).Draw(t, "value"))
		}
		return obj
	})
}

// Records generates a batch of up to max records.
func Records(max int) *rapid.Generator[[]*jsonvalue.Object] {
	return rapid.SliceOfN(Object(3), 0, max)
}
