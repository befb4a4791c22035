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

package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
)

// FromAny converts the output of encoding/json or gojq into a Value. Map keys
// are ordered lexicographically since Go maps carry no order.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case float64:
		return floatNumber(t)
	case float32:
		return floatNumber(float64(t))
	case *big.Int:
		return Number(t.String()), nil
	case []any:
		arr := make(Array, 0, len(t))
		for _, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("jsonvalue: cannot convert %T", x)
	}
}

func floatNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("jsonvalue: %v is not representable in JSON", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return Int(int64(f)), nil
	}
	return Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// ToAny converts v into the generic shapes understood by gojq: nil, bool,
// int, float64, *big.Int, string, []any and map[string]any.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(t)
	case String:
		return string(t)
	case Number:
		if i, err := t.Int64(); err == nil {
			if i >= math.MinInt && i <= math.MaxInt {
				return int(i)
			}
		}
		if bi, ok := new(big.Int).SetString(string(t), 10); ok {
			return bi
		}
		f, _ := t.Float64()
		return f
	case Array:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ToAny(e)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		t.Range(func(k string, e Value) bool {
			out[k] = ToAny(e)
			return true
		})
		return out
	default:
		return nil
	}
}

// Equal reports structural equality. Object key order is ignored; numbers are
// equal when their literals match or they denote the same float64.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		fx, errx := x.Float64()
		fy, erry := y.Float64()
		return errx == nil && erry == nil && fx == fy
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Range(func(k string, xv Value) bool {
			yv, found := y.Get(k)
			equal = found && Equal(xv, yv)
			return equal
		})
		return equal
	}
	return false
}
