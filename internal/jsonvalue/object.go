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
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object whose keys keep insertion order. Setting a key that
// already exists replaces its value without moving it.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

// ObjectOf builds an object from alternating key/value pairs, in order.
// Panics on an odd number of arguments or a non-string key.
func ObjectOf(pairs ...any) *Object {
	if len(pairs)%2 != 0 {
		panic("jsonvalue: ObjectOf requires key/value pairs")
	}
	o := NewObject()
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			panic("jsonvalue: ObjectOf key must be a string")
		}
		v, ok := pairs[i+1].(Value)
		if !ok {
			panic("jsonvalue: ObjectOf value must be a Value")
		}
		o.Set(k, v)
	}
	return o
}

func (*Object) Kind() Kind { return KindObject }
func (*Object) isValue()   {}

// MarshalJSON encodes the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) { return Marshal(o) }

// UnmarshalJSON decodes a JSON object, keeping key order. Anything other than
// an object is an error.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return &TypeError{Want: KindObject, Got: v.Kind()}
	}
	o.m = obj.m
	return nil
}

func (o *Object) lazy() {
	if o.m == nil {
		o.m = orderedmap.New[string, Value]()
	}
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	return o.m.Get(key)
}

// Set stores value under key. A nil value is stored as Null.
func (o *Object) Set(key string, value Value) {
	o.lazy()
	if value == nil {
		value = Null{}
	}
	o.m.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil || o.m == nil {
		return false
	}
	_, ok := o.m.Delete(key)
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	o.Range(func(k string, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each entry in order until fn returns false.
func (o *Object) Range(fn func(key string, value Value) bool) {
	if o == nil || o.m == nil {
		return
	}
	for p := o.m.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clone returns a shallow copy: a new key sequence sharing the same values.
func (o *Object) Clone() *Object {
	c := NewObject()
	o.Range(func(k string, v Value) bool {
		c.m.Set(k, v)
		return true
	})
	return c
}

// Merge copies every entry of src into o. Existing keys keep their position
// and take src's value.
func (o *Object) Merge(src *Object) {
	src.Range(func(k string, v Value) bool {
		o.Set(k, v)
		return true
	})
}
