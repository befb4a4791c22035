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

// Package redact masks sensitive fields in trace records before they leave
// the process.
//
// Matching is by exact, case-sensitive key name at any depth. Values are never
// inspected, so a password stored under an unlisted key is sent as-is.
package redact

import (
	"errors"
	"strings"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// Placeholder replaces the value of every matched key.
const Placeholder = "[REDACTED]"

// ErrCycle is returned when a value contains itself. Decoded JSON never
// does; only values assembled in code can.
var ErrCycle = errors.New("redact: value contains a reference cycle")

// KeySet is a set of field names to mask.
type KeySet map[string]struct{}

// NewKeySet builds a key set from the given names. Empty names are ignored.
func NewKeySet(keys ...string) KeySet {
	ks := make(KeySet, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		ks[k] = struct{}{}
	}
	return ks
}

// ParseKeys builds a key set from a comma-separated list. Entries are
// trimmed and blanks dropped; case is preserved.
//
//	ParseKeys("email, password,,phone ") // {"email", "password", "phone"}
func ParseKeys(csv string) KeySet {
	parts := strings.Split(csv, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		keys = append(keys, strings.TrimSpace(p))
	}
	return NewKeySet(keys...)
}

// Has reports whether key is in the set.
func (ks KeySet) Has(key string) bool {
	_, ok := ks[key]
	return ok
}

// Redact returns a copy of v with the value of every key in keys replaced by
// Placeholder, at every depth. Primitives are returned unchanged and v is
// never modified. Nesting depth is unbounded; only a cycle is an error.
func Redact(v jsonvalue.Value, keys KeySet) (jsonvalue.Value, error) {
	w := newWalker(keys)
	return w.value(v)
}

// RedactAll applies Redact to every record of a batch. The result has the
// same length and order as records.
func RedactAll(records []*jsonvalue.Object, keys KeySet) ([]*jsonvalue.Object, error) {
	out, _, err := redactRecords(records, keys)
	return out, err
}

func redactRecords(records []*jsonvalue.Object, keys KeySet) ([]*jsonvalue.Object, int, error) {
	w := newWalker(keys)
	out := make([]*jsonvalue.Object, len(records))
	for i, rec := range records {
		obj, err := w.object(rec)
		if err != nil {
			return nil, 0, err
		}
		out[i] = obj
	}
	return out, w.masked, nil
}

// walker copies a value tree. onPath holds the identity of every composite
// between the root and the current node: the *Object pointer, or the address
// of an Array's first element. Shared subtrees that are not ancestors of
// themselves are fine.
type walker struct {
	keys   KeySet
	masked int
	onPath map[any]struct{}
}

func newWalker(keys KeySet) *walker {
	return &walker{keys: keys, onPath: make(map[any]struct{})}
}

func (w *walker) enter(id any) error {
	if _, ok := w.onPath[id]; ok {
		return ErrCycle
	}
	w.onPath[id] = struct{}{}
	return nil
}

func (w *walker) leave(id any) { delete(w.onPath, id) }

func (w *walker) value(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch t := v.(type) {
	case jsonvalue.Array:
		return w.array(t)
	case *jsonvalue.Object:
		return w.object(t)
	default:
		return v, nil
	}
}

func (w *walker) array(arr jsonvalue.Array) (jsonvalue.Value, error) {
	out := make(jsonvalue.Array, len(arr))
	if len(arr) == 0 {
		return out, nil
	}
	id := &arr[0]
	if err := w.enter(id); err != nil {
		return nil, err
	}
	defer w.leave(id)

	for i, e := range arr {
		r, err := w.value(e)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (w *walker) object(obj *jsonvalue.Object) (*jsonvalue.Object, error) {
	if err := w.enter(obj); err != nil {
		return nil, err
	}
	defer w.leave(obj)

	out := jsonvalue.NewObject()
	var err error
	obj.Range(func(k string, e jsonvalue.Value) bool {
		if w.keys.Has(k) {
			out.Set(k, jsonvalue.String(Placeholder))
			w.masked++
			return true
		}
		var r jsonvalue.Value
		r, err = w.value(e)
		if err != nil {
			return false
		}
		out.Set(k, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Redactor binds a key set and reports how many fields it masked.
// A Redactor is safe for concurrent use.
type Redactor struct {
	keys KeySet
}

// NewRedactor creates a redactor for the given keys.
func NewRedactor(keys KeySet) *Redactor {
	return &Redactor{keys: keys}
}

// Keys returns the key set the redactor masks.
func (r *Redactor) Keys() KeySet {
	return r.keys
}

// Records redacts a batch and returns the number of masked fields.
func (r *Redactor) Records(records []*jsonvalue.Object) ([]*jsonvalue.Object, int, error) {
	return redactRecords(records, r.keys)
}
