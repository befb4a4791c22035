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

// Package input reads batches of JSON records from files or stdin.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/gojq"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

const (
	// DefaultSelectTimeout bounds evaluation of the select expression per document.
	DefaultSelectTimeout = 1 * time.Second

	// DefaultMaxRecords is the default cap on records read from one input.
	DefaultMaxRecords = 100000
)

// ErrNotObject is wrapped by PositionError when a record is not a JSON object.
var ErrNotObject = errors.New("record is not a JSON object")

// ErrTooManyRecords is returned when the input exceeds Options.MaxRecords.
var ErrTooManyRecords = errors.New("too many records")

// PositionError locates a bad record: Document is the zero-based top-level
// document, Index the zero-based record within it.
type PositionError struct {
	Document int
	Index    int
	Kind     jsonvalue.Kind
	Err      error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("document %d, record %d: %v (got %s)", e.Document, e.Index, e.Err, e.Kind)
}

func (e *PositionError) Unwrap() error { return e.Err }

// Options controls Read.
type Options struct {
	// Select is a jq expression applied to each top-level document. Each
	// result becomes one record. Empty means the document itself: an array
	// contributes its elements, an object contributes itself.
	Select string

	// SelectTimeout bounds one evaluation of Select.
	SelectTimeout time.Duration

	// MaxRecords caps the total record count. Zero uses DefaultMaxRecords.
	MaxRecords int
}

// Compile checks a select expression without reading anything.
func Compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid select expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("select expression compilation failed: %w", err)
	}
	return code, nil
}

// Read decodes every JSON document in r (one array, one object, or a stream
// of concatenated or newline-delimited values) and returns the records.
//
// Records produced by Select lose their original key order; keys come back
// sorted.
func Read(r io.Reader, opts Options) ([]*jsonvalue.Object, error) {
	var code *gojq.Code
	if opts.Select != "" {
		c, err := Compile(opts.Select)
		if err != nil {
			return nil, err
		}
		code = c
	}
	if opts.SelectTimeout <= 0 {
		opts.SelectTimeout = DefaultSelectTimeout
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	var records []*jsonvalue.Object
	doc := 0
	err := jsonvalue.DecodeStream(r, func(v jsonvalue.Value) error {
		var items []jsonvalue.Value
		if code != nil {
			out, err := runSelect(code, v, opts.SelectTimeout)
			if err != nil {
				return fmt.Errorf("document %d: %w", doc, err)
			}
			items = out
		} else if arr, ok := v.(jsonvalue.Array); ok {
			items = arr
		} else {
			items = []jsonvalue.Value{v}
		}

		for i, item := range items {
			obj, ok := jsonvalue.AsObject(item)
			if !ok {
				return &PositionError{Document: doc, Index: i, Kind: kindOf(item), Err: ErrNotObject}
			}
			if len(records) >= opts.MaxRecords {
				return fmt.Errorf("%w: limit is %d", ErrTooManyRecords, opts.MaxRecords)
			}
			records = append(records, obj)
		}
		doc++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func runSelect(code *gojq.Code, v jsonvalue.Value, timeout time.Duration) ([]jsonvalue.Value, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var out []jsonvalue.Value
	iter := code.RunWithContext(ctx, jsonvalue.ToAny(v))
	for {
		x, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := x.(error); isErr {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("select timeout after %v", timeout)
			}
			return nil, fmt.Errorf("select failed: %w", err)
		}
		jv, err := jsonvalue.FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("select produced an unsupported value: %w", err)
		}
		out = append(out, jv)
	}
	return out, nil
}

func kindOf(v jsonvalue.Value) jsonvalue.Kind {
	if v == nil {
		return jsonvalue.KindNull
	}
	return v.Kind()
}
