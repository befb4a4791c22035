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

package jsonvalue_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue/jsonvaluetest"
)

func TestDecode_PreservesKeyOrderAndNumbers(t *testing.T) {
	in := `{"z":1,"a":{"y":12345678901234567890,"b":1.50},"m":[true,null,"x"]}`

	v, err := jsonvalue.Decode([]byte(in))
	require.NoError(t, err)

	obj, ok := jsonvalue.AsObject(v)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	out, err := jsonvalue.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated object", `{"a":1`},
		{"truncated array", `[1,2`},
		{"trailing data", `{"a":1} {"b":2}`},
		{"bare word", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jsonvalue.Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeObject_RejectsOtherKinds(t *testing.T) {
	_, err := jsonvalue.DecodeObject([]byte(`[1]`))
	var typeErr *jsonvalue.TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, jsonvalue.KindArray, typeErr.Got)
}

func TestDecodeStream(t *testing.T) {
	in := "{\"a\":1}\n{\"b\":2}\n\n[3]\n"
	var got []string
	err := jsonvalue.DecodeStream(strings.NewReader(in), func(v jsonvalue.Value) error {
		got = append(got, string(jsonvalue.MustMarshal(v)))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, `[3]`}, got)
}

func TestDecodeStream_TruncatedDocument(t *testing.T) {
	err := jsonvalue.DecodeStream(strings.NewReader(`{"a":1} {"b":`), func(jsonvalue.Value) error { return nil })
	assert.Error(t, err)
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := jsonvalue.ObjectOf("a", jsonvalue.Int(1), "b", jsonvalue.Int(2))
	obj.Set("a", jsonvalue.String("x"))
	obj.Set("c", nil)

	assert.Equal(t, `{"a":"x","b":2,"c":null}`, string(jsonvalue.MustMarshal(obj)))
}

func TestObject_CloneIsShallow(t *testing.T) {
	inner := jsonvalue.ObjectOf("k", jsonvalue.Bool(true))
	obj := jsonvalue.ObjectOf("inner", inner)

	clone := obj.Clone()
	clone.Set("extra", jsonvalue.Null{})

	assert.Equal(t, 1, obj.Len())
	got, _ := clone.Get("inner")
	assert.Same(t, inner, got)
}

func TestMarshal_DoesNotEscapeHTML(t *testing.T) {
	out, err := jsonvalue.Marshal(jsonvalue.String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshal_RejectsBadNumber(t *testing.T) {
	_, err := jsonvalue.Marshal(jsonvalue.Number("NaN"))
	assert.Error(t, err)
}

func TestObject_WorksWithEncodingJSON(t *testing.T) {
	var wrapper struct {
		Record *jsonvalue.Object `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"record":{"b":1,"a":2}}`), &wrapper))
	assert.Equal(t, []string{"b", "a"}, wrapper.Record.Keys())

	out, err := json.Marshal(wrapper)
	require.NoError(t, err)
	assert.Equal(t, `{"record":{"b":1,"a":2}}`, string(out))
}

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := jsonvaluetest.Value(4).Draw(t, "value")

		first, err := jsonvalue.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		back, err := jsonvalue.Decode(first)
		if err != nil {
			t.Fatalf("decode %s: %v", first, err)
		}
		second, err := jsonvalue.Marshal(back)
		if err != nil {
			t.Fatalf("re-marshal: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("encoding not stable:\n%s\n%s", first, second)
		}
		if !jsonvalue.Equal(v, back) {
			t.Fatalf("decoded value differs from original")
		}
	})
}
