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
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

func TestFromAny_SortsMapKeys(t *testing.T) {
	v, err := jsonvalue.FromAny(map[string]any{
		"b": 1.0,
		"a": []any{"x", json.Number("2.5"), nil, true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",2.5,null,true],"b":1}`, string(jsonvalue.MustMarshal(v)))
}

func TestFromAny_Rejects(t *testing.T) {
	_, err := jsonvalue.FromAny(math.NaN())
	assert.Error(t, err)

	_, err = jsonvalue.FromAny(struct{}{})
	assert.Error(t, err)
}

func TestToAny_NumberShapes(t *testing.T) {
	assert.Equal(t, 42, jsonvalue.ToAny(jsonvalue.Number("42")))
	assert.Equal(t, 1.5, jsonvalue.ToAny(jsonvalue.Number("1.5")))
	assert.Equal(t, "123456789012345678901234567890",
		jsonvalue.ToAny(jsonvalue.Number("123456789012345678901234567890")).(interface{ String() string }).String())
}

func TestEqual(t *testing.T) {
	a := jsonvalue.ObjectOf("x", jsonvalue.Int(1), "y", jsonvalue.Array{jsonvalue.Null{}})
	b := jsonvalue.ObjectOf("y", jsonvalue.Array{jsonvalue.Null{}}, "x", jsonvalue.Number("1.0"))

	assert.True(t, jsonvalue.Equal(a, b), "key order and number spelling are ignored")
	assert.False(t, jsonvalue.Equal(a, jsonvalue.ObjectOf("x", jsonvalue.Int(1))))
	assert.False(t, jsonvalue.Equal(jsonvalue.String("1"), jsonvalue.Int(1)))
	assert.True(t, jsonvalue.Equal(nil, jsonvalue.Null{}))
}
