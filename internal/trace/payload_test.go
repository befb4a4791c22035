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

package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/pkg/errors"
)

func TestPayload_DigestIgnoresKeyOrder(t *testing.T) {
	a, err := Build(BuildInput{Records: records(t, `{"x":1,"y":2}`), Timestamp: fixedTime})
	require.NoError(t, err)
	b, err := Build(BuildInput{Records: records(t, `{"y":2,"x":1}`), Timestamp: fixedTime})
	require.NoError(t, err)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)

	assert.Len(t, da, 64)
	assert.Equal(t, da, db)
}

func TestPayload_DigestChangesWithContent(t *testing.T) {
	a, _ := Build(BuildInput{Records: records(t, `{"x":1}`), Timestamp: fixedTime})
	b, _ := Build(BuildInput{Records: records(t, `{"x":2}`), Timestamp: fixedTime})

	da, _ := a.Digest()
	db, _ := b.Digest()
	assert.NotEqual(t, da, db)
}

func TestValidate_AcceptsArbitraryMetadataAndLongIDs(t *testing.T) {
	p, err := Build(BuildInput{
		Records:    records(t, `{"a":1}`),
		Workflow:   Workflow{ID: "wf"},
		Metadata:   &MetadataFields{AdditionalFields: `{"timestamp":123,"workflowId":7,"environment":{"region":"eu"}}`},
		PlatformID: "p",
		ExternalID: strings.Repeat("e", 300),
		Timestamp:  fixedTime,
	})
	require.NoError(t, err)
	assert.NoError(t, Validate(p))
}

func TestValidate_RejectsNonObjectRecords(t *testing.T) {
	p, err := Build(BuildInput{Records: []jsonvalue.Value{jsonvalue.Int(1)}, Timestamp: fixedTime})
	require.NoError(t, err)

	err = Validate(p)
	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payload", verr.Field)
	assert.False(t, errors.IsConfiguration(err))
}
