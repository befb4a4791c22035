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
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/mibo-ai/mibo-cli/pkg/errors"
	"github.com/mibo-ai/mibo-cli/schemas"
)

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func payloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile(schemas.GetTracePayloadSchema())
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile trace payload schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks the encoded payload against the embedded envelope schema.
// It is advisory: `mibo send --dry-run` prints the result as a warning and
// the delivery path never calls it. Violations come back as a
// *errors.ValidationError.
func Validate(p *Payload) error {
	schema, err := payloadSchema()
	if err != nil {
		return err
	}
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	result := schema.ValidateJSON(body)
	if result.IsValid() {
		return nil
	}
	return &errors.ValidationError{
		Field:   "payload",
		Message: fmt.Sprintf("trace envelope does not match the payload schema: %v", result.Errors),
	}
}
