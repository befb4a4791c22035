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

package shared

import (
	"encoding/json"
	"io"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// JSONResponse is the base envelope for --json output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// EmitJSON writes response as indented JSON.
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// WriteRecords prints records as one JSON array, or one record per line
// when ndjson is set. Key order is preserved.
func WriteRecords(w io.Writer, records []*jsonvalue.Object, ndjson bool) error {
	if ndjson {
		for _, rec := range records {
			b, err := jsonvalue.Marshal(rec)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				return err
			}
		}
		return nil
	}

	arr := make(jsonvalue.Array, len(records))
	for i, rec := range records {
		arr[i] = rec
	}
	b, err := jsonvalue.Marshal(arr)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
