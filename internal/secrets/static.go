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

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// StaticBackendPriority is the priority for values taken from the config file.
const StaticBackendPriority = 10

// StaticBackend serves fixed values, typically the api_key from the config
// file. It is read-only.
type StaticBackend struct {
	name   string
	values map[string]string
}

// NewStaticBackend creates a backend named name. Empty values are dropped.
func NewStaticBackend(name string, values map[string]string) *StaticBackend {
	kept := make(map[string]string, len(values))
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept[k] = v
		}
	}
	return &StaticBackend{name: name, values: kept}
}

func (s *StaticBackend) Name() string { return s.name }

func (s *StaticBackend) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

func (s *StaticBackend) Set(ctx context.Context, key, value string) error { return ErrReadOnlyBackend }

func (s *StaticBackend) Delete(ctx context.Context, key string) error { return ErrReadOnlyBackend }

func (s *StaticBackend) Available() bool { return true }

func (s *StaticBackend) Priority() int { return StaticBackendPriority }

func (s *StaticBackend) ReadOnly() bool { return true }
