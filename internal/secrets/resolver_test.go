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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "MIBO_API_KEY", EnvVar("api_key"))
	assert.Equal(t, "MIBO_A_B_C", EnvVar("a/b-c"))
}

func TestEnvBackend(t *testing.T) {
	ctx := context.Background()
	b := NewEnvBackend()

	t.Setenv("MIBO_API_KEY", "")
	_, err := b.Get(ctx, APIKeyName)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	t.Setenv("MIBO_API_KEY", "  env-key ")
	v, err := b.Get(ctx, APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "env-key", v)

	assert.ErrorIs(t, b.Set(ctx, APIKeyName, "x"), ErrReadOnlyBackend)
	assert.ErrorIs(t, b.Delete(ctx, APIKeyName), ErrReadOnlyBackend)
	assert.True(t, b.ReadOnly())
}

func TestKeychainBackend_Mock(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	b := NewKeychainBackend()
	require.True(t, b.Available())
	assert.Equal(t, "keychain", b.Name())
	assert.Equal(t, KeychainBackendPriority, b.Priority())

	_, err := b.Get(ctx, APIKeyName)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, b.Set(ctx, APIKeyName, "kc-key"))
	v, err := b.Get(ctx, APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "kc-key", v)

	require.NoError(t, b.Delete(ctx, APIKeyName))
	assert.ErrorIs(t, b.Delete(ctx, APIKeyName), ErrSecretNotFound)
}

func TestKeychainBackend_Unavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: connection refused"))

	b := NewKeychainBackend()
	assert.False(t, b.Available())
	_, err := b.Get(context.Background(), APIKeyName)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestResolver_Priority(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	t.Setenv("MIBO_API_KEY", "")

	r := NewDefaultResolver("config-key")
	names := make([]string, 0, 3)
	for _, b := range r.Backends() {
		names = append(names, b.Name())
	}
	assert.Equal(t, []string{"env", "keychain", "config"}, names)

	v, src, err := r.Lookup(ctx, APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "config-key", v)
	assert.Equal(t, "config", src)

	require.NoError(t, r.Set(ctx, APIKeyName, "kc-key", ""))
	v, src, err = r.Lookup(ctx, APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "kc-key", v)
	assert.Equal(t, "keychain", src)

	t.Setenv("MIBO_API_KEY", "env-key")
	v, src, err = r.Lookup(ctx, APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "env-key", v)
	assert.Equal(t, "env", src)

	require.NoError(t, r.Delete(ctx, APIKeyName))
	assert.ErrorIs(t, r.Delete(ctx, APIKeyName), ErrSecretNotFound)
}

func TestResolver_NotFound(t *testing.T) {
	keyring.MockInit()
	t.Setenv("MIBO_API_KEY", "")

	r := NewDefaultResolver("")
	_, err := r.Get(context.Background(), APIKeyName)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestResolver_SkipsUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("keyring is locked"))
	t.Setenv("MIBO_API_KEY", "")

	r := NewDefaultResolver("cfg")
	for _, b := range r.Backends() {
		assert.NotEqual(t, "keychain", b.Name())
	}

	err := r.Set(context.Background(), APIKeyName, "x", "")
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	err = r.Set(context.Background(), APIKeyName, "x", "keychain")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestResolver_Empty(t *testing.T) {
	_, err := NewResolver().Get(context.Background(), APIKeyName)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
