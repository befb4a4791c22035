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
	"fmt"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	KeychainBackendPriority = 50

	// KeychainService is the keyring service that owns mibo entries. The
	// secret key (APIKeyName) is the account.
	KeychainService = "mibo"

	availabilityAccount = "__mibo_availability_test__"
)

// unavailableHints are substrings of keyring errors meaning the store is
// locked or missing (macOS Keychain, Secret Service over D-Bus, Windows
// Credential Manager) rather than that the entry is absent.
var unavailableHints = []string{
	"locked",
	"cannot access",
	"permission denied",
	"failed to unlock",
	"user interaction required",
	"secret service",
	"dbus",
	"user canceled",
}

// KeychainBackend keeps the API key in the OS credential store.
type KeychainBackend struct {
	service string

	checkOnce sync.Once
	available bool
}

// NewKeychainBackend returns a backend for the "mibo" keyring service. The
// store is checked once, on the first call that needs it.
func NewKeychainBackend() *KeychainBackend {
	return &KeychainBackend{service: KeychainService}
}

func (k *KeychainBackend) Name() string { return "keychain" }

func (k *KeychainBackend) Priority() int { return KeychainBackendPriority }

// Available reports whether the credential store answered a lookup with
// anything other than an unavailability error.
func (k *KeychainBackend) Available() bool {
	k.checkOnce.Do(func() {
		_, err := keyring.Get(k.service, availabilityAccount)
		k.available = err == nil || errors.Is(err, keyring.ErrNotFound)
	})
	return k.available
}

func (k *KeychainBackend) Get(_ context.Context, key string) (string, error) {
	if err := k.ready(); err != nil {
		return "", err
	}
	value, err := keyring.Get(k.service, key)
	if err != nil {
		return "", k.mapError(key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous API key.
func (k *KeychainBackend) Set(_ context.Context, key, value string) error {
	if err := k.ready(); err != nil {
		return err
	}
	return k.mapError(key, keyring.Set(k.service, key, value))
}

func (k *KeychainBackend) Delete(_ context.Context, key string) error {
	if err := k.ready(); err != nil {
		return err
	}
	return k.mapError(key, keyring.Delete(k.service, key))
}

func (k *KeychainBackend) ready() error {
	if !k.Available() {
		return fmt.Errorf("%w: %s keychain service unavailable", ErrBackendUnavailable, k.service)
	}
	return nil
}

// mapError translates keyring errors into the package sentinels. A nil
// error passes through.
func (k *KeychainBackend) mapError(key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	case isKeychainUnavailableError(err):
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
	default:
		return fmt.Errorf("keychain error: %w", err)
	}
}

func isKeychainUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range unavailableHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
