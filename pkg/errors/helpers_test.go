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

package errors_test

import (
	"errors"
	"testing"

	mibo "github.com/mibo-ai/mibo-cli/pkg/errors"
)

func TestWrap(t *testing.T) {
	if mibo.Wrap(nil, "ctx") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}

	base := errors.New("connection refused")
	err := mibo.Wrap(base, "sending trace")
	if err.Error() != "sending trace: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !mibo.Is(err, base) {
		t.Error("wrapped error should match base")
	}
}

func TestWrapf(t *testing.T) {
	if mibo.Wrapf(nil, "ctx %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}

	base := errors.New("boom")
	err := mibo.Wrapf(base, "reading %s", "records.json")
	if err.Error() != "reading records.json: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAs(t *testing.T) {
	err := mibo.Wrap(&mibo.NotFoundError{Resource: "config file", ID: "x.yaml"}, "loading")

	var nf *mibo.NotFoundError
	if !mibo.As(err, &nf) {
		t.Fatal("expected As to find NotFoundError")
	}
	if nf.ID != "x.yaml" {
		t.Errorf("ID = %q", nf.ID)
	}
}

func TestNew(t *testing.T) {
	if mibo.New("x").Error() != "x" {
		t.Error("New should keep message")
	}
}
