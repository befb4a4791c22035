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
	"context"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/transport"
)

type failingTransport struct{}

func (failingTransport) Execute(context.Context, *transport.Request) (*transport.Response, error) {
	return nil, &transport.TransportError{Type: transport.ErrorTypeConnection, Message: "connection refused"}
}
func (failingTransport) Name() string                         { return "failing" }
func (failingTransport) SetRateLimiter(transport.RateLimiter) {}

func runOne(p *delivery.Pipeline) ([]*jsonvalue.Object, error) {
	batch := &delivery.Batch{Records: []*jsonvalue.Object{jsonvalue.NewObject()}}
	return p.Run(context.Background(), batch, delivery.Options{Strategy: delivery.FailFast})
}
