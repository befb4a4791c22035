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

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/trace"
	"github.com/mibo-ai/mibo-cli/internal/tracing/redact"
	pkgerrors "github.com/mibo-ai/mibo-cli/pkg/errors"
)

// Defaults fill the parts of a batch that a request does not carry.
type Defaults struct {
	RedactKeys redact.KeySet
	Metadata   *trace.MetadataFields
	PlatformID string
	ExternalID string
	Options    delivery.Options
}

// BatchHandler serves POST /v1/batches.
type BatchHandler struct {
	pipeline *delivery.Pipeline
	defaults Defaults
	maxBody  int64
	logger   *slog.Logger
}

// NewBatchHandler creates a handler. maxBody <= 0 disables the size limit.
func NewBatchHandler(p *delivery.Pipeline, defaults Defaults, maxBody int64, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		logger = log.Discard()
	}
	return &BatchHandler{
		pipeline: p,
		defaults: defaults,
		maxBody:  maxBody,
		logger:   log.WithComponent(logger, "batches"),
	}
}

// batchRequest is the decoded request body.
type batchRequest struct {
	batch          delivery.Batch
	continueOnFail *bool
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body", "")
		return
	}

	req, err := h.decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	opts := h.defaults.Options
	if req.continueOnFail != nil {
		opts.Strategy = delivery.StrategyFor(*req.continueOnFail)
	}

	records, err := h.pipeline.Run(r.Context(), &req.batch, opts)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	resp := jsonvalue.NewObject()
	arr := make(jsonvalue.Array, len(records))
	for i, rec := range records {
		arr[i] = rec
	}
	resp.Set("records", arr)
	writeValue(w, http.StatusOK, resp)
}

func (h *BatchHandler) writeRunError(w http.ResponseWriter, err error) {
	var cfgErr *pkgerrors.ConfigurationError
	var delErr *delivery.DeliveryError
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, cfgErr.Reason, cfgErr.Hint)
	case errors.As(err, &delErr):
		writeError(w, http.StatusBadGateway, delErr.Error(), delErr.Suggestion())
	case errors.Is(err, delivery.ErrNoRecords):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	default:
		h.logger.Error("batch failed", log.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// decode parses {"workflow":{"id","name"},"executionId","records":[...],
// "platformId","externalId","continueOnFail"}. Request values override
// the handler defaults.
func (h *BatchHandler) decode(data []byte) (*batchRequest, error) {
	obj, err := jsonvalue.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %v", err)
	}

	req := &batchRequest{batch: delivery.Batch{
		RedactKeys: h.defaults.RedactKeys,
		Metadata:   h.defaults.Metadata,
		PlatformID: h.defaults.PlatformID,
		ExternalID: h.defaults.ExternalID,
	}}

	rv, ok := obj.Get("records")
	if !ok {
		return nil, errors.New("records is required")
	}
	arr, ok := rv.(jsonvalue.Array)
	if !ok {
		return nil, errors.New("records must be an array")
	}
	req.batch.Records = make([]*jsonvalue.Object, len(arr))
	for i, item := range arr {
		rec, ok := jsonvalue.AsObject(item)
		if !ok {
			return nil, fmt.Errorf("records[%d] must be an object", i)
		}
		req.batch.Records[i] = rec
	}

	if wv, ok := obj.Get("workflow"); ok {
		wf, ok := jsonvalue.AsObject(wv)
		if !ok {
			return nil, errors.New("workflow must be an object")
		}
		if req.batch.Workflow.ID, err = optionalString(wf, "id", "workflow.id"); err != nil {
			return nil, err
		}
		if req.batch.Workflow.Name, err = optionalString(wf, "name", "workflow.name"); err != nil {
			return nil, err
		}
	}

	if req.batch.ExecutionID, err = optionalString(obj, "executionId", "executionId"); err != nil {
		return nil, err
	}
	if s, err := optionalString(obj, "platformId", "platformId"); err != nil {
		return nil, err
	} else if s != "" {
		req.batch.PlatformID = s
	}
	if s, err := optionalString(obj, "externalId", "externalId"); err != nil {
		return nil, err
	} else if s != "" {
		req.batch.ExternalID = s
	}

	if cv, ok := obj.Get("continueOnFail"); ok {
		b, ok := cv.(jsonvalue.Bool)
		if !ok {
			return nil, errors.New("continueOnFail must be a boolean")
		}
		v := bool(b)
		req.continueOnFail = &v
	}
	return req, nil
}

func optionalString(obj *jsonvalue.Object, key, field string) (string, error) {
	v, ok := obj.Get(key)
	if !ok {
		return "", nil
	}
	if _, isNull := v.(jsonvalue.Null); isNull {
		return "", nil
	}
	s, ok := jsonvalue.AsString(v)
	if !ok {
		return "", fmt.Errorf("%s must be a string", field)
	}
	return s, nil
}

func writeValue(w http.ResponseWriter, status int, v jsonvalue.Value) {
	body, err := jsonvalue.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode JSON response", log.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message, suggestion string) {
	obj := jsonvalue.ObjectOf("error", jsonvalue.String(message))
	if suggestion != "" {
		obj.Set("suggestion", jsonvalue.String(suggestion))
	}
	writeValue(w, status, obj)
}
