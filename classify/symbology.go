// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
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

package classify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

const (
	DefaultBatchSize = 2000
	cachePrefix      = "symbology:"
)

// SymbologyRecord is the security classification returned for one RIC
type SymbologyRecord struct {
	RIC           string `json:"ID_RIC"`
	SecurityType  string `json:"SECURITY_TYP"`
	SecurityType2 string `json:"SECURITY_TYP_2"`
}

type symbologyRequest struct {
	RIC string `json:"ID_RIC"`
}

// SymbologyClient queries the symbology service in sequential batches.
// Answers are cached per RIC.
type SymbologyClient struct {
	url       string
	batchSize int
	client    *http.Client
	cache     *common.Cache
}

func NewSymbologyClient(conf config.Symbology, timeout time.Duration, cache *common.Cache) *SymbologyClient {
	batchSize := conf.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SymbologyClient{
		url:       conf.URL,
		batchSize: batchSize,
		client:    &http.Client{Timeout: timeout},
		cache:     cache,
	}
}

// Lookup returns the classification of every RIC known to the service. RICs
// the service does not know are absent from the result. A failed batch
// aborts the lookup with ErrSymbologyFetch.
func (c *SymbologyClient) Lookup(ctx context.Context, rics []string) ([]SymbologyRecord, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "classify.Lookup")
	defer span.End()

	span.SetAttributes(
		attribute.Int("NumRICs", len(rics)),
		attribute.Int("BatchSize", c.batchSize),
	)

	records := make([]SymbologyRecord, 0, len(rics))
	missing := make([]string, 0, len(rics))
	for _, ric := range rics {
		if rec, ok := c.cached(ctx, ric); ok {
			records = append(records, rec)
			continue
		}
		missing = append(missing, ric)
	}

	log.Debug().Int("Cached", len(records)).Int("Missing", len(missing)).Msg("symbology lookup")

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}

		batch, err := c.fetchBatch(ctx, missing[start:end])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "symbology batch failed")
			return nil, fmt.Errorf("%w: batch starting at %d: %w", corpaction.ErrSymbologyFetch, start, err)
		}

		for _, rec := range batch {
			c.store(ctx, rec)
		}
		records = append(records, batch...)
	}

	return records, nil
}

func (c *SymbologyClient) fetchBatch(ctx context.Context, rics []string) ([]SymbologyRecord, error) {
	subLog := log.With().Str("Url", c.url).Int("BatchSize", len(rics)).Logger()

	req := make([]symbologyRequest, len(rics))
	for idx, ric := range rics {
		req[idx] = symbologyRequest{RIC: ric}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		subLog.Error().Err(err).Msg("symbology http request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg("symbology returned invalid response code")
		return nil, fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read symbology body")
		return nil, err
	}

	records := make([]SymbologyRecord, 0, len(rics))
	if err := json.Unmarshal(body, &records); err != nil {
		subLog.Error().Err(err).Bytes("Body", body).Msg("could not unmarshal json")
		return nil, err
	}

	return records, nil
}

func (c *SymbologyClient) cached(ctx context.Context, ric string) (SymbologyRecord, bool) {
	var rec SymbologyRecord
	data, err := c.cache.Get(ctx, cachePrefix+ric)
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("RIC", ric).Msg("discarding undecodable symbology cache entry")
		return rec, false
	}
	return rec, true
}

func (c *SymbologyClient) store(ctx context.Context, rec SymbologyRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, cachePrefix+rec.RIC, data); err != nil {
		log.Warn().Err(err).Str("RIC", rec.RIC).Msg("could not cache symbology record")
	}
}
