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

package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

// CapitalEventsClient reads the ICE capital events CSV
type CapitalEventsClient struct {
	url    string
	client *http.Client
}

func NewCapitalEventsClient(conf config.Endpoint, timeout time.Duration) *CapitalEventsClient {
	return &CapitalEventsClient{
		url:    conf.URL,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *CapitalEventsClient) Fetch(ctx context.Context) ([]normalize.CapitalEventRow, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "feeds.CapitalEvents")
	defer span.End()
	span.SetAttributes(attribute.String("Url", c.url))

	body, err := httpGet(ctx, c.client, c.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not fetch capital events")
		return nil, fmt.Errorf("capital events: %w", err)
	}

	records, err := loadCSV(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse capital events")
		return nil, fmt.Errorf("capital events: %w", err)
	}

	rows := make([]normalize.CapitalEventRow, len(records))
	for idx, rec := range records {
		rows[idx] = normalize.CapitalEventRow{
			ISIN:      rec["ISIN"],
			EventType: rec["Event_type"],
			MIC:       rec["MIC"],
			SEDOL:     rec["SEDOL"],
		}
	}

	log.Info().Int("NumRows", len(rows)).Msg("read capital events")
	return rows, nil
}
