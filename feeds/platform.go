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
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

// PlatformClient reads the corporate actions stored on the platform
type PlatformClient struct {
	url    string
	client *http.Client
}

func NewPlatformClient(conf config.Endpoint, timeout time.Duration) *PlatformClient {
	return &PlatformClient{
		url:    strings.TrimRight(conf.URL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the platform corporate actions executing within window
func (c *PlatformClient) Fetch(ctx context.Context, window corpaction.Window) ([]normalize.PlatformRow, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "feeds.Platform")
	defer span.End()

	query := url.Values{}
	query.Set("start", window.Start.Format(corpaction.DateFormat))
	query.Set("end", window.End.Format(corpaction.DateFormat))
	endpoint := fmt.Sprintf("%s/corporate-actions?%s", c.url, query.Encode())
	span.SetAttributes(attribute.String("Url", endpoint))

	body, err := httpGet(ctx, c.client, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not fetch platform corporate actions")
		return nil, fmt.Errorf("platform: %w", err)
	}

	rows := make([]normalize.PlatformRow, 0)
	if err := json.Unmarshal(body, &rows); err != nil {
		log.Error().Err(err).Str("Url", endpoint).Msg("could not unmarshal platform corporate actions")
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not decode platform corporate actions")
		return nil, fmt.Errorf("platform: %w: %w", corpaction.ErrFetch, err)
	}

	if len(rows) == 0 {
		log.Warn().Str("Window", window.String()).Msg("platform returned no corporate actions; expected only for very short windows")
	}

	span.SetAttributes(attribute.Int("NumRows", len(rows)))
	log.Info().Int("NumRows", len(rows)).Msg("read platform corporate actions")
	return rows, nil
}
