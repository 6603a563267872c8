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

package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

const currencyCachePrefix = "currency:"

// CurrencyLookup returns the trading currency of an instrument. Lookups
// never fail; an unknown currency is blank.
type CurrencyLookup interface {
	Currency(ctx context.Context, ric string) string
}

// CurrencyClient asks the internal data service for the currency of a RIC
type CurrencyClient struct {
	url    string
	client *http.Client
	cache  *common.Cache
}

func NewCurrencyClient(conf config.Endpoint, timeout time.Duration, cache *common.Cache) *CurrencyClient {
	return &CurrencyClient{
		url:    conf.URL,
		client: &http.Client{Timeout: timeout},
		cache:  cache,
	}
}

// Currency returns the currency of ric, or "" if the service cannot answer
func (c *CurrencyClient) Currency(ctx context.Context, ric string) string {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "upload.Currency")
	defer span.End()
	span.SetAttributes(attribute.String("RIC", ric))

	if data, err := c.cache.Get(ctx, currencyCachePrefix+ric); err == nil {
		return string(data)
	}

	currency, err := c.fetch(ctx, ric)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Str("RIC", ric).Msg("currency lookup failed")
		return ""
	}

	if err := c.cache.Set(ctx, currencyCachePrefix+ric, []byte(currency)); err != nil {
		log.Warn().Err(err).Str("RIC", ric).Msg("could not cache currency")
	}
	return currency
}

func (c *CurrencyClient) fetch(ctx context.Context, ric string) (string, error) {
	query := url.Values{}
	query.Set("ref", ric)
	query.Set("q", "CUR")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
