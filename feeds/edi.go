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
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

// EDIClient reads the EDI corporate actions CSV from the EDI API or from a
// manually downloaded file
type EDIClient struct {
	conf   config.EDI
	client *http.Client
}

func NewEDIClient(conf config.EDI, timeout time.Duration) *EDIClient {
	return &EDIClient{
		conf:   conf,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch returns every row of the EDI feed; window filtering is left to the
// normalizer
func (c *EDIClient) Fetch(ctx context.Context) ([]normalize.EDIRow, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "feeds.EDI")
	defer span.End()

	var body []byte
	var err error
	if c.conf.UseManual {
		span.SetAttributes(attribute.String("File", c.conf.ManualFile))
		log.Debug().Str("File", c.conf.ManualFile).Msg("reading EDI data from file")
		body, err = os.ReadFile(c.conf.ManualFile)
		if err != nil {
			err = fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
		}
	} else {
		span.SetAttributes(attribute.String("Url", c.conf.URL))
		log.Debug().Str("Url", c.conf.URL).Msg("fetching EDI data from API")
		body, err = httpGet(ctx, c.client, c.conf.URL)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not fetch EDI data")
		return nil, fmt.Errorf("EDI: %w", err)
	}

	records, err := loadCSV(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not parse EDI data")
		return nil, fmt.Errorf("EDI: %w", err)
	}

	rows := make([]normalize.EDIRow, len(records))
	for idx, rec := range records {
		rows[idx] = normalize.EDIRow{
			RIC:                  rec["ID_RIC"],
			EventType:            rec["EVENT_TYPE"],
			ExDate:               rec["EX_DT"],
			SplitRatio:           rec["STOCK_SPLIT_RATIO"],
			GrossAmount:          rec["GROSS_AMT"],
			NetAmount:            rec["NET_AMT"],
			StockDividendRatio:   rec["STOCK_DIV_RATIO"],
			ReportedAmount:       rec["REPORTED_AMT"],
			SubscriptionRatio:    rec["SUBSCRIPTION_RATIO"],
			Currency:             rec["CRNCY"],
			SubscriptionPrice:    rec["SUBSCRIPTION_PRICE"],
			SubscriptionCurrency: rec["SUBSCRIPTION_PRICE_CRNCY"],
			Source:               rec["SOURCE"],
			TaxRate:              rec["TAX_RATE"],
		}
	}

	span.SetAttributes(attribute.Int("NumRows", len(rows)))
	log.Info().Int("NumRows", len(rows)).Msg("read EDI corporate actions")
	return rows, nil
}
