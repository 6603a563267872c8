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

package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// EDI converts rows of the EDI feed into normalized tables. Event types are
// matched by substring because EDI decorates them with prefixes. Cash
// amounts keep the precision of the feed.
func EDI(rows []EDIRow, window corpaction.Window) Result {
	c := &collector{vendor: corpaction.EDI}
	set := corpaction.NewSet(corpaction.EDI)

	for _, row := range rows {
		ric := strings.TrimSpace(row.RIC)
		if ric == "" {
			c.warn("", "RIC", "", corpaction.ErrMissingKeyField)
			continue
		}

		execDate, err := ParseDate(row.ExDate)
		if err != nil {
			c.warn(ric, "Execution Date", row.ExDate, err)
			continue
		}
		if !window.Contains(execDate) {
			continue
		}

		eventType := strings.ToUpper(strings.TrimSpace(row.EventType))
		switch {
		case strings.Contains(eventType, string(corpaction.StockDividendType)):
			if rec, ok := c.ediStockDividend(ric, execDate, row); ok {
				set.StockDividends.Records = append(set.StockDividends.Records, rec)
			}
		case eventType == string(corpaction.StockSplitType):
			rec := corpaction.StockSplit{
				Key: corpaction.Key{RIC: ric, Type: corpaction.StockSplitType, ExecutionDate: execDate},
			}
			if strings.TrimSpace(row.SplitRatio) != "" {
				relation, err := CanonicalRelation(row.SplitRatio, NumeratorDenominator)
				if err != nil {
					c.warn(ric, corpaction.ColRelation, row.SplitRatio, err)
					continue
				}
				rec.Relation = relation
			}
			set.StockSplits.Records = append(set.StockSplits.Records, rec)
		case strings.Contains(eventType, string(corpaction.CashDividendType)),
			strings.Contains(eventType, string(corpaction.SpecialDividendType)):
			caType := corpaction.CashDividendType
			if strings.Contains(eventType, string(corpaction.SpecialDividendType)) {
				caType = corpaction.SpecialDividendType
			}
			set.CashDividends.Records = append(set.CashDividends.Records, c.ediCash(ric, caType, execDate, row))
		case eventType == string(corpaction.RightsIssueType):
			rec := corpaction.RightsIssue{
				Key:               corpaction.Key{RIC: ric, Type: corpaction.RightsIssueType, ExecutionDate: execDate},
				Currency:          strings.TrimSpace(row.SubscriptionCurrency),
				SubscriptionPrice: c.nullable(ric, corpaction.ColSubscriptionPrice, row.SubscriptionPrice),
			}
			if strings.TrimSpace(row.SubscriptionRatio) != "" {
				terms, err := ParseRatio(row.SubscriptionRatio, NumeratorDenominator)
				if err != nil {
					c.warn(ric, corpaction.ColTerms, row.SubscriptionRatio, err)
					continue
				}
				rec.Terms = decimal.NewNullDecimal(terms)
			}
			set.RightsIssues.Records = append(set.RightsIssues.Records, rec)
		}
	}

	return Result{Set: set, Warnings: c.warnings}
}

func (c *collector) nullable(ric, field, raw string) decimal.NullDecimal {
	d, err := ParseNullable(raw)
	if err != nil {
		c.warn(ric, field, raw, err)
		return decimal.NewNullDecimal(decimal.Zero)
	}
	return d
}

func (c *collector) ediStockDividend(ric string, execDate time.Time, row EDIRow) (corpaction.StockDividend, bool) {
	rec := corpaction.StockDividend{
		Key: corpaction.Key{RIC: ric, Type: corpaction.StockDividendType, ExecutionDate: execDate},
	}
	if strings.TrimSpace(row.StockDividendRatio) == "" {
		return rec, true
	}
	ratio, err := ParseRatio(row.StockDividendRatio, NumeratorDenominator)
	if err != nil {
		c.warn(ric, corpaction.ColStockDividend, row.StockDividendRatio, err)
		return rec, false
	}
	rec.Percent = decimal.NewNullDecimal(ratio.Mul(hundred).Round(Precision))
	return rec, true
}

func (c *collector) ediCash(ric string, caType corpaction.Type, execDate time.Time, row EDIRow) corpaction.CashDividend {
	gross := c.nullable(ric, corpaction.ColGross, row.GrossAmount)
	net := c.nullable(ric, corpaction.ColNet, row.NetAmount)
	if !gross.Valid && !net.Valid {
		reported := c.nullable(ric, "REPORTED_AMT", row.ReportedAmount)
		gross = reported
		net = reported
	}

	taxRate := c.nullable(ric, "Tax Rate", row.TaxRate)

	return corpaction.CashDividend{
		Key: corpaction.Key{
			RIC:           ric,
			Type:          caType,
			ExecutionDate: execDate,
			TaxationType:  InferTaxationType(ric, taxRate, row.Source),
		},
		Gross:    gross,
		Net:      net,
		Currency: strings.TrimSpace(row.Currency),
	}
}
