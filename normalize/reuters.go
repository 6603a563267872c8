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

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// Reuters event names
const (
	EventScripIssue         = "Scrip Issue"
	EventShareSplit         = "Share Split"
	EventShareConsolidation = "Share Consolidation"
	EventCashDividend       = "Cash Dividend"
	EventCashAndStock       = "Cash and Stock Alternative"
	EventStockAndCash       = "Stock and Cash Alternative"
	EventRightsIssue        = "Rights Issue"
	EventPriorityIssue      = "Priority Issue"
)

var hundred = decimal.NewFromInt(100)

type collector struct {
	vendor   corpaction.Vendor
	warnings []Warning
}

func (c *collector) warn(ric, field, value string, err error) {
	w := Warning{
		Vendor: c.vendor,
		RIC:    ric,
		Field:  field,
		Value:  value,
		Err:    err,
	}
	log.Warn().Str("Vendor", string(c.vendor)).Str("RIC", ric).Str("Field", field).Str("Value", value).Err(err).Msg("could not normalize field")
	c.warnings = append(c.warnings, w)
}

// Reuters converts rows of the Reuters workbooks into normalized tables.
// Rows outside the window are dropped.
func Reuters(rows []ReutersRow, window corpaction.Window) Result {
	c := &collector{vendor: corpaction.Reuters}
	set := corpaction.NewSet(corpaction.Reuters)

	for _, row := range rows {
		ric := strings.TrimSpace(row.RIC)
		if ric == "" {
			continue
		}

		event := strings.TrimSpace(row.Event)
		switch event {
		case EventScripIssue, EventShareSplit, EventShareConsolidation, EventCashDividend,
			EventCashAndStock, EventStockAndCash, EventRightsIssue, EventPriorityIssue:
		default:
			continue
		}

		execDate, err := ParseDetailsDate(row.Details)
		if err != nil {
			c.warn(ric, "Execution Date", row.Details, err)
			continue
		}
		if !window.Contains(execDate) {
			continue
		}

		switch event {
		case EventScripIssue:
			key := corpaction.Key{RIC: ric, Type: corpaction.StockDividendType, ExecutionDate: execDate}
			ratio, err := ParseRatio(row.Values[0], LabelDenominatorNumerator)
			if err != nil {
				c.warn(ric, corpaction.ColStockDividend, row.Values[0], err)
				continue
			}
			set.StockDividends.Records = append(set.StockDividends.Records, corpaction.StockDividend{
				Key:     key,
				Percent: decimal.NewNullDecimal(ratio.Mul(hundred)),
			})
		case EventShareSplit, EventShareConsolidation:
			key := corpaction.Key{RIC: ric, Type: corpaction.StockSplitType, ExecutionDate: execDate}
			relation, err := CanonicalRelation(row.Values[0], LabelDenominatorNumerator)
			if err != nil {
				c.warn(ric, corpaction.ColRelation, row.Values[0], err)
				continue
			}
			set.StockSplits.Records = append(set.StockSplits.Records, corpaction.StockSplit{
				Key:      key,
				Relation: relation,
			})
		case EventCashDividend, EventCashAndStock, EventStockAndCash:
			set.CashDividends.Records = append(set.CashDividends.Records, c.reutersCash(ric, execDate, row))
		case EventRightsIssue, EventPriorityIssue:
			key := corpaction.Key{RIC: ric, Type: corpaction.RightsIssueType, ExecutionDate: execDate}
			terms, err := ParseRatio(row.Values[0], LabelDenominatorNumerator)
			if err != nil {
				c.warn(ric, corpaction.ColTerms, row.Values[0], err)
				continue
			}
			if terms.IsZero() {
				continue
			}
			set.RightsIssues.Records = append(set.RightsIssues.Records, corpaction.RightsIssue{
				Key:   key,
				Terms: decimal.NewNullDecimal(terms),
			})
		}
	}

	return Result{Set: set, Warnings: c.warnings}
}

func (c *collector) reutersCash(ric string, execDate time.Time, row ReutersRow) corpaction.CashDividend {
	caType := corpaction.CashDividendType
	divType := strings.ToLower(row.Values[2])
	if strings.Contains(divType, "extraordinary ") || strings.Contains(divType, "special") {
		caType = corpaction.SpecialDividendType
	}

	gross, err := CleanNumber(afterLastColon(row.Values[0]))
	if err != nil {
		c.warn(ric, corpaction.ColGross, row.Values[0], err)
	}
	net, err := CleanNumber(afterLastColon(row.Values[1]))
	if err != nil {
		c.warn(ric, corpaction.ColNet, row.Values[1], err)
	}

	return corpaction.CashDividend{
		Key:      corpaction.Key{RIC: ric, Type: caType, ExecutionDate: execDate},
		Gross:    decimal.NewNullDecimal(gross),
		Net:      decimal.NewNullDecimal(net),
		Currency: lastToken(row.Values[0]),
	}
}
