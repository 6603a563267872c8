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
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// Withholding tax types used to tag platform cash values
const (
	WithholdingGross = "GROSS"
	WithholdingNet   = "NET"
)

// exchanges whose franking and CFI amounts are reported
var frankingSuffixes = []string{".AX", ".CHA", ".NZ"}

// Platform converts corporate actions stored on the platform into normalized
// tables. The single cash value is projected into GROSS or NET according to
// its withholding tax type.
func Platform(rows []PlatformRow, window corpaction.Window) Result {
	c := &collector{vendor: corpaction.Platform}
	set := corpaction.NewSet(corpaction.Platform)

	for _, row := range rows {
		ric := strings.TrimSpace(row.RIC)
		if ric == "" {
			c.warn("", "RIC", "", corpaction.ErrMissingKeyField)
			continue
		}

		execDate, err := ParseDate(row.ExecutionDate)
		if err != nil {
			c.warn(ric, "Execution Date", row.ExecutionDate, err)
			continue
		}
		if !window.Contains(execDate) {
			continue
		}

		key := corpaction.Key{RIC: ric, Type: row.Type, ExecutionDate: execDate}

		switch row.Type {
		case corpaction.StockDividendType:
			set.StockDividends.Records = append(set.StockDividends.Records, corpaction.StockDividend{
				Key:     key,
				Percent: roundNullable(row.StockDividend),
			})
		case corpaction.StockSplitType:
			rec := corpaction.StockSplit{Key: key}
			if strings.TrimSpace(row.Relation) != "" {
				relation, err := CanonicalRelation(row.Relation, NumeratorDenominator)
				if err != nil {
					c.warn(ric, corpaction.ColRelation, row.Relation, err)
					continue
				}
				rec.Relation = relation
			}
			set.StockSplits.Records = append(set.StockSplits.Records, rec)
		case corpaction.CashDividendType, corpaction.SpecialDividendType:
			key.TaxationType = corpaction.TaxationType(strings.TrimSpace(row.TaxationType))
			rec := corpaction.CashDividend{
				Key:      key,
				Currency: strings.TrimSpace(row.Currency),
			}
			switch strings.ToUpper(strings.TrimSpace(row.WithholdingTaxType)) {
			case WithholdingGross:
				rec.Gross = roundNullable(row.Value)
			case WithholdingNet:
				rec.Net = roundNullable(row.Value)
			}
			if hasAnySuffix(ric, frankingSuffixes) {
				rec.Franking = annotation("Franking", row.FrankingAmount)
				rec.CFI = annotation("CFI", row.CFIAmount)
			}
			set.CashDividends.Records = append(set.CashDividends.Records, rec)
		case corpaction.RightsIssueType:
			set.RightsIssues.Records = append(set.RightsIssues.Records, corpaction.RightsIssue{
				Key:               key,
				Terms:             roundNullable(row.Terms),
				SubscriptionPrice: roundNullable(row.SubscriptionPrice),
				Currency:          strings.TrimSpace(row.Currency),
			})
		default:
			c.warn(ric, "Type", string(row.Type), fmt.Errorf("%w: unknown corporate action type", corpaction.ErrMalformedRecord))
		}
	}

	return Result{Set: set, Warnings: c.warnings}
}

func roundNullable(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(Precision))
}

func annotation(label string, amount decimal.NullDecimal) string {
	if !amount.Valid {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, amount.Decimal.String())
}
