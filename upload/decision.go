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

// Package upload decides which reconciled corporate actions can be loaded
// onto the platform without review and proposes the values to load.
package upload

import (
	"github.com/penny-vault/ca-validator/corpaction"
)

// Upload column names
const (
	ColUpload             = "Upload?"
	ColValue              = "Upload-Value"
	ColStockDividend      = "Upload-Stock Dividend"
	ColRelation           = "Upload-Relation"
	ColTerms              = "Upload-Terms"
	ColSubscriptionPrice  = "Upload-Subscription Price"
	ColCurrency           = "Upload-Currency"
	ColDividendSubtype    = "Upload-Dividend Subtype"
	ColTaxationType       = "Upload-Dividend Taxation Type"
	ColWithholdingTaxType = "Upload-Withholding Taxation Type"
	ColAdHoc              = "Upload-AdHoc"
	ColExecutionOrder     = "Upload-Execution Order"
)

const (
	SubtypeDefault    = "DEFAULT"
	SubtypeEstimated  = "EST"
	OrderSimilar      = "SIMILAR"
	WithholdingGross  = "GROSS"
	WithholdingNet    = "NET"
	yes, no           = "Yes", "No"
	adHocYes, adHocNo = "YES", "NO"
)

// EstimatedExchanges report dividends that are loaded with the EST subtype
var EstimatedExchanges = []string{"T", "KS", "KQ"}

// Columns lists the upload columns of a corporate action type in report
// order
func Columns(t corpaction.Type) []string {
	switch t {
	case corpaction.StockDividendType:
		return []string{ColUpload, ColStockDividend, ColCurrency, ColDividendSubtype, ColTaxationType, ColAdHoc}
	case corpaction.StockSplitType:
		return []string{ColUpload, ColRelation, ColCurrency, ColDividendSubtype, ColTaxationType, ColAdHoc}
	case corpaction.RightsIssueType:
		return []string{ColUpload, ColTerms, ColSubscriptionPrice, ColCurrency, ColDividendSubtype, ColTaxationType, ColAdHoc, ColExecutionOrder}
	case corpaction.CashDividendType, corpaction.SpecialDividendType:
		return []string{ColUpload, ColValue, ColCurrency, ColDividendSubtype, ColTaxationType, ColWithholdingTaxType, ColAdHoc}
	}
	return nil
}

// Decision is the upload verdict of one reconciled row. Value holds the
// primary proposed value of the type: the stock dividend, relation, terms
// or cash value. Proposed values are null unless Upload is set.
type Decision struct {
	Upload             bool
	AdHoc              bool
	Value              corpaction.Value
	SubscriptionPrice  corpaction.Value
	Currency           string
	Subtype            string
	TaxationType       corpaction.TaxationType
	WithholdingTaxType string
	ExecutionOrder     string
}

// Field returns upload column col
func (d Decision) Field(col string) corpaction.Value {
	switch col {
	case ColUpload:
		if d.Upload {
			return corpaction.Text(yes)
		}
		return corpaction.Text(no)
	case ColValue, ColStockDividend, ColRelation, ColTerms:
		return d.Value
	case ColSubscriptionPrice:
		return d.SubscriptionPrice
	case ColCurrency:
		return corpaction.Text(d.Currency)
	case ColDividendSubtype:
		return corpaction.Text(d.Subtype)
	case ColTaxationType:
		return corpaction.Text(string(d.TaxationType))
	case ColWithholdingTaxType:
		return corpaction.Text(d.WithholdingTaxType)
	case ColAdHoc:
		if d.AdHoc {
			return corpaction.Text(adHocYes)
		}
		return corpaction.Text(adHocNo)
	case ColExecutionOrder:
		return corpaction.Text(d.ExecutionOrder)
	}
	return corpaction.Null()
}

func subtype(ric string) string {
	exchange := corpaction.Exchange(ric)
	for _, ex := range EstimatedExchanges {
		if exchange == ex {
			return SubtypeEstimated
		}
	}
	return SubtypeDefault
}
