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
	"time"

	"github.com/penny-vault/ca-validator/corpaction"
)

// SheetHeader is the column header of the platform upload template
var SheetHeader = []string{
	"Financial Instrument Ric*", "TYPE*", "Execution Date*", "Pay Date", "Is Ad Hoc*", "CURRENCY*",
	"VALUE", "RELATION", "Purchase Price", "Purchase Relation", "Withholding Tax Type", "Stock Dividend",
	"Execution Order", "Dividend Subtype", "Record Date", "Dividend Taxation Type", "Franking Amount",
	"Cfi Amount", "PID",
}

// SheetRow is one line of the platform upload template
type SheetRow struct {
	RIC                string
	Type               corpaction.Type
	ExecutionDate      time.Time
	AdHoc              bool
	Currency           string
	Value              corpaction.Value
	Relation           corpaction.Value
	PurchasePrice      corpaction.Value
	WithholdingTaxType string
	StockDividend      corpaction.Value
	ExecutionOrder     string
	Subtype            string
	TaxationType       corpaction.TaxationType
}

// Cells returns the row in SheetHeader order
func (r SheetRow) Cells() []interface{} {
	adHoc := adHocNo
	if r.AdHoc {
		adHoc = adHocYes
	}
	return []interface{}{
		r.RIC, string(r.Type), r.ExecutionDate.Format(corpaction.DateFormat), nil, adHoc, r.Currency,
		r.Value.Interface(), r.Relation.Interface(), r.PurchasePrice.Interface(), nil, blank(r.WithholdingTaxType), r.StockDividend.Interface(),
		blank(r.ExecutionOrder), blank(r.Subtype), nil, blank(string(r.TaxationType)), nil,
		nil, nil,
	}
}

func blank(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// SheetRows collects the upload eligible rows of every corporate action type
func SheetRows(res Result) []SheetRow {
	rows := make([]SheetRow, 0)
	for _, e := range res.StockDividends {
		if e.Decision.Upload {
			row := sheetRow(e.Key, e.Decision)
			row.StockDividend = e.Decision.Value
			rows = append(rows, row)
		}
	}
	for _, e := range res.StockSplits {
		if e.Decision.Upload {
			row := sheetRow(e.Key, e.Decision)
			row.Relation = e.Decision.Value
			rows = append(rows, row)
		}
	}
	for _, e := range res.RightsIssues {
		if e.Decision.Upload {
			row := sheetRow(e.Key, e.Decision)
			row.Relation = e.Decision.Value
			row.PurchasePrice = e.Decision.SubscriptionPrice
			row.ExecutionOrder = e.Decision.ExecutionOrder
			rows = append(rows, row)
		}
	}
	for _, e := range res.CashDividends {
		if e.Decision.Upload {
			row := sheetRow(e.Key, e.Decision)
			row.Value = e.Decision.Value
			row.WithholdingTaxType = e.Decision.WithholdingTaxType
			rows = append(rows, row)
		}
	}
	return rows
}

func sheetRow(key corpaction.Key, dec Decision) SheetRow {
	return SheetRow{
		RIC:           key.RIC,
		Type:          key.Type,
		ExecutionDate: key.ExecutionDate,
		AdHoc:         dec.AdHoc,
		Currency:      dec.Currency,
		Subtype:       dec.Subtype,
		TaxationType:  dec.TaxationType,
	}
}
