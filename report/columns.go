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

package report

import (
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/reconcile"
	"github.com/penny-vault/ca-validator/upload"
)

// Sheet names in workbook order
const (
	SheetStockDividends = "Stock Dividends"
	SheetStockSplits    = "Stock Splits"
	SheetRightsIssues   = "Rights Issues"
	SheetCashDividends  = "Cash Dividends"
	SheetUpload         = "Upload Sheet"
	SheetBlacklist      = "BL"
	SheetCAs            = "CAs"
)

// Fixed column names
const (
	ColRIC               = "RIC"
	ColISIN              = "ISIN"
	ColTicker            = "TICKER"
	ColName              = "Name"
	ColType              = "Type"
	ColExecutionDate     = "Execution Date"
	ColTaxationType      = "Dividend Taxation Type"
	ColAdditionalComment = "Additional Comment"
	ColPlatformLookup    = "Platform_Lookup"
	ColBlacklist         = "BL"
	ColComment           = "Comment"
)

var vendors = []corpaction.Vendor{corpaction.Reuters, corpaction.EDI, corpaction.Platform}

// VendorColumn names the column holding col as reported by v, e.g.
// "Reuters_GROSS"
func VendorColumn(v corpaction.Vendor, col string) string {
	return string(v) + "_" + col
}

// table is a sheet worth of cells with the positions of the flag columns
type table struct {
	name      string
	header    []string
	rows      [][]interface{}
	firstFlag int
	lastFlag  int
	dateCol   int
}

// Header lists the columns of the sheet of a schema. Cash dividends carry
// the taxation type and move the platform lookup behind the manual review
// columns.
func Header(schema corpaction.Schema) []string {
	header := []string{ColRIC, ColISIN, ColTicker, ColName, ColType, ColExecutionDate}
	if schema.UsesTaxationType {
		header = append(header, ColTaxationType)
	}
	for _, v := range vendors {
		for _, col := range schema.Columns {
			header = append(header, VendorColumn(v, col))
		}
	}
	for _, key := range reconcile.FlagKeys(schema) {
		header = append(header, key.String())
	}
	header = append(header, ColAdditionalComment)
	header = append(header, upload.Columns(schema.Types[0])...)
	header = append(header, ColBlacklist)
	if schema.UsesTaxationType {
		header = append(header, ColPlatformLookup)
	}
	return append(header, ColComment)
}

func buildTable[T corpaction.Record](name string, schema corpaction.Schema, entries []upload.Entry[T]) table {
	flags := reconcile.FlagKeys(schema)
	uploadCols := upload.Columns(schema.Types[0])

	t := table{
		name:    name,
		header:  Header(schema),
		rows:    make([][]interface{}, 0, len(entries)),
		dateCol: 5,
	}
	t.firstFlag = 6 + len(vendors)*len(schema.Columns)
	if schema.UsesTaxationType {
		t.firstFlag++
	}
	t.lastFlag = t.firstFlag + len(flags) - 1

	for _, e := range entries {
		cells := make([]interface{}, 0, len(t.header))
		cells = append(cells, e.Key.RIC, text(e.ISIN), text(e.Ticker), text(e.Name), string(e.Key.Type), e.Key.ExecutionDate)
		if schema.UsesTaxationType {
			cells = append(cells, text(string(e.Key.TaxationType)))
		}
		for _, v := range vendors {
			for _, col := range schema.Columns {
				cells = append(cells, e.Value(v, col).Interface())
			}
		}
		for _, key := range flags {
			cells = append(cells, e.Flags[key])
		}
		cells = append(cells, text(e.AdditionalComment))
		for _, col := range uploadCols {
			cells = append(cells, e.Decision.Field(col).Interface())
		}
		cells = append(cells, nil)
		if schema.UsesTaxationType {
			cells = append(cells, text(e.PlatformLookup))
		}
		cells = append(cells, text(e.Comment))
		t.rows = append(t.rows, cells)
	}
	return t
}

// text leaves empty strings as blank cells
func text(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
