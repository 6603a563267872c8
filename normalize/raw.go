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

	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// ReutersRow is one line of a Reuters corporate actions workbook. Values
// holds the unnamed value columns that follow the details column; their
// meaning depends on the event.
type ReutersRow struct {
	RIC     string
	Event   string
	Details string
	Values  [3]string
}

// EDIRow is one line of the EDI corporate actions CSV
type EDIRow struct {
	RIC                  string
	EventType            string
	ExDate               string
	SplitRatio           string
	GrossAmount          string
	NetAmount            string
	StockDividendRatio   string
	ReportedAmount       string
	SubscriptionRatio    string
	Currency             string
	SubscriptionPrice    string
	SubscriptionCurrency string
	Source               string
	TaxRate              string
}

// PlatformRow is a corporate action as stored on the platform. The platform
// stores cash amounts as a single value tagged with the withholding tax type.
type PlatformRow struct {
	RIC                string              `json:"RIC"`
	Type               corpaction.Type     `json:"Type"`
	ExecutionDate      string              `json:"Execution Date"`
	Relation           string              `json:"Relation"`
	StockDividend      decimal.NullDecimal `json:"Stock Dividend"`
	Terms              decimal.NullDecimal `json:"Terms"`
	SubscriptionPrice  decimal.NullDecimal `json:"Subscription Price"`
	Currency           string              `json:"Currency"`
	Value              decimal.NullDecimal `json:"Value"`
	WithholdingTaxType string              `json:"Withholding Tax Type"`
	TaxationType       string              `json:"Dividend Taxation Type"`
	FrankingAmount     decimal.NullDecimal `json:"Franking amount"`
	CFIAmount          decimal.NullDecimal `json:"CFI amount"`
}

// CapitalEventRow is one line of the ICE capital events feed. Instruments
// are identified by exchange identifiers instead of a RIC.
type CapitalEventRow struct {
	ISIN      string
	EventType string
	MIC       string
	SEDOL     string
}

// Warning is a non-fatal problem found while normalizing a vendor record
type Warning struct {
	Vendor corpaction.Vendor
	RIC    string
	Field  string
	Value  string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s %s=%q: %v", w.Vendor, w.RIC, w.Field, w.Value, w.Err)
}

// Result is the output of normalizing one vendor feed
type Result struct {
	Set      corpaction.Set
	Warnings []Warning
}
