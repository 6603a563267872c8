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

package corpaction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Record is a normalized corporate action from a single vendor. The set of
// implementations is closed: StockDividend, StockSplit, RightsIssue and
// CashDividend.
type Record interface {
	CAKey() Key
	// Field returns the value of a non-key column, or null if the record
	// does not carry that column
	Field(name string) Value
	fingerprint() string
}

// StockDividend carries the dividend ratio expressed in percent
type StockDividend struct {
	Key
	Percent decimal.NullDecimal
}

// StockSplit carries a canonical "X:Y" relation, empty when unknown
type StockSplit struct {
	Key
	Relation string
}

type RightsIssue struct {
	Key
	Terms             decimal.NullDecimal
	SubscriptionPrice decimal.NullDecimal
	Currency          string
}

// CashDividend covers both cash and special dividends. Franking and CFI are
// pre-formatted annotations ("Franking: 0.5") that do not take part in the
// comparison.
type CashDividend struct {
	Key
	Gross    decimal.NullDecimal
	Net      decimal.NullDecimal
	Currency string
	Franking string
	CFI      string
}

func (r StockDividend) CAKey() Key { return r.Key }
func (r StockSplit) CAKey() Key    { return r.Key }
func (r RightsIssue) CAKey() Key   { return r.Key }
func (r CashDividend) CAKey() Key  { return r.Key }

func (r StockDividend) Field(name string) Value {
	if name == ColStockDividend {
		return NullableNumber(r.Percent)
	}
	return Null()
}

func (r StockSplit) Field(name string) Value {
	if name == ColRelation {
		return Text(r.Relation)
	}
	return Null()
}

func (r RightsIssue) Field(name string) Value {
	switch name {
	case ColTerms:
		return NullableNumber(r.Terms)
	case ColSubscriptionPrice:
		return NullableNumber(r.SubscriptionPrice)
	case ColCurrency:
		return Text(r.Currency)
	}
	return Null()
}

func (r CashDividend) Field(name string) Value {
	switch name {
	case ColGross:
		return NullableNumber(r.Gross)
	case ColNet:
		return NullableNumber(r.Net)
	case ColCurrency:
		return Text(r.Currency)
	}
	return Null()
}

func fingerprintOf(k Key, vals ...string) string {
	return k.ID() + "|" + strings.Join(vals, "|")
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "<nil>"
	}
	return d.Decimal.String()
}

func (r StockDividend) fingerprint() string {
	return fingerprintOf(r.Key, nullDecimalString(r.Percent))
}

func (r StockSplit) fingerprint() string {
	return fingerprintOf(r.Key, r.Relation)
}

func (r RightsIssue) fingerprint() string {
	return fingerprintOf(r.Key, nullDecimalString(r.Terms), nullDecimalString(r.SubscriptionPrice), r.Currency)
}

func (r CashDividend) fingerprint() string {
	return fingerprintOf(r.Key, nullDecimalString(r.Gross), nullDecimalString(r.Net), r.Currency, r.Franking, r.CFI)
}

// Schema describes how the rows of one corporate action type are compared
type Schema struct {
	// Types are the corporate action types that share this schema
	Types []Type

	// Columns are the non-key columns in report order
	Columns []string

	// PerColumn switches from one aggregate flag per vendor pair to one flag
	// per vendor pair and column
	PerColumn bool

	// UsesTaxationType adds the dividend taxation type to the join key
	UsesTaxationType bool

	// Supplies restricts the columns a vendor reports; vendors missing from
	// the map report every column
	Supplies map[Vendor][]string
}

// ColumnsFor returns the columns vendor v reports
func (s Schema) ColumnsFor(v Vendor) []string {
	if cols, ok := s.Supplies[v]; ok {
		return cols
	}
	return s.Columns
}

// Compared returns the columns reported by both vendors of the pair, in
// schema order
func (s Schema) Compared(p Pair) []string {
	a := s.ColumnsFor(p.A)
	b := s.ColumnsFor(p.B)
	res := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		if contains(a, col) && contains(b, col) {
			res = append(res, col)
		}
	}
	return res
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}

var (
	StockDividendSchema = Schema{
		Types:   []Type{StockDividendType},
		Columns: []string{ColStockDividend},
	}
	StockSplitSchema = Schema{
		Types:   []Type{StockSplitType},
		Columns: []string{ColRelation},
	}
	RightsIssueSchema = Schema{
		Types:   []Type{RightsIssueType},
		Columns: []string{ColTerms, ColSubscriptionPrice, ColCurrency},
		Supplies: map[Vendor][]string{
			Reuters: {ColTerms},
		},
	}
	CashDividendSchema = Schema{
		Types:            []Type{CashDividendType, SpecialDividendType},
		Columns:          []string{ColGross, ColNet, ColCurrency},
		PerColumn:        true,
		UsesTaxationType: true,
	}
)
