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

// Table holds the normalized records of one corporate action type as
// reported by a single vendor
type Table[T Record] struct {
	Vendor  Vendor
	Records []T
}

// NewTable creates a table for the given vendor
func NewTable[T Record](vendor Vendor, records ...T) Table[T] {
	if records == nil {
		records = make([]T, 0)
	}
	return Table[T]{
		Vendor:  vendor,
		Records: records,
	}
}

func (t Table[T]) Len() int {
	return len(t.Records)
}

// Dedup returns a copy of the table without exact duplicate records. The
// first occurrence of every record is kept.
func (t Table[T]) Dedup() Table[T] {
	seen := make(map[string]bool, len(t.Records))
	res := make([]T, 0, len(t.Records))
	for _, rec := range t.Records {
		fp := rec.fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		res = append(res, rec)
	}
	return Table[T]{Vendor: t.Vendor, Records: res}
}

// Filter returns a copy of the table holding only records for which keep
// returns true
func (t Table[T]) Filter(keep func(T) bool) Table[T] {
	res := make([]T, 0, len(t.Records))
	for _, rec := range t.Records {
		if keep(rec) {
			res = append(res, rec)
		}
	}
	return Table[T]{Vendor: t.Vendor, Records: res}
}

// RICs returns the distinct RICs in the table in order of first appearance
func (t Table[T]) RICs() []string {
	seen := make(map[string]bool)
	rics := make([]string, 0, len(t.Records))
	for _, rec := range t.Records {
		ric := rec.CAKey().RIC
		if !seen[ric] {
			seen[ric] = true
			rics = append(rics, ric)
		}
	}
	return rics
}

// Set groups the four normalized tables produced for one vendor
type Set struct {
	Vendor         Vendor
	StockDividends Table[StockDividend]
	StockSplits    Table[StockSplit]
	RightsIssues   Table[RightsIssue]
	CashDividends  Table[CashDividend]
}

// NewSet returns an empty set of tables for vendor
func NewSet(vendor Vendor) Set {
	return Set{
		Vendor:         vendor,
		StockDividends: NewTable[StockDividend](vendor),
		StockSplits:    NewTable[StockSplit](vendor),
		RightsIssues:   NewTable[RightsIssue](vendor),
		CashDividends:  NewTable[CashDividend](vendor),
	}
}

// Dedup removes exact duplicates from every table in the set
func (s Set) Dedup() Set {
	return Set{
		Vendor:         s.Vendor,
		StockDividends: s.StockDividends.Dedup(),
		StockSplits:    s.StockSplits.Dedup(),
		RightsIssues:   s.RightsIssues.Dedup(),
		CashDividends:  s.CashDividends.Dedup(),
	}
}
