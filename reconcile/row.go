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

package reconcile

import (
	"github.com/penny-vault/ca-validator/corpaction"
)

// FlagKey names one pairwise agreement flag. Column is empty for the
// aggregate flag of a pair.
type FlagKey struct {
	Pair   corpaction.Pair
	Column string
}

// String renders the report column name: "Reuters-EDI" or
// "Reuters-EDI_GROSS"
func (k FlagKey) String() string {
	if k.Column == "" {
		return k.Pair.String()
	}
	return k.Pair.String() + "_" + k.Column
}

// FlagKeys lists the flags of a schema in report order: all pairs per
// column for per-column schemas, one flag per pair otherwise
func FlagKeys(schema corpaction.Schema) []FlagKey {
	if !schema.PerColumn {
		keys := make([]FlagKey, len(corpaction.Pairs))
		for idx, pair := range corpaction.Pairs {
			keys[idx] = FlagKey{Pair: pair}
		}
		return keys
	}

	keys := make([]FlagKey, 0, len(schema.Columns)*len(corpaction.Pairs))
	for _, col := range schema.Columns {
		for _, pair := range corpaction.Pairs {
			keys = append(keys, FlagKey{Pair: pair, Column: col})
		}
	}
	return keys
}

type Flags map[FlagKey]bool

func (f Flags) clone() Flags {
	res := make(Flags, len(f))
	for k, v := range f {
		res[k] = v
	}
	return res
}

// Row is one key of the three way outer join. Vendor records are nil where
// the vendor has no record for the key.
type Row[T corpaction.Record] struct {
	Key      corpaction.Key
	Reuters  *T
	EDI      *T
	Platform *T

	Flags Flags

	ISIN   string
	Ticker string
	Name   string

	// ADR is set for cash dividends of instruments classified as ADR
	ADR bool

	AdditionalComment string
	Comment           string
	PlatformLookup    string
}

// Record returns the record of vendor v, or nil
func (r Row[T]) Record(v corpaction.Vendor) *T {
	switch v {
	case corpaction.Reuters:
		return r.Reuters
	case corpaction.EDI:
		return r.EDI
	case corpaction.Platform:
		return r.Platform
	}
	return nil
}

// Value returns column col as reported by vendor v. Missing records yield
// null.
func (r Row[T]) Value(v corpaction.Vendor, col string) corpaction.Value {
	rec := r.Record(v)
	if rec == nil {
		return corpaction.Null()
	}
	return (*rec).Field(col)
}

// Flag returns the agreement flag of pair p; col is empty for aggregate
// flags
func (r Row[T]) Flag(p corpaction.Pair, col string) bool {
	return r.Flags[FlagKey{Pair: p, Column: col}]
}

// annotate appends a note to the additional comment
func (r *Row[T]) annotate(note string) {
	r.AdditionalComment += " " + note
}

func (r Row[T]) clone() Row[T] {
	r.Flags = r.Flags.clone()
	return r
}

func cloneRows[T corpaction.Record](rows []Row[T]) []Row[T] {
	res := make([]Row[T], len(rows))
	for idx, row := range rows {
		res[idx] = row.clone()
	}
	return res
}
