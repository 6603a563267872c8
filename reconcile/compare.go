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
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// MaxRoundingDigits is where the rounding scan starts
const MaxRoundingDigits = 10

// Compare sets the agreement flags of every row.
//
// Aggregate schemas get one flag per vendor pair. It is true when both
// vendors have a record and agree on every column both of them report;
// null never equals null.
//
// Per-column schemas get one flag per vendor pair and column. When both
// vendors have a record, two nulls are equal. A missing record never
// agrees with anything.
func Compare[T corpaction.Record](schema corpaction.Schema, rows []Row[T]) []Row[T] {
	res := cloneRows(rows)
	for idx := range res {
		row := &res[idx]
		for _, pair := range corpaction.Pairs {
			a, b := row.Record(pair.A), row.Record(pair.B)
			if !schema.PerColumn {
				row.Flags[FlagKey{Pair: pair}] = aggregateEqual(schema.Compared(pair), a, b)
				continue
			}
			for _, col := range schema.Columns {
				row.Flags[FlagKey{Pair: pair, Column: col}] = columnEqual(col, a, b)
			}
		}
	}
	return res
}

func aggregateEqual[T corpaction.Record](cols []string, a, b *T) bool {
	if a == nil || b == nil || len(cols) == 0 {
		return false
	}
	for _, col := range cols {
		va, vb := (*a).Field(col), (*b).Field(col)
		if va.IsNull() || vb.IsNull() || !va.Equal(vb) {
			return false
		}
	}
	return true
}

func columnEqual[T corpaction.Record](col string, a, b *T) bool {
	if a == nil || b == nil {
		return false
	}
	return (*a).Field(col).Equal((*b).Field(col))
}

// MaxEqualDigits returns the largest number of decimal places, scanning
// from MaxRoundingDigits down to 0, at which a and b are equal after
// banker's rounding. It returns -1 if they differ at every precision.
func MaxEqualDigits(a, b decimal.Decimal) int {
	for d := MaxRoundingDigits; d >= 0; d-- {
		if a.RoundBank(int32(d)).Equal(b.RoundBank(int32(d))) {
			return d
		}
	}
	return -1
}

// CorrectRounding turns false flags of the given columns true when both
// values agree at minDigits or more decimal places. Flags never change
// from true to false. Changed rows get " Rounded" appended once.
func CorrectRounding[T corpaction.Record](rows []Row[T], columns []string, minDigits int) []Row[T] {
	res := cloneRows(rows)
	for idx := range res {
		row := &res[idx]
		changed := false
		for _, col := range columns {
			for _, pair := range corpaction.Pairs {
				key := FlagKey{Pair: pair, Column: col}
				if row.Flags[key] {
					continue
				}
				a, okA := row.Value(pair.A, col).Decimal()
				b, okB := row.Value(pair.B, col).Decimal()
				if !okA || !okB {
					continue
				}
				if MaxEqualDigits(a, b) >= minDigits {
					row.Flags[key] = true
					changed = true
				}
			}
		}
		if changed {
			row.annotate(NoteRounded)
		}
	}
	return res
}
