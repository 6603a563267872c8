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
	"github.com/shopspring/decimal"
)

type valueKind int

const (
	nullKind valueKind = iota
	numberKind
	textKind
)

// Value is a nullable field value taken from a vendor record. Numbers and
// text never compare equal to each other.
type Value struct {
	kind valueKind
	num  decimal.Decimal
	text string
}

func Null() Value {
	return Value{kind: nullKind}
}

func Number(d decimal.Decimal) Value {
	return Value{kind: numberKind, num: d}
}

// NullableNumber converts a decimal.NullDecimal into a Value
func NullableNumber(d decimal.NullDecimal) Value {
	if !d.Valid {
		return Null()
	}
	return Number(d.Decimal)
}

// Text returns a text value; the empty string is treated as null
func Text(s string) Value {
	if s == "" {
		return Null()
	}
	return Value{kind: textKind, text: s}
}

func (v Value) IsNull() bool {
	return v.kind == nullKind
}

// Decimal returns the numeric value and true if v holds a number
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != numberKind {
		return decimal.Zero, false
	}
	return v.num, true
}

// Equal compares two values. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case numberKind:
		return v.num.Equal(o.num)
	case textKind:
		return v.text == o.text
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case numberKind:
		return v.num.String()
	case textKind:
		return v.text
	default:
		return ""
	}
}

// Interface returns a value suitable for writing into a spreadsheet cell
func (v Value) Interface() interface{} {
	switch v.kind {
	case numberKind:
		f, _ := v.num.Float64()
		return f
	case textKind:
		return v.text
	default:
		return nil
	}
}
