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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// Precision is the number of decimal places vendor values are rounded to
const Precision = 6

// Placeholder is the token vendors use when no value is known
const Placeholder = "--"

// RatioLayout describes how a vendor encodes a colon delimited ratio
type RatioLayout int

const (
	// LabelDenominatorNumerator is the Reuters encoding "label:denominator:numerator"
	LabelDenominatorNumerator RatioLayout = iota
	// NumeratorDenominator is the EDI and platform encoding "numerator:denominator"
	NumeratorDenominator
)

var (
	ErrEmptyValue    = errors.New("value is empty")
	ErrDivideByZero  = errors.New("ratio denominator is zero")
	ErrInvalidNumber = errors.New("value is not a number")
	ErrInvalidDate   = errors.New("value is not a date")
)

var one = decimal.NewFromInt(1)

// CleanNumber converts a vendor formatted number such as " 1,234.5 USD" into
// a decimal rounded to six places. Values that cannot be parsed return zero
// and an error; callers treat that as a warning.
func CleanNumber(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return d.Round(Precision), nil
}

// ParseNullable parses a plain numeric field at full precision; an empty
// field is null
func ParseNullable(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return decimal.NewNullDecimal(d), nil
}

// exactRatio returns numerator / denominator at full precision. A
// placeholder denominator returns zero without error.
func exactRatio(raw string, layout RatioLayout) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	if layout == NumeratorDenominator {
		if d, err := decimal.NewFromString(s); err == nil {
			return d, nil
		}
	}

	parts := strings.Split(s, ":")

	var numStr, denStr string
	switch layout {
	case LabelDenominatorNumerator:
		if len(parts) < 3 {
			if len(parts) == 2 && strings.TrimSpace(parts[1]) == Placeholder {
				return decimal.Zero, nil
			}
			return decimal.Zero, fmt.Errorf("%w: expected label:denominator:numerator, got %q", corpaction.ErrMalformedRecord, raw)
		}
		denStr, numStr = parts[1], parts[2]
	default:
		if len(parts) < 2 {
			return decimal.Zero, fmt.Errorf("%w: expected numerator:denominator, got %q", corpaction.ErrMalformedRecord, raw)
		}
		numStr, denStr = parts[0], parts[1]
	}

	if strings.TrimSpace(denStr) == Placeholder {
		return decimal.Zero, nil
	}

	var num, den decimal.Decimal
	var err error
	if layout == LabelDenominatorNumerator {
		if num, err = CleanNumber(numStr); err != nil {
			return decimal.Zero, err
		}
		if den, err = CleanNumber(denStr); err != nil {
			return decimal.Zero, err
		}
	} else {
		if num, err = decimal.NewFromString(strings.TrimSpace(numStr)); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, numStr)
		}
		if den, err = decimal.NewFromString(strings.TrimSpace(denStr)); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, denStr)
		}
	}

	if den.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}

	return num.Div(den), nil
}

// ParseRatio parses a raw or colon delimited ratio and rounds it to six
// decimal places
func ParseRatio(raw string, layout RatioLayout) (decimal.Decimal, error) {
	r, err := exactRatio(raw, layout)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Round(Precision), nil
}

// Relation encodes a ratio as "X:Y" with the larger side relative to one so
// relations from different vendors compare as strings. A zero ratio encodes
// as "0".
func Relation(ratio decimal.Decimal) string {
	switch {
	case ratio.IsZero():
		return "0"
	case ratio.LessThan(one):
		return fmt.Sprintf("1:%s", one.Div(ratio).Round(Precision).String())
	default:
		return fmt.Sprintf("%s:1", ratio.Round(Precision).String())
	}
}

// CanonicalRelation parses a relation in the given layout and re-encodes it
// in canonical orientation
func CanonicalRelation(raw string, layout RatioLayout) (string, error) {
	if strings.TrimSpace(raw) == "0" {
		return "0", nil
	}
	r, err := exactRatio(raw, layout)
	if err != nil {
		return "", err
	}
	return Relation(r), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02/01/2006",
	"20060102",
}

// ParseDate parses the date formats used by the vendor feeds
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyValue
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return corpaction.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// ParseDetailsDate extracts the execution date from a Reuters details cell
// such as "Ex Date: 2022-06-01". A value ending in the placeholder maps to
// corpaction.NoDate.
func ParseDetailsDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, Placeholder) {
		return corpaction.NoDate, nil
	}
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}
	return ParseDate(s)
}

// afterLastColon returns the text after the last ':' or the whole string
func afterLastColon(s string) string {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// lastToken returns the last space separated token of s
func lastToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
