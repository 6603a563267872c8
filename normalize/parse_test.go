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

package normalize_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
)

var _ = Describe("Parse", func() {
	DescribeTable("when parsing ratios",
		func(raw string, layout normalize.RatioLayout, expected string) {
			r, err := normalize.ParseRatio(raw, layout)
			Expect(err).To(BeNil())
			Expect(r.String()).To(Equal(expected))
		},
		Entry("fraction", "1:3", normalize.NumeratorDenominator, "0.333333"),
		Entry("fraction greater than one", "2:1", normalize.NumeratorDenominator, "2"),
		Entry("raw number", "1.5", normalize.NumeratorDenominator, "1.5"),
		Entry("raw number rounded", "0.12345678", normalize.NumeratorDenominator, "0.123457"),
		Entry("placeholder denominator", "1:--", normalize.NumeratorDenominator, "0"),
		Entry("reuters label:denominator:numerator", "Ratio:2:1", normalize.LabelDenominatorNumerator, "0.5"),
		Entry("reuters with thousands separator", "Ratio: 4 : 1,000", normalize.LabelDenominatorNumerator, "250"),
		Entry("reuters placeholder denominator", "Ratio: -- : 3", normalize.LabelDenominatorNumerator, "0"),
		Entry("reuters placeholder only", "Ratio: --", normalize.LabelDenominatorNumerator, "0"),
	)

	DescribeTable("when a ratio cannot be parsed",
		func(raw string, layout normalize.RatioLayout, expected error) {
			_, err := normalize.ParseRatio(raw, layout)
			Expect(errors.Is(err, expected)).To(BeTrue())
		},
		Entry("missing denominator", "abc", normalize.NumeratorDenominator, corpaction.ErrMalformedRecord),
		Entry("not a number", "a:b", normalize.NumeratorDenominator, normalize.ErrInvalidNumber),
		Entry("zero denominator", "1:0", normalize.NumeratorDenominator, normalize.ErrDivideByZero),
		Entry("empty", " ", normalize.NumeratorDenominator, normalize.ErrEmptyValue),
		Entry("reuters too few tokens", "2:1", normalize.LabelDenominatorNumerator, corpaction.ErrMalformedRecord),
	)

	DescribeTable("when encoding relations",
		func(raw string, expected string) {
			rel, err := normalize.CanonicalRelation(raw, normalize.NumeratorDenominator)
			Expect(err).To(BeNil())
			Expect(rel).To(Equal(expected))
		},
		Entry("split", "2:1", "2:1"),
		Entry("reverse split", "1:2", "1:2"),
		Entry("one third", "1:3", "1:3"),
		Entry("two thirds", "2:3", "1:1.5"),
		Entry("three halves", "3:2", "1.5:1"),
		Entry("raw ratio", "0.25", "1:4"),
		Entry("zero", "0", "0"),
		Entry("placeholder", "1:--", "0"),
	)

	It("should recover the ratio when re-parsing a canonical relation", func() {
		pairs := [][2]int64{{1, 3}, {2, 3}, {7, 5}, {10, 1}, {1, 7}, {3, 8}, {125, 100}}
		tolerance := decimal.RequireFromString("0.000001")
		for _, p := range pairs {
			ratio, err := normalize.ParseRatio(decimal.NewFromInt(p[0]).String()+":"+decimal.NewFromInt(p[1]).String(), normalize.NumeratorDenominator)
			Expect(err).To(BeNil())
			Expect(ratio.Equal(decimal.NewFromInt(p[0]).Div(decimal.NewFromInt(p[1])).Round(6))).To(BeTrue())

			rel := normalize.Relation(decimal.NewFromInt(p[0]).Div(decimal.NewFromInt(p[1])))
			reparsed, err := normalize.ParseRatio(rel, normalize.NumeratorDenominator)
			Expect(err).To(BeNil())
			Expect(reparsed.Sub(ratio).Abs().LessThanOrEqual(tolerance)).To(BeTrue(), rel)

			again, err := normalize.CanonicalRelation(rel, normalize.NumeratorDenominator)
			Expect(err).To(BeNil())
			Expect(again).To(Equal(rel))
		}
	})

	DescribeTable("when cleaning numbers",
		func(raw string, expected string, expectErr bool) {
			d, err := normalize.CleanNumber(raw)
			Expect(d.String()).To(Equal(expected))
			if expectErr {
				Expect(errors.Is(err, normalize.ErrInvalidNumber)).To(BeTrue())
			} else {
				Expect(err).To(BeNil())
			}
		},
		Entry("currency suffix", " 1,234.5 USD", "1234.5", false),
		Entry("rounded to six places", "0.1234567", "0.123457", false),
		Entry("plain integer", "12", "12", false),
		Entry("garbage", "n/a", "0", true),
		Entry("empty", "", "0", true),
	)

	DescribeTable("when parsing Reuters detail dates",
		func(raw string, expected time.Time) {
			d, err := normalize.ParseDetailsDate(raw)
			Expect(err).To(BeNil())
			Expect(d).To(Equal(expected))
		},
		Entry("iso", "Ex Date: 2022-06-01", time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)),
		Entry("day month year", "Ex Date: 02-Jun-2022", time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC)),
		Entry("placeholder", "Ex Date: --", corpaction.NoDate),
	)

	It("should reject an unparseable date", func() {
		_, err := normalize.ParseDate("sometime")
		Expect(errors.Is(err, normalize.ErrInvalidDate)).To(BeTrue())
	})

	DescribeTable("when inferring the taxation type",
		func(ric string, rate string, source string, expected corpaction.TaxationType) {
			taxRate, err := normalize.ParseNullable(rate)
			Expect(err).To(BeNil())
			Expect(normalize.InferTaxationType(ric, taxRate, source)).To(Equal(expected))
		},
		Entry("interest on capital", "PETR4.SA", "15", "", corpaction.TaxInterestOnCapital),
		Entry("brazil with other rate", "PETR4.SA", "10", "", corpaction.TaxDefault),
		Entry("return of capital", "BHP.AX", "", normalize.ReturnOfCapitalSource, corpaction.TaxReturnOfCapital),
		Entry("property income distribution", "LAND.L", "20", "", corpaction.TaxPID),
		Entry("pid on chi-x", "LAND.CHI", "20.0", "", corpaction.TaxPID),
		Entry("pid outranks return of capital", "LAND.L", "20", normalize.ReturnOfCapitalSource, corpaction.TaxPID),
		Entry("default", "AAPL.OQ", "30", "", corpaction.TaxDefault),
	)
})
