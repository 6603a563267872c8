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
	"strings"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/corpaction"
)

// ReturnOfCapitalSource is the EDI source tag used for return of capital events
const ReturnOfCapitalSource = "edi_web_ca_rcap"

var (
	interestOnCapitalRate = decimal.NewFromInt(15)
	pidRate               = decimal.NewFromInt(20)
	pidSuffixes           = []string{".L", ".CHI", ".NXX"}
)

// InferTaxationType derives the dividend taxation type of an EDI cash
// dividend. REIT classification comes from symbology and overrides the
// result; see classify.ApplyREIT.
func InferTaxationType(ric string, taxRate decimal.NullDecimal, source string) corpaction.TaxationType {
	switch {
	case taxRate.Valid && taxRate.Decimal.Equal(pidRate) && hasAnySuffix(ric, pidSuffixes):
		return corpaction.TaxPID
	case strings.TrimSpace(source) == ReturnOfCapitalSource:
		return corpaction.TaxReturnOfCapital
	case taxRate.Valid && taxRate.Decimal.Equal(interestOnCapitalRate) && strings.HasSuffix(ric, ".SA"):
		return corpaction.TaxInterestOnCapital
	default:
		return corpaction.TaxDefault
	}
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
