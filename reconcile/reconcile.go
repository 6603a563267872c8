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

// Package reconcile joins the normalized tables of the three vendors,
// flags where they agree and annotates the rows for manual review. Every
// stage returns new rows and leaves its input untouched.
package reconcile

import (
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/classify"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/instrument"
	"github.com/penny-vault/ca-validator/normalize"
)

// DefaultRoundingDigits is the least number of equal decimal places that
// still counts as agreement
const DefaultRoundingDigits = 6

type Options struct {
	RoundingDigits int
	Tags           classify.Tags
	Master         *instrument.Master
	PlatformRaw    []normalize.PlatformRow
	CapitalEvents  []normalize.CapitalEventRow
}

// Result holds the reconciled rows of every corporate action type, sorted
// by RIC and execution date
type Result struct {
	StockDividends []Row[corpaction.StockDividend]
	StockSplits    []Row[corpaction.StockSplit]
	RightsIssues   []Row[corpaction.RightsIssue]
	CashDividends  []Row[corpaction.CashDividend]
}

// Tables joins and compares one corporate action type
func Tables[T corpaction.Record](schema corpaction.Schema, reuters, edi, platform corpaction.Table[T], master *instrument.Master) []Row[T] {
	rows := Join(reuters.Dedup(), edi.Dedup(), platform.Dedup())
	rows = Compare(schema, rows)
	return EnrichIdentifiers(rows, master)
}

// Run reconciles the normalized sets of the three vendors
func Run(reuters, edi, platform corpaction.Set, opts Options) Result {
	digits := opts.RoundingDigits
	if digits <= 0 {
		digits = DefaultRoundingDigits
	}

	stockDivs := Tables(corpaction.StockDividendSchema, reuters.StockDividends, edi.StockDividends, platform.StockDividends, opts.Master)
	splits := Tables(corpaction.StockSplitSchema, reuters.StockSplits, edi.StockSplits, platform.StockSplits, opts.Master)

	rights := Tables(corpaction.RightsIssueSchema, reuters.RightsIssues, edi.RightsIssues, platform.RightsIssues, opts.Master)
	rights = AnnotateRightsEvents(rights, RightsEventTypes(opts.CapitalEvents, opts.Master))

	cash := Tables(corpaction.CashDividendSchema, reuters.CashDividends, edi.CashDividends, platform.CashDividends, opts.Master)
	cash = MarkADR(cash, opts.Tags)
	cash = CorrectRounding(cash, []string{corpaction.ColGross, corpaction.ColNet}, digits)
	cash = PlatformLookup(cash, opts.PlatformRaw)
	cash = FlagZeroDividends(cash)
	cash = ComposeComments(cash)

	res := Result{
		StockDividends: Sort(stockDivs),
		StockSplits:    Sort(splits),
		RightsIssues:   Sort(rights),
		CashDividends:  Sort(cash),
	}

	log.Info().
		Int("StockDividends", len(res.StockDividends)).
		Int("StockSplits", len(res.StockSplits)).
		Int("RightsIssues", len(res.RightsIssues)).
		Int("CashDividends", len(res.CashDividends)).
		Msg("reconciliation complete")

	return res
}
