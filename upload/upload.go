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

package upload

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
	"github.com/penny-vault/ca-validator/reconcile"
	"github.com/penny-vault/ca-validator/tradecron"
)

// Entry is a reconciled row together with its upload decision
type Entry[T corpaction.Record] struct {
	reconcile.Row[T]
	Decision Decision
}

type Result struct {
	StockDividends []Entry[corpaction.StockDividend]
	StockSplits    []Entry[corpaction.StockSplit]
	RightsIssues   []Entry[corpaction.RightsIssue]
	CashDividends  []Entry[corpaction.CashDividend]
}

// Decider derives upload decisions. The ad hoc cutoff is the next business
// day after today.
type Decider struct {
	calendar *tradecron.Calendar
	currency CurrencyLookup
	now      func() time.Time
}

// NewDecider creates a decider; currency may be nil in which case stock
// dividends and splits get a blank currency
func NewDecider(cal *tradecron.Calendar, currency CurrencyLookup) *Decider {
	if cal == nil {
		cal = tradecron.NewCalendar(time.UTC)
	}
	return &Decider{
		calendar: cal,
		currency: currency,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for the ad hoc cutoff
func (d *Decider) WithClock(now func() time.Time) *Decider {
	d.now = now
	return d
}

// Decide derives the upload decision of every reconciled row
func (d *Decider) Decide(ctx context.Context, res reconcile.Result) Result {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "upload.Decide")
	defer span.End()

	out := Result{
		StockDividends: d.StockDividends(ctx, res.StockDividends),
		StockSplits:    d.StockSplits(ctx, res.StockSplits),
		RightsIssues:   d.RightsIssues(res.RightsIssues),
		CashDividends:  d.CashDividends(res.CashDividends),
	}

	counts := map[string]int{
		"StockDividends": countUploads(out.StockDividends),
		"StockSplits":    countUploads(out.StockSplits),
		"RightsIssues":   countUploads(out.RightsIssues),
		"CashDividends":  countUploads(out.CashDividends),
	}
	logEvent := log.Info()
	for name, cnt := range counts {
		span.SetAttributes(attribute.Int(name, cnt))
		logEvent = logEvent.Int(name, cnt)
	}
	logEvent.Msg("upload decisions derived")

	return out
}

// Uploads counts the rows of every type that are marked for upload
func (r Result) Uploads() int {
	return countUploads(r.StockDividends) + countUploads(r.StockSplits) +
		countUploads(r.RightsIssues) + countUploads(r.CashDividends)
}

func countUploads[T corpaction.Record](entries []Entry[T]) int {
	cnt := 0
	for _, e := range entries {
		if e.Decision.Upload {
			cnt++
		}
	}
	return cnt
}

func (d *Decider) adHoc(execDate time.Time) bool {
	cutoff := d.calendar.NextBusinessDay(d.now())
	return !corpaction.DateOf(execDate).After(cutoff)
}

// missing reports whether the platform has no value for col
func missing[T corpaction.Record](row reconcile.Row[T], col string) bool {
	return row.Value(corpaction.Platform, col).IsNull()
}

func (d *Decider) lookupCurrency(ctx context.Context, ric string, memo map[string]string) string {
	if d.currency == nil {
		return ""
	}
	if cur, ok := memo[ric]; ok {
		return cur
	}
	cur := d.currency.Currency(ctx, ric)
	memo[ric] = cur
	return cur
}

// StockDividends proposes the Reuters stock dividend for rows the platform
// lacks and Reuters and EDI agree on
func (d *Decider) StockDividends(ctx context.Context, rows []reconcile.Row[corpaction.StockDividend]) []Entry[corpaction.StockDividend] {
	memo := make(map[string]string)
	res := make([]Entry[corpaction.StockDividend], len(rows))
	for idx, row := range rows {
		dec := Decision{
			Currency:     d.lookupCurrency(ctx, row.Key.RIC, memo),
			Subtype:      SubtypeDefault,
			TaxationType: corpaction.TaxDefault,
			AdHoc:        d.adHoc(row.Key.ExecutionDate),
		}
		if missing(row, corpaction.ColStockDividend) && row.Flag(corpaction.ReutersEDI, "") {
			dec.Upload = true
			dec.Value = row.Value(corpaction.Reuters, corpaction.ColStockDividend)
		}
		res[idx] = Entry[corpaction.StockDividend]{Row: row, Decision: dec}
	}
	return res
}

// StockSplits proposes the Reuters relation for rows the platform lacks and
// Reuters and EDI agree on
func (d *Decider) StockSplits(ctx context.Context, rows []reconcile.Row[corpaction.StockSplit]) []Entry[corpaction.StockSplit] {
	memo := make(map[string]string)
	res := make([]Entry[corpaction.StockSplit], len(rows))
	for idx, row := range rows {
		dec := Decision{
			Currency:     d.lookupCurrency(ctx, row.Key.RIC, memo),
			Subtype:      SubtypeDefault,
			TaxationType: corpaction.TaxDefault,
			AdHoc:        d.adHoc(row.Key.ExecutionDate),
		}
		if missing(row, corpaction.ColRelation) && row.Flag(corpaction.ReutersEDI, "") {
			dec.Upload = true
			dec.Value = row.Value(corpaction.Reuters, corpaction.ColRelation)
		}
		res[idx] = Entry[corpaction.StockSplit]{Row: row, Decision: dec}
	}
	return res
}

// RightsIssues proposes the EDI terms, subscription price and currency for
// rows the platform lacks and Reuters and EDI agree on
func (d *Decider) RightsIssues(rows []reconcile.Row[corpaction.RightsIssue]) []Entry[corpaction.RightsIssue] {
	res := make([]Entry[corpaction.RightsIssue], len(rows))
	for idx, row := range rows {
		dec := Decision{
			Subtype:        SubtypeDefault,
			TaxationType:   corpaction.TaxDefault,
			AdHoc:          d.adHoc(row.Key.ExecutionDate),
			ExecutionOrder: OrderSimilar,
		}
		if missing(row, corpaction.ColTerms) && row.Flag(corpaction.ReutersEDI, "") {
			dec.Upload = true
			dec.Value = row.Value(corpaction.EDI, corpaction.ColTerms)
			dec.SubscriptionPrice = row.Value(corpaction.EDI, corpaction.ColSubscriptionPrice)
			dec.Currency = row.Value(corpaction.EDI, corpaction.ColCurrency).String()
		}
		res[idx] = Entry[corpaction.RightsIssue]{Row: row, Decision: dec}
	}
	return res
}

// CashDividends proposes the Reuters GROSS amount for rows the platform
// lacks and Reuters and EDI agree on in GROSS and currency. ADR rows are
// decided on the NET amount instead.
func (d *Decider) CashDividends(rows []reconcile.CashRow) []Entry[corpaction.CashDividend] {
	res := make([]Entry[corpaction.CashDividend], len(rows))
	for idx, row := range rows {
		taxation := row.Key.TaxationType
		if taxation == corpaction.TaxUnknown {
			taxation = corpaction.TaxDefault
		}
		dec := Decision{
			Subtype:            subtype(row.Key.RIC),
			TaxationType:       taxation,
			WithholdingTaxType: withholding(row),
			AdHoc:              d.adHoc(row.Key.ExecutionDate),
		}

		amount := corpaction.ColGross
		if row.ADR {
			amount = corpaction.ColNet
		}
		if missing(row, corpaction.ColCurrency) &&
			row.Flag(corpaction.ReutersEDI, amount) &&
			row.Flag(corpaction.ReutersEDI, corpaction.ColCurrency) {
			dec.Upload = true
			dec.Value = row.Value(corpaction.Reuters, amount)
			dec.Currency = row.Value(corpaction.Reuters, corpaction.ColCurrency).String()
		}
		res[idx] = Entry[corpaction.CashDividend]{Row: row, Decision: dec}
	}
	return res
}

// withholding is NET for ADRs and for Istanbul listings where Reuters
// reports equal GROSS and NET amounts
func withholding(row reconcile.CashRow) string {
	if row.ADR {
		return WithholdingNet
	}
	if strings.HasSuffix(row.Key.RIC, ".IS") {
		gross, okG := row.Value(corpaction.Reuters, corpaction.ColGross).Decimal()
		net, okN := row.Value(corpaction.Reuters, corpaction.ColNet).Decimal()
		if okG && okN && gross.Equal(net) {
			return WithholdingNet
		}
	}
	return WithholdingGross
}
