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

package upload_test

import (
	"context"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/classify"
	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/reconcile"
	"github.com/penny-vault/ca-validator/tradecron"
	"github.com/penny-vault/ca-validator/upload"
)

const currencyURL = "http://currency.test/getData"

var (
	// Friday; the following Monday is a holiday
	now      = time.Date(2022, 6, 3, 10, 0, 0, 0, time.UTC)
	calendar = tradecron.NewCalendar(time.UTC, time.Date(2022, 6, 6, 0, 0, 0, 0, time.UTC))
	june7    = time.Date(2022, 6, 7, 0, 0, 0, 0, time.UTC)
	june8    = time.Date(2022, 6, 8, 0, 0, 0, 0, time.UTC)
)

type fakeCurrency struct {
	currencies map[string]string
	calls      int
}

func (f *fakeCurrency) Currency(_ context.Context, ric string) string {
	f.calls++
	return f.currencies[ric]
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func key(ric string, t corpaction.Type, day time.Time, tax corpaction.TaxationType) corpaction.Key {
	return corpaction.Key{RIC: ric, Type: t, ExecutionDate: day, TaxationType: tax}
}

func cash(ric string, tax corpaction.TaxationType, gross, net decimal.NullDecimal, currency string) corpaction.CashDividend {
	return corpaction.CashDividend{
		Key:      key(ric, corpaction.CashDividendType, june7, tax),
		Gross:    gross,
		Net:      net,
		Currency: currency,
	}
}

func reconcileCash(tags classify.Tags, reuters, edi, plat []corpaction.CashDividend) []reconcile.CashRow {
	r := corpaction.NewSet(corpaction.Reuters)
	r.CashDividends.Records = reuters
	e := corpaction.NewSet(corpaction.EDI)
	e.CashDividends.Records = edi
	p := corpaction.NewSet(corpaction.Platform)
	p.CashDividends.Records = plat
	return reconcile.Run(r, e, p, reconcile.Options{Tags: tags}).CashDividends
}

var _ = Describe("Upload", func() {
	var decider *upload.Decider

	BeforeEach(func() {
		decider = upload.NewDecider(calendar, nil).WithClock(func() time.Time { return now })
	})

	Describe("rights issues", func() {
		var reuters, edi corpaction.Set

		BeforeEach(func() {
			reuters = corpaction.NewSet(corpaction.Reuters)
			reuters.RightsIssues.Records = []corpaction.RightsIssue{
				{Key: key("NOKIA.HE", corpaction.RightsIssueType, june7, ""), Terms: dec("0.2")},
			}
			edi = corpaction.NewSet(corpaction.EDI)
			edi.RightsIssues.Records = []corpaction.RightsIssue{
				{Key: key("NOKIA.HE", corpaction.RightsIssueType, june7, ""), Terms: dec("0.2"), SubscriptionPrice: dec("2.5"), Currency: "EUR"},
			}
		})

		It("proposes the EDI values when the platform lacks the issue", func() {
			res := reconcile.Run(reuters, edi, corpaction.NewSet(corpaction.Platform), reconcile.Options{})
			entries := decider.RightsIssues(res.RightsIssues)
			Expect(entries).To(HaveLen(1))

			d := entries[0].Decision
			Expect(d.Upload).To(BeTrue())
			Expect(d.Field(upload.ColUpload).String()).To(Equal("Yes"))
			Expect(d.Field(upload.ColTerms).String()).To(Equal("0.2"))
			Expect(d.Field(upload.ColSubscriptionPrice).String()).To(Equal("2.5"))
			Expect(d.Currency).To(Equal("EUR"))
			Expect(d.ExecutionOrder).To(Equal(upload.OrderSimilar))
			Expect(d.TaxationType).To(Equal(corpaction.TaxDefault))
			Expect(d.Subtype).To(Equal(upload.SubtypeDefault))
			Expect(d.Field(upload.ColAdHoc).String()).To(Equal("YES"))
		})

		It("does not propose issues the platform already has", func() {
			plat := corpaction.NewSet(corpaction.Platform)
			plat.RightsIssues.Records = []corpaction.RightsIssue{
				{Key: key("NOKIA.HE", corpaction.RightsIssueType, june7, ""), Terms: dec("0.25"), SubscriptionPrice: dec("2.5"), Currency: "EUR"},
			}
			res := reconcile.Run(reuters, edi, plat, reconcile.Options{})
			d := decider.RightsIssues(res.RightsIssues)[0].Decision
			Expect(d.Upload).To(BeFalse())
			Expect(d.Field(upload.ColUpload).String()).To(Equal("No"))
			Expect(d.Value.IsNull()).To(BeTrue())
			Expect(d.Currency).To(BeEmpty())
			Expect(d.ExecutionOrder).To(Equal(upload.OrderSimilar))
		})
	})

	Describe("ad hoc cutoff", func() {
		It("includes everything up to the next business day", func() {
			reuters := corpaction.NewSet(corpaction.Reuters)
			reuters.StockSplits.Records = []corpaction.StockSplit{
				{Key: key("AAPL.OQ", corpaction.StockSplitType, june7, ""), Relation: "4:1"},
				{Key: key("VOD.L", corpaction.StockSplitType, june8, ""), Relation: "2:1"},
			}
			res := reconcile.Run(reuters, corpaction.NewSet(corpaction.EDI), corpaction.NewSet(corpaction.Platform), reconcile.Options{})
			entries := decider.StockSplits(context.Background(), res.StockSplits)
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Key.RIC).To(Equal("AAPL.OQ"))
			Expect(entries[0].Decision.AdHoc).To(BeTrue())
			Expect(entries[1].Decision.AdHoc).To(BeFalse())
		})
	})

	Describe("stock splits and stock dividends", func() {
		It("proposes the Reuters relation and looks up the currency once per RIC", func() {
			currency := &fakeCurrency{currencies: map[string]string{"AAPL.OQ": "USD"}}
			decider = upload.NewDecider(calendar, currency).WithClock(func() time.Time { return now })

			reuters := corpaction.NewSet(corpaction.Reuters)
			reuters.StockSplits.Records = []corpaction.StockSplit{
				{Key: key("AAPL.OQ", corpaction.StockSplitType, june7, ""), Relation: "4:1"},
				{Key: key("AAPL.OQ", corpaction.StockSplitType, june8, ""), Relation: "2:1"},
			}
			edi := corpaction.NewSet(corpaction.EDI)
			edi.StockSplits.Records = []corpaction.StockSplit{
				{Key: key("AAPL.OQ", corpaction.StockSplitType, june7, ""), Relation: "4:1"},
			}
			res := reconcile.Run(reuters, edi, corpaction.NewSet(corpaction.Platform), reconcile.Options{})
			entries := decider.StockSplits(context.Background(), res.StockSplits)

			Expect(currency.calls).To(Equal(1))
			Expect(entries[0].Decision.Upload).To(BeTrue())
			Expect(entries[0].Decision.Field(upload.ColRelation).String()).To(Equal("4:1"))
			Expect(entries[0].Decision.Currency).To(Equal("USD"))
			Expect(entries[1].Decision.Upload).To(BeFalse())
			Expect(entries[1].Decision.Currency).To(Equal("USD"))
		})

		It("proposes the Reuters stock dividend", func() {
			reuters := corpaction.NewSet(corpaction.Reuters)
			reuters.StockDividends.Records = []corpaction.StockDividend{
				{Key: key("5106.KL", corpaction.StockDividendType, june7, ""), Percent: dec("10")},
			}
			edi := corpaction.NewSet(corpaction.EDI)
			edi.StockDividends.Records = []corpaction.StockDividend{
				{Key: key("5106.KL", corpaction.StockDividendType, june7, ""), Percent: dec("10")},
			}
			res := reconcile.Run(reuters, edi, corpaction.NewSet(corpaction.Platform), reconcile.Options{})
			entries := decider.StockDividends(context.Background(), res.StockDividends)
			Expect(entries[0].Decision.Upload).To(BeTrue())
			Expect(entries[0].Decision.Field(upload.ColStockDividend).String()).To(Equal("10"))
			Expect(entries[0].Decision.Currency).To(BeEmpty())
			Expect(entries[0].Decision.TaxationType).To(Equal(corpaction.TaxDefault))
		})
	})

	Describe("cash dividends", func() {
		It("proposes the Reuters GROSS amount", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{cash("7203.T", "", dec("60"), dec("60"), "JPY")},
				[]corpaction.CashDividend{cash("7203.T", corpaction.TaxDefault, dec("60"), dec("48"), "JPY")},
				nil,
			)
			d := decider.CashDividends(rows)[0].Decision
			Expect(d.Upload).To(BeTrue())
			Expect(d.Field(upload.ColValue).String()).To(Equal("60"))
			Expect(d.Currency).To(Equal("JPY"))
			Expect(d.Subtype).To(Equal(upload.SubtypeEstimated))
			Expect(d.TaxationType).To(Equal(corpaction.TaxDefault))
			Expect(d.WithholdingTaxType).To(Equal(upload.WithholdingGross))
		})

		It("requires agreement on the currency", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{cash("VOD.L", "", dec("0.045"), dec("0.045"), "GBP")},
				[]corpaction.CashDividend{cash("VOD.L", corpaction.TaxDefault, dec("0.045"), dec("0.045"), "GBp")},
				nil,
			)
			d := decider.CashDividends(rows)[0].Decision
			Expect(d.Upload).To(BeFalse())
			Expect(d.Value.IsNull()).To(BeTrue())
		})

		It("keeps the taxation type of the row", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{cash("PETR4.SA", "", dec("0.5"), dec("0.425"), "BRL")},
				[]corpaction.CashDividend{cash("PETR4.SA", corpaction.TaxInterestOnCapital, dec("0.5"), dec("0.425"), "BRL")},
				nil,
			)
			d := decider.CashDividends(rows)[0].Decision
			Expect(d.Upload).To(BeTrue())
			Expect(d.TaxationType).To(Equal(corpaction.TaxInterestOnCapital))
		})

		It("decides ADRs on the NET amount", func() {
			reuters := []corpaction.CashDividend{cash("BABA.N", "", dec("1.0"), dec("0.9"), "USD")}
			edi := []corpaction.CashDividend{cash("BABA.N", corpaction.TaxDefault, dec("1.1"), dec("0.9"), "USD")}

			plain := decider.CashDividends(reconcileCash(nil, reuters, edi, nil))[0].Decision
			Expect(plain.Upload).To(BeFalse())
			Expect(plain.WithholdingTaxType).To(Equal(upload.WithholdingGross))

			adr := decider.CashDividends(reconcileCash(classify.Tags{"BABA.N": {ADR: true}}, reuters, edi, nil))[0].Decision
			Expect(adr.Upload).To(BeTrue())
			Expect(adr.Field(upload.ColValue).String()).To(Equal("0.9"))
			Expect(adr.WithholdingTaxType).To(Equal(upload.WithholdingNet))
		})

		It("withholds NET for Istanbul listings with equal amounts", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{cash("THYAO.IS", "", dec("1.2"), dec("1.2"), "TRY")},
				[]corpaction.CashDividend{cash("THYAO.IS", corpaction.TaxDefault, dec("1.2"), dec("1.02"), "TRY")},
				nil,
			)
			Expect(decider.CashDividends(rows)[0].Decision.WithholdingTaxType).To(Equal(upload.WithholdingNet))
		})

		It("does not propose dividends the platform already has", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{cash("AAPL.OQ", "", dec("0.23"), dec("0.23"), "USD")},
				[]corpaction.CashDividend{cash("AAPL.OQ", corpaction.TaxDefault, dec("0.23"), dec("0.23"), "USD")},
				[]corpaction.CashDividend{cash("AAPL.OQ", corpaction.TaxDefault, dec("0.23"), decimal.NullDecimal{}, "USD")},
			)
			Expect(decider.CashDividends(rows)[0].Decision.Upload).To(BeFalse())
		})
	})

	Describe("upload sheet", func() {
		It("lists eligible rows in template order", func() {
			rows := reconcileCash(nil,
				[]corpaction.CashDividend{
					cash("7203.T", "", dec("60"), dec("60"), "JPY"),
					cash("VOD.L", "", dec("0.045"), dec("0.045"), "GBP"),
				},
				[]corpaction.CashDividend{cash("7203.T", corpaction.TaxDefault, dec("60"), dec("48"), "JPY")},
				nil,
			)
			res := upload.Result{CashDividends: decider.CashDividends(rows)}
			sheet := upload.SheetRows(res)
			Expect(sheet).To(HaveLen(1))

			cells := sheet[0].Cells()
			Expect(cells).To(HaveLen(len(upload.SheetHeader)))
			Expect(cells[0]).To(Equal("7203.T"))
			Expect(cells[1]).To(Equal("CASH_DIVIDEND"))
			Expect(cells[2]).To(Equal("2022-06-07"))
			Expect(cells[4]).To(Equal("YES"))
			Expect(cells[5]).To(Equal("JPY"))
			Expect(cells[6]).To(Equal(60.0))
			Expect(cells[10]).To(Equal("GROSS"))
			Expect(cells[13]).To(Equal("EST"))
			Expect(cells[15]).To(Equal("DEFAULT"))
		})
	})

	Describe("currency client", func() {
		var client *upload.CurrencyClient

		BeforeEach(func() {
			httpmock.Activate()
			client = upload.NewCurrencyClient(config.Endpoint{URL: currencyURL}, time.Second, nil)
		})

		AfterEach(func() {
			httpmock.DeactivateAndReset()
		})

		It("returns the currency", func() {
			httpmock.RegisterResponderWithQuery("GET", currencyURL, map[string]string{"ref": "AAPL.OQ", "q": "CUR"},
				httpmock.NewStringResponder(200, "USD\n"))
			Expect(client.Currency(context.Background(), "AAPL.OQ")).To(Equal("USD"))
		})

		It("returns a blank currency on failure", func() {
			httpmock.RegisterResponderWithQuery("GET", currencyURL, map[string]string{"ref": "AAPL.OQ", "q": "CUR"},
				httpmock.NewStringResponder(500, "boom"))
			Expect(client.Currency(context.Background(), "AAPL.OQ")).To(BeEmpty())
		})

		It("serves repeated lookups from the cache", func() {
			cache, err := common.NewCache(config.Cache{LocalSize: 10})
			Expect(err).To(BeNil())
			client = upload.NewCurrencyClient(config.Endpoint{URL: currencyURL}, time.Second, cache)
			httpmock.RegisterResponderWithQuery("GET", currencyURL, map[string]string{"ref": "BHP.AX", "q": "CUR"},
				httpmock.NewStringResponder(200, "AUD"))

			Expect(client.Currency(context.Background(), "BHP.AX")).To(Equal("AUD"))
			Expect(client.Currency(context.Background(), "BHP.AX")).To(Equal("AUD"))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})
	})
})
