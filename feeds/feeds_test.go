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

package feeds_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/feeds"
	"github.com/penny-vault/ca-validator/instrument"
	"github.com/penny-vault/ca-validator/normalize"
)

const (
	ediURL           = "http://edi.test/v1/ca"
	platformURL      = "http://platform.test/api"
	capitalEventsURL = "http://ice.test/corporate-action/instruments"
)

const ediCSV = `ID_RIC,EVENT_TYPE,EX_DT,STOCK_SPLIT_RATIO,GROSS_AMT,NET_AMT,STOCK_DIV_RATIO,REPORTED_AMT,SUBSCRIPTION_RATIO,CRNCY,SUBSCRIPTION_PRICE,SUBSCRIPTION_PRICE_CRNCY,SOURCE,TAX_RATE,IGNORED
PETR4.SA,CASH_DIVIDEND,2022-06-07,,0.5,0.425,,,,BRL,,,edi_web_ca_div,15,x
AAPL.OQ,STOCK_SPLIT,2022-06-07,4:1,,,,,,,,,edi_web_ca_split,,x
`

func writeWorkbook(fn string, lines [][]interface{}) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for idx := range lines {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		Expect(err).To(BeNil())
		Expect(f.SetSheetRow(sheet, axis, &lines[idx])).To(Succeed())
	}
	Expect(f.SaveAs(fn)).To(Succeed())
	Expect(f.Close()).To(Succeed())
}

func reutersLines(data ...[]interface{}) [][]interface{} {
	lines := [][]interface{}{
		{"Corporate Actions"}, {"Exported"}, {"Universe: all"}, {"Region: global"}, {"Fields: default"}, {"-"},
		{"RIC", "Name", "Event", "Details", "Status", "Region", "Note", "", "", ""},
	}
	return append(lines, data...)
}

var _ = Describe("Feeds", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Reuters workbooks", func() {
		var dir string

		BeforeEach(func() {
			dir = tempDir()
			writeWorkbook(filepath.Join(dir, "a.xlsx"), reutersLines(
				[]interface{}{"AAPL.OQ", "Apple", "Share Split", "Ex Date: 2022-06-07", "Confirmed", "US", "", "Split:1:4"},
				[]interface{}{},
				[]interface{}{"PETR4.SA", "Petrobras", "Cash Dividend", "Ex Date: 2022-06-07", "Confirmed", "BR", "", "Gross: 0.5 BRL", "Net: 0.425 BRL", "Interest on Capital"},
			))
			writeWorkbook(filepath.Join(dir, "b.xlsx"), reutersLines(
				[]interface{}{"NOKIA.HE", "Nokia", "Rights Issue", "Ex Date: 2022-06-08", "Confirmed", "FI", "", "Rights:5:1"},
			))
			Expect(os.WriteFile(filepath.Join(dir, "~$a.xlsx"), []byte("lock"), 0o600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("notes"), 0o600)).To(Succeed())
		})

		It("reads all workbooks in file name order", func() {
			rows, err := feeds.NewReutersReader(config.Reuters{Directory: dir, SkipRows: 6}).Read(ctx)
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(3))

			Expect(rows[0].RIC).To(Equal("AAPL.OQ"))
			Expect(rows[0].Event).To(Equal("Share Split"))
			Expect(rows[0].Details).To(Equal("Ex Date: 2022-06-07"))
			Expect(rows[0].Values[0]).To(Equal("Split:1:4"))

			Expect(rows[1].Values).To(Equal([3]string{"Gross: 0.5 BRL", "Net: 0.425 BRL", "Interest on Capital"}))
			Expect(rows[2].RIC).To(Equal("NOKIA.HE"))
		})

		It("fails for a missing directory", func() {
			_, err := feeds.NewReutersReader(config.Reuters{Directory: filepath.Join(dir, "missing"), SkipRows: 6}).Read(ctx)
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		})

		It("fails for a workbook without the expected header", func() {
			writeWorkbook(filepath.Join(dir, "c.xlsx"), [][]interface{}{{"nothing"}, {"to"}, {"see"}, {"here"}, {"at"}, {"all"}, {"Symbol", "Kind"}})
			_, err := feeds.NewReutersReader(config.Reuters{Directory: dir, SkipRows: 6}).Read(ctx)
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		})
	})

	Describe("HTTP feeds", func() {
		BeforeEach(func() {
			httpmock.Activate()
		})

		AfterEach(func() {
			httpmock.DeactivateAndReset()
		})

		It("reads the EDI feed", func() {
			httpmock.RegisterResponder("GET", ediURL, httpmock.NewStringResponder(200, ediCSV))
			rows, err := feeds.NewEDIClient(config.EDI{URL: ediURL}, time.Second).Fetch(ctx)
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]).To(Equal(normalize.EDIRow{
				RIC:         "PETR4.SA",
				EventType:   "CASH_DIVIDEND",
				ExDate:      "2022-06-07",
				GrossAmount: "0.5",
				NetAmount:   "0.425",
				Currency:    "BRL",
				Source:      "edi_web_ca_div",
				TaxRate:     "15",
			}))
			Expect(rows[1].SplitRatio).To(Equal("4:1"))
		})

		It("treats a header only EDI feed as empty", func() {
			httpmock.RegisterResponder("GET", ediURL, httpmock.NewStringResponder(200, "ID_RIC,EVENT_TYPE,EX_DT\n"))
			rows, err := feeds.NewEDIClient(config.EDI{URL: ediURL}, time.Second).Fetch(ctx)
			Expect(err).To(BeNil())
			Expect(rows).To(BeEmpty())
		})

		It("fails when EDI is unavailable", func() {
			httpmock.RegisterResponder("GET", ediURL, httpmock.NewStringResponder(503, "down"))
			_, err := feeds.NewEDIClient(config.EDI{URL: ediURL}, time.Second).Fetch(ctx)
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		})

		It("reads the EDI feed from a manual file", func() {
			fn := filepath.Join(tempDir(), "EDI.csv")
			Expect(os.WriteFile(fn, []byte(ediCSV), 0o600)).To(Succeed())
			rows, err := feeds.NewEDIClient(config.EDI{URL: ediURL, ManualFile: fn, UseManual: true}, time.Second).Fetch(ctx)
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(2))
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})

		It("fails for a missing manual file", func() {
			_, err := feeds.NewEDIClient(config.EDI{ManualFile: "does-not-exist.csv", UseManual: true}, time.Second).Fetch(ctx)
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		})

		It("reads platform corporate actions for the window", func() {
			httpmock.RegisterResponderWithQuery("GET", platformURL+"/corporate-actions", map[string]string{"start": "2022-06-03", "end": "2022-06-08"},
				httpmock.NewStringResponder(200, `[
					{"RIC": "BHP.AX", "Type": "CASH_DIVIDEND", "Execution Date": "2022-06-07", "Value": 1.25, "Currency": "AUD",
					 "Withholding Tax Type": "GROSS", "Dividend Taxation Type": "DEFAULT", "Franking amount": 0.5, "CFI amount": null},
					{"RIC": "AAPL.OQ", "Type": "STOCK_SPLIT", "Execution Date": "2022-06-07", "Relation": "4:1"}
				]`))

			window, err := corpaction.NewWindow(time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2022, 6, 8, 0, 0, 0, 0, time.UTC))
			Expect(err).To(BeNil())

			rows, err := feeds.NewPlatformClient(config.Endpoint{URL: platformURL + "/"}, time.Second).Fetch(ctx, window)
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Type).To(Equal(corpaction.CashDividendType))
			Expect(rows[0].Value.Valid).To(BeTrue())
			Expect(rows[0].Value.Decimal.String()).To(Equal("1.25"))
			Expect(rows[0].FrankingAmount.Valid).To(BeTrue())
			Expect(rows[0].CFIAmount.Valid).To(BeFalse())
			Expect(rows[1].Relation).To(Equal("4:1"))
		})

		It("accepts an empty platform answer", func() {
			httpmock.RegisterResponder("GET", `=~^`+platformURL+`/corporate-actions`, httpmock.NewStringResponder(200, `[]`))
			window, err := corpaction.NewWindow(time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC))
			Expect(err).To(BeNil())
			rows, err := feeds.NewPlatformClient(config.Endpoint{URL: platformURL}, time.Second).Fetch(ctx, window)
			Expect(err).To(BeNil())
			Expect(rows).To(BeEmpty())
		})

		It("fails on an undecodable platform answer", func() {
			httpmock.RegisterResponder("GET", `=~^`+platformURL+`/corporate-actions`, httpmock.NewStringResponder(200, `<html>`))
			window, err := corpaction.NewWindow(time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC))
			Expect(err).To(BeNil())
			_, err = feeds.NewPlatformClient(config.Endpoint{URL: platformURL}, time.Second).Fetch(ctx, window)
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		})

		It("reads capital events", func() {
			httpmock.RegisterResponder("GET", capitalEventsURL, httpmock.NewStringResponder(200,
				"ISIN,Event_type,MIC,SEDOL,Name\nFI0009000681,Rights Offering,XHEL,5902941,Nokia\n"))
			rows, err := feeds.NewCapitalEventsClient(config.Endpoint{URL: capitalEventsURL}, time.Second).Fetch(ctx)
			Expect(err).To(BeNil())
			Expect(rows).To(Equal([]normalize.CapitalEventRow{
				{ISIN: "FI0009000681", EventType: "Rights Offering", MIC: "XHEL", SEDOL: "5902941"},
			}))
		})
	})

	Describe("universe", func() {
		master := instrument.NewMaster([]instrument.Instrument{{RIC: "AAPL.OQ"}, {RIC: "PETR4.SA"}})

		It("drops Reuters rows outside the universe", func() {
			rows := feeds.FilterReuters([]normalize.ReutersRow{{RIC: "AAPL.OQ"}, {RIC: "MSFT.OQ"}}, master)
			Expect(rows).To(Equal([]normalize.ReutersRow{{RIC: "AAPL.OQ"}}))
		})

		It("drops EDI rows outside the universe", func() {
			rows := feeds.FilterEDI([]normalize.EDIRow{{RIC: "MSFT.OQ"}, {RIC: "PETR4.SA"}}, master)
			Expect(rows).To(Equal([]normalize.EDIRow{{RIC: "PETR4.SA"}}))
		})
	})
})
