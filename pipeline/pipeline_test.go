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

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/ca-validator/classify"
	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/data/database"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/pgxmockhelper"
	"github.com/penny-vault/ca-validator/pipeline"
)

type reutersStub struct{ rows []normalize.ReutersRow }

func (s reutersStub) Read(context.Context) ([]normalize.ReutersRow, error) { return s.rows, nil }

type ediStub struct {
	rows []normalize.EDIRow
	err  error
}

func (s ediStub) Fetch(context.Context) ([]normalize.EDIRow, error) { return s.rows, s.err }

type platformStub struct {
	window corpaction.Window
	rows   []normalize.PlatformRow
}

func (s *platformStub) Fetch(_ context.Context, window corpaction.Window) ([]normalize.PlatformRow, error) {
	s.window = window
	return s.rows, nil
}

type capitalEventsStub struct{}

func (capitalEventsStub) Fetch(context.Context) ([]normalize.CapitalEventRow, error) { return nil, nil }

type symbologyStub struct {
	calls int
	asked []string
}

func (s *symbologyStub) Lookup(_ context.Context, rics []string) ([]classify.SymbologyRecord, error) {
	s.calls++
	s.asked = append(s.asked, rics...)
	return nil, nil
}

// cachingSymbology answers from the cache and records the RICs it had to
// fetch
type cachingSymbology struct {
	cache   *common.Cache
	fetched []string
}

func (s *cachingSymbology) Lookup(ctx context.Context, rics []string) ([]classify.SymbologyRecord, error) {
	for _, ric := range rics {
		if _, err := s.cache.Get(ctx, "symbology:"+ric); err == nil {
			continue
		}
		s.fetched = append(s.fetched, ric)
		if err := s.cache.Set(ctx, "symbology:"+ric, []byte("Common Stock")); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

type currencyStub struct{}

func (currencyStub) Currency(context.Context, string) string { return "USD" }

var _ = Describe("Pipeline", func() {
	var (
		conf      *config.Config
		dbPool    pgxmock.PgxConnIface
		sources   pipeline.Sources
		platform  *platformStub
		symbology *symbologyStub
		now       func() time.Time
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		conf = &config.Config{
			Database:  config.Database{InstrumentTable: "shares_unique", HolidayTable: "market_holidays"},
			Window:    config.Window{StartDays: 0, EndBusinessDays: 2},
			Reconcile: config.Reconcile{RoundingDigits: 6},
			Report:    config.Report{Output: filepath.Join(tempDir(), "CA_check.xlsx")},
			Schedule:  config.Schedule{Timezone: "UTC"},
		}

		platform = &platformStub{}
		symbology = &symbologyStub{}
		sources = pipeline.Sources{
			Reuters: reutersStub{rows: []normalize.ReutersRow{
				{RIC: "PETR4.SA", Event: "Cash Dividend", Details: "Ex Date: 2022-06-07", Values: [3]string{"Gross: 0.5 BRL", "Net: 0.425 BRL", "Final"}},
				{RIC: "AAPL.OQ", Event: "Share Split", Details: "Ex Date: 2022-06-08", Values: [3]string{"Ratio:1:2"}},
				{RIC: "ZZZ.L", Event: "Share Split", Details: "Ex Date: 2022-06-08", Values: [3]string{"Ratio:1:2"}},
			}},
			EDI: ediStub{rows: []normalize.EDIRow{
				{RIC: "PETR4.SA", EventType: "CASH_DIVIDEND", ExDate: "2022-06-07", GrossAmount: "0.5", NetAmount: "0.425", Currency: "BRL"},
				{RIC: "AAPL.OQ", EventType: "STOCK_SPLIT", ExDate: "2022-06-08", SplitRatio: "2:1"},
				{RIC: "NOKIA.HE", EventType: "STOCK_SPLIT", ExDate: "2022-06-20", SplitRatio: "2:1"},
			}},
			Platform:      platform,
			CapitalEvents: capitalEventsStub{},
			Symbology:     symbology,
			Currency:      currencyStub{},
		}

		// Friday; the following Monday is a holiday
		now = func() time.Time { return time.Date(2022, 6, 3, 9, 0, 0, 0, time.UTC) }
	})

	It("reconciles every feed and writes the workbook", func() {
		pgxmockhelper.MockInstrumentQuery(dbPool, "../testdata/instruments.csv")
		pgxmockhelper.MockHolidayQuery(dbPool, "../testdata/holidays.csv")

		summary, err := pipeline.New(conf, sources).WithClock(now).Run(context.Background())
		Expect(err).To(BeNil())

		Expect(summary.RunID).To(HaveLen(36))
		Expect(summary.Window.Start).To(Equal(time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC)))
		Expect(summary.Window.End).To(Equal(time.Date(2022, 6, 8, 0, 0, 0, 0, time.UTC)))
		Expect(platform.window).To(Equal(summary.Window))

		Expect(summary.CashDividends).To(Equal(1))
		Expect(summary.StockSplits).To(Equal(1))
		Expect(summary.StockDividends).To(Equal(0))
		Expect(summary.RightsIssues).To(Equal(0))
		Expect(summary.Uploads).To(Equal(2))
		Expect(symbology.calls).To(Equal(1))

		Expect(conf.Report.Output).To(BeAnExistingFile())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("classifies RICs that only the platform carries", func() {
		pgxmockhelper.MockInstrumentQuery(dbPool, "../testdata/instruments.csv")
		pgxmockhelper.MockHolidayQuery(dbPool, "../testdata/holidays.csv")
		platform.rows = []normalize.PlatformRow{
			{
				RIC:                "BABA.N",
				Type:               corpaction.CashDividendType,
				ExecutionDate:      "2022-06-07",
				Value:              decimal.NewNullDecimal(decimal.RequireFromString("1.25")),
				WithholdingTaxType: "GROSS",
				Currency:           "USD",
				TaxationType:       "DEFAULT",
			},
		}

		_, err := pipeline.New(conf, sources).WithClock(now).Run(context.Background())
		Expect(err).To(BeNil())
		Expect(symbology.calls).To(Equal(1))
		Expect(symbology.asked).To(ContainElements("PETR4.SA", "BABA.N"))
	})

	It("looks tags up again on every run", func() {
		cache, err := common.NewCache(config.Cache{LocalSize: 16, TTL: 3600})
		Expect(err).To(BeNil())
		lookup := &cachingSymbology{cache: cache}
		sources.Symbology = lookup
		sources.Cache = cache

		runner := pipeline.New(conf, sources).WithClock(now)
		for i := 0; i < 2; i++ {
			pgxmockhelper.MockInstrumentQuery(dbPool, "../testdata/instruments.csv")
			pgxmockhelper.MockHolidayQuery(dbPool, "../testdata/holidays.csv")
			_, err := runner.Run(context.Background())
			Expect(err).To(BeNil())
		}

		Expect(lookup.fetched).To(Equal([]string{"PETR4.SA", "PETR4.SA"}))
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	It("writes nothing when a feed fails", func() {
		pgxmockhelper.MockInstrumentQuery(dbPool, "../testdata/instruments.csv")
		pgxmockhelper.MockHolidayQuery(dbPool, "../testdata/holidays.csv")
		sources.EDI = ediStub{err: fmt.Errorf("%w: 503 Service Unavailable", corpaction.ErrFetch)}

		_, err := pipeline.New(conf, sources).WithClock(now).Run(context.Background())
		Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		Expect(conf.Report.Output).NotTo(BeAnExistingFile())
		Expect(symbology.calls).To(Equal(0))
	})

	It("stops when the instrument master is unavailable", func() {
		dbPool.ExpectBegin()
		dbPool.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))
		dbPool.ExpectRollback()

		_, err := pipeline.New(conf, sources).WithClock(now).Run(context.Background())
		Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
		Expect(conf.Report.Output).NotTo(BeAnExistingFile())
	})

	It("rejects an unknown timezone", func() {
		conf.Schedule.Timezone = "Mars/Olympus"

		_, err := pipeline.New(conf, sources).Run(context.Background())
		Expect(errors.Is(err, config.ErrInvalidSetting)).To(BeTrue())
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})
})
