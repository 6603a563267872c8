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

package instrument_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/data/database"
	"github.com/penny-vault/ca-validator/instrument"
	"github.com/penny-vault/ca-validator/pgxmockhelper"
)

var _ = Describe("Instrument", func() {
	Describe("Master", func() {
		var master *instrument.Master

		BeforeEach(func() {
			master = instrument.NewMaster([]instrument.Instrument{
				{Name: "Vodafone Group", SEDOL: "BH4HKS3", ISIN: "GB00BH4HKS39", MIC: "XLON", RIC: "VOD.L", Ticker: "VOD LN"},
				{Name: "Vodafone Group CXE", SEDOL: "BH4HKS3", ISIN: "GB00BH4HKS39", MIC: "CHIX", RIC: "VOD.CHI", Ticker: "VOD IX"},
				{Name: "Duplicate", SEDOL: "0000000", ISIN: "XX0000000000", MIC: "XLON", RIC: "VOD.L"},
				{Name: "No RIC", ISIN: "XX1111111111", MIC: "XLON"},
			})
		})

		It("looks up by RIC keeping the first instrument", func() {
			inst, ok := master.ByRIC("VOD.L")
			Expect(ok).To(BeTrue())
			Expect(inst.Name).To(Equal("Vodafone Group"))
			Expect(master.Len()).To(Equal(2))
		})

		It("prefers the (ISIN, MIC) listing", func() {
			ric, ok := master.ResolveRIC("GB00BH4HKS39", "CHIX", "BH4HKS3")
			Expect(ok).To(BeTrue())
			Expect(ric).To(Equal("VOD.CHI"))
		})

		It("falls back to (SEDOL, ISIN)", func() {
			ric, ok := master.ResolveRIC("GB00BH4HKS39", "XPAR", "BH4HKS3")
			Expect(ok).To(BeTrue())
			Expect(ric).To(Equal("VOD.L"))
		})

		It("reports unknown identifiers", func() {
			_, ok := master.ResolveRIC("XX9999999999", "XPAR", "9999999")
			Expect(ok).To(BeFalse())
			Expect(master.Active("NOPE.L")).To(BeFalse())
			Expect(master.Active("VOD.CHI")).To(BeTrue())
		})
	})

	Describe("Load", func() {
		var dbPool pgxmock.PgxConnIface

		BeforeEach(func() {
			var err error
			dbPool, err = pgxmock.NewConn()
			Expect(err).To(BeNil())
			database.SetPool(dbPool)
		})

		It("reads the active instruments", func() {
			pgxmockhelper.MockInstrumentQuery(dbPool, "../testdata/instruments.csv")

			master, err := instrument.Load(context.Background(), "shares_unique")
			Expect(err).To(BeNil())
			Expect(master.Len()).To(Equal(9))

			inst, ok := master.ByRIC("PETR4.SA")
			Expect(ok).To(BeTrue())
			Expect(inst.ISIN).To(Equal("BRPETRACNPR6"))
			Expect(inst.Ticker).To(Equal("PETR4 BZ"))

			Expect(dbPool.ExpectationsWereMet()).To(Succeed())
			Expect(database.OpenTransactions()).To(Equal(0))
		})

		It("wraps query failures in ErrFetch", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))
			dbPool.ExpectRollback()

			_, err := instrument.Load(context.Background(), "shares_unique")
			Expect(errors.Is(err, corpaction.ErrFetch)).To(BeTrue())
			Expect(dbPool.ExpectationsWereMet()).To(Succeed())
		})
	})
})
