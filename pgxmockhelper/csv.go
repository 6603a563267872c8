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

// Package pgxmockhelper builds pgxmock result sets from CSV fixtures
package pgxmockhelper

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

type CSVRows struct {
	rows   [][]any
	header []string
}

// NewCSVRows reads a CSV fixture. Columns named in typeMap are converted:
// "date" parses 2006-01-02 into a UTC time, anything else is kept as a
// string. Broken fixtures panic.
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	fh, err := os.Open(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not open file")
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		subLog.Panic().Err(err).Msg("could not parse csv")
	}
	if len(records) < 1 {
		subLog.Panic().Msg("input file needs at least a header line")
	}

	rows := &CSVRows{
		header: records[0],
		rows:   make([][]any, 0, len(records)-1),
	}

	for _, record := range records[1:] {
		cols := make([]any, len(rows.header))
		for idx, val := range record {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
			default:
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// MockInstrumentQuery expects the instrument master to be loaded from fn
func MockInstrumentQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT (.+) FROM (.+) WHERE is_in_use").WillReturnRows(
		NewCSVRows(fn, map[string]string{}).Rows())
	db.ExpectCommit()
}

// MockHolidayQuery expects the holiday calendar to be loaded from fn
func MockHolidayQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date FROM").WillReturnRows(
		NewCSVRows(fn, map[string]string{
			"event_date": "date",
		}).Rows())
	db.ExpectCommit()
}
