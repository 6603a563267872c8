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

// Package report renders reconciliation results into the review workbook.
// The {Vendor}_{Column} naming of the workbook exists only here.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
	"github.com/penny-vault/ca-validator/upload"
)

const (
	flagWidth  = 6
	zoom       = 85
	dateFormat = "yyyy/mm/dd"
)

var (
	// colors of the exchange highlights on the cash dividends sheet
	orangeExchanges = []string{".SA"}
	blueExchanges   = []string{".AX", ".CHA"}
)

// CAsFormula is the formula placed on the CAs sheet; it queries the
// corporate actions up to the end of the window
func CAsFormula(end time.Time) string {
	return fmt.Sprintf(`STRUCQUERY("corporateActions","","%s","","","")`, end.Format(corpaction.DateFormat))
}

type styles struct {
	header int
	date   int
	green  int
	red    int
	orange int
	blue   int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}}); err != nil {
		return s, err
	}
	numFmt := dateFormat
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return s, err
	}
	if s.green, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#006100"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.red, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.orange, err = f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E26B0A"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	s.blue, err = f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#00B0F0"}, Pattern: 1},
	})
	return s, err
}

// Build renders the review workbook. The caller owns the returned file and
// must close it.
func Build(ctx context.Context, res upload.Result, window corpaction.Window) (*excelize.File, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "report.Build")
	defer span.End()

	tables := []table{
		buildTable(SheetStockDividends, corpaction.StockDividendSchema, res.StockDividends),
		buildTable(SheetStockSplits, corpaction.StockSplitSchema, res.StockSplits),
		buildTable(SheetRightsIssues, corpaction.RightsIssueSchema, res.RightsIssues),
		buildTable(SheetCashDividends, corpaction.CashDividendSchema, res.CashDividends),
	}

	f := excelize.NewFile()
	if err := build(f, tables, upload.SheetRows(res), window); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not build workbook")
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("could not close workbook")
		}
		return nil, err
	}

	for _, t := range tables {
		span.SetAttributes(attribute.Int(t.name, len(t.rows)))
	}
	return f, nil
}

func build(f *excelize.File, tables []table, uploads []upload.SheetRow, window corpaction.Window) error {
	if err := f.SetSheetName(f.GetSheetName(0), tables[0].name); err != nil {
		return err
	}
	for _, t := range tables[1:] {
		if _, err := f.NewSheet(t.name); err != nil {
			return err
		}
	}
	for _, name := range []string{SheetUpload, SheetBlacklist, SheetCAs} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for _, t := range tables {
		if err := writeTable(f, t, st); err != nil {
			return fmt.Errorf("sheet %s: %w", t.name, err)
		}
	}
	if err := highlightExchanges(f, SheetCashDividends, len(tables[3].rows), st); err != nil {
		return err
	}

	if err := writeUploadSheet(f, uploads); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetUpload, err)
	}

	if err := f.SetCellFormula(SheetCAs, "A1", CAsFormula(window.End)); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return nil
}

func writeTable(f *excelize.File, t table, st styles) error {
	if err := writeRow(f, t.name, 1, toCells(t.header)); err != nil {
		return err
	}
	for idx, cells := range t.rows {
		if err := writeRow(f, t.name, idx+2, cells); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.name, "A1", lastCol+"1", st.header); err != nil {
		return err
	}

	lastRow := len(t.rows) + 1
	if len(t.rows) > 0 {
		dateCol, _ := excelize.ColumnNumberToName(t.dateCol + 1)
		if err := f.SetCellStyle(t.name, fmt.Sprintf("%s2", dateCol), fmt.Sprintf("%s%d", dateCol, lastRow), st.date); err != nil {
			return err
		}
	}

	first, _ := excelize.ColumnNumberToName(t.firstFlag + 1)
	last, _ := excelize.ColumnNumberToName(t.lastFlag + 1)
	if err := f.SetColWidth(t.name, first, last, flagWidth); err != nil {
		return err
	}

	if lastRow > 1 {
		ref := fmt.Sprintf("%s2:%s%d", first, last, lastRow)
		if err := f.SetConditionalFormat(t.name, ref, []excelize.ConditionalFormatOptions{
			{Type: "cell", Criteria: "==", Value: "FALSE", Format: &st.red},
			{Type: "cell", Criteria: "==", Value: "TRUE", Format: &st.green},
		}); err != nil {
			return err
		}
	}

	if err := fitIdentifiers(f, t); err != nil {
		return err
	}

	z := float64(zoom)
	return f.SetSheetView(t.name, 0, &excelize.ViewOptions{ZoomScale: &z})
}

// fitIdentifiers widens RIC, ISIN and TICKER to their longest value
func fitIdentifiers(f *excelize.File, t table) error {
	for col := 0; col < 3; col++ {
		width := len(t.header[col])
		for _, row := range t.rows {
			if s, ok := row[col].(string); ok && len(s) > width {
				width = len(s)
			}
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(t.name, name, name, float64(width+1)); err != nil {
			return err
		}
	}
	return nil
}

func highlightExchanges(f *excelize.File, sheet string, numRows int, st styles) error {
	if numRows == 0 {
		return nil
	}
	ref := fmt.Sprintf("A2:A%d", numRows+1)
	opts := make([]excelize.ConditionalFormatOptions, 0, len(orangeExchanges)+len(blueExchanges))
	for _, suffix := range orangeExchanges {
		opts = append(opts, excelize.ConditionalFormatOptions{Type: "text", Criteria: "containing", Value: suffix, Format: &st.orange})
	}
	for _, suffix := range blueExchanges {
		opts = append(opts, excelize.ConditionalFormatOptions{Type: "text", Criteria: "containing", Value: suffix, Format: &st.blue})
	}
	return f.SetConditionalFormat(sheet, ref, opts)
}

func writeUploadSheet(f *excelize.File, rows []upload.SheetRow) error {
	if err := writeRow(f, SheetUpload, 1, toCells(upload.SheetHeader)); err != nil {
		return err
	}
	for idx, row := range rows {
		if err := writeRow(f, SheetUpload, idx+2, row.Cells()); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, axis, &cells)
}

func toCells(header []string) []interface{} {
	cells := make([]interface{}, len(header))
	for idx, h := range header {
		cells[idx] = h
	}
	return cells
}
