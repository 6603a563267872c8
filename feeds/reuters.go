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

package feeds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

// ReutersValueColumn is the index of the first unnamed value column
const ReutersValueColumn = 7

// ReutersReader reads every workbook exported from Reuters into one table
type ReutersReader struct {
	dir      string
	skipRows int
}

func NewReutersReader(conf config.Reuters) *ReutersReader {
	return &ReutersReader{
		dir:      conf.Directory,
		skipRows: conf.SkipRows,
	}
}

// Read returns the non-empty rows of all workbooks in the directory, in
// file name order. Office lock files are ignored.
func (r *ReutersReader) Read(ctx context.Context) ([]normalize.ReutersRow, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "feeds.Reuters")
	defer span.End()
	span.SetAttributes(attribute.String("Directory", r.dir))

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not list Reuters directory")
		return nil, fmt.Errorf("reuters: %w: %w", corpaction.ErrFetch, err)
	}

	rows := make([]normalize.ReutersRow, 0, 256)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !isWorkbook(name) {
			continue
		}
		fileRows, err := r.readFile(filepath.Join(r.dir, name))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "could not read Reuters workbook")
			return nil, fmt.Errorf("reuters: %s: %w", name, err)
		}
		log.Debug().Str("File", name).Int("NumRows", len(fileRows)).Msg("read Reuters workbook")
		rows = append(rows, fileRows...)
	}

	span.SetAttributes(attribute.Int("NumRows", len(rows)))
	log.Info().Str("Directory", r.dir).Int("NumRows", len(rows)).Msg("read Reuters corporate actions")
	return rows, nil
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func (r *ReutersReader) readFile(fn string) ([]normalize.ReutersRow, error) {
	f, err := excelize.OpenFile(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("File", fn).Msg("could not close workbook")
		}
	}()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
	}
	if len(cells) <= r.skipRows {
		return []normalize.ReutersRow{}, nil
	}

	header := cells[r.skipRows]
	ricIdx, eventIdx, detailsIdx := column(header, "RIC"), column(header, "Event"), column(header, "Details")
	if ricIdx < 0 || eventIdx < 0 || detailsIdx < 0 {
		return nil, fmt.Errorf("%w: header must contain RIC, Event and Details", corpaction.ErrFetch)
	}

	rows := make([]normalize.ReutersRow, 0, len(cells)-r.skipRows-1)
	for _, line := range cells[r.skipRows+1:] {
		if isBlank(line) {
			continue
		}
		row := normalize.ReutersRow{
			RIC:     cell(line, ricIdx),
			Event:   cell(line, eventIdx),
			Details: cell(line, detailsIdx),
		}
		for idx := range row.Values {
			row.Values[idx] = cell(line, ReutersValueColumn+idx)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func column(header []string, name string) int {
	for idx, val := range header {
		if strings.EqualFold(strings.TrimSpace(val), name) {
			return idx
		}
	}
	return -1
}

func cell(line []string, idx int) string {
	if idx >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[idx])
}

func isBlank(line []string) bool {
	for _, val := range line {
		if strings.TrimSpace(val) != "" {
			return false
		}
	}
	return true
}
