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

// Package instrument holds a snapshot of the reference instrument master.
// It resolves identifiers for reconciled rows and defines the instrument
// universe used to filter vendor feeds.
package instrument

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/data/database"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
)

type Instrument struct {
	Name   string
	SEDOL  string
	ISIN   string
	MIC    string
	RIC    string
	Ticker string
}

type pairKey struct {
	a string
	b string
}

// Master indexes instruments by RIC, (ISIN, MIC) and (SEDOL, ISIN). When an
// identifier is shared the first instrument loaded wins.
type Master struct {
	byRIC       map[string]Instrument
	byISINMIC   map[pairKey]string
	bySEDOLISIN map[pairKey]string
}

func NewMaster(instruments []Instrument) *Master {
	m := &Master{
		byRIC:       make(map[string]Instrument, len(instruments)),
		byISINMIC:   make(map[pairKey]string, len(instruments)),
		bySEDOLISIN: make(map[pairKey]string, len(instruments)),
	}

	for _, inst := range instruments {
		if inst.RIC == "" {
			continue
		}
		if _, ok := m.byRIC[inst.RIC]; !ok {
			m.byRIC[inst.RIC] = inst
		}
		if inst.ISIN != "" && inst.MIC != "" {
			k := pairKey{inst.ISIN, inst.MIC}
			if _, ok := m.byISINMIC[k]; !ok {
				m.byISINMIC[k] = inst.RIC
			}
		}
		if inst.SEDOL != "" && inst.ISIN != "" {
			k := pairKey{inst.SEDOL, inst.ISIN}
			if _, ok := m.bySEDOLISIN[k]; !ok {
				m.bySEDOLISIN[k] = inst.RIC
			}
		}
	}

	return m
}

// Load reads the active instruments from table
func Load(ctx context.Context, table string) (*Master, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "instrument.Load")
	defer span.End()

	subLog := log.With().Str("Table", table).Logger()

	ident := pgx.Identifier{table}
	sql := fmt.Sprintf("SELECT COALESCE(name, ''), COALESCE(sedol, ''), COALESCE(isin, ''), COALESCE(mic_code, ''), ric, COALESCE(bbg_ticker, '') FROM %s WHERE is_in_use = '1'", ident.Sanitize())

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not begin transaction")
		return nil, fmt.Errorf("%w: instrument master: %w", corpaction.ErrFetch, err)
	}
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instrument query failed")
		subLog.Error().Err(err).Str("Query", sql).Msg("could not query instrument master")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: instrument master: %w", corpaction.ErrFetch, err)
	}
	instruments := make([]Instrument, 0, 1024)
	for rows.Next() {
		var inst Instrument
		if err := rows.Scan(&inst.Name, &inst.SEDOL, &inst.ISIN, &inst.MIC, &inst.RIC, &inst.Ticker); err != nil {
			subLog.Warn().Err(err).Msg("instrument scan failed")
			continue
		}
		inst.RIC = strings.TrimSpace(inst.RIC)
		instruments = append(instruments, inst)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "instrument read failed")
		return nil, fmt.Errorf("%w: instrument master: %w", corpaction.ErrFetch, err)
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Err(err).Msg("could not commit transaction")
	}

	span.SetAttributes(attribute.Int("NumInstruments", len(instruments)))
	subLog.Info().Int("NumInstruments", len(instruments)).Msg("loaded instrument master")

	return NewMaster(instruments), nil
}

func (m *Master) Len() int {
	return len(m.byRIC)
}

// ByRIC returns the instrument listed under ric
func (m *Master) ByRIC(ric string) (Instrument, bool) {
	inst, ok := m.byRIC[ric]
	return inst, ok
}

// Active reports whether ric belongs to the instrument universe
func (m *Master) Active(ric string) bool {
	_, ok := m.byRIC[ric]
	return ok
}

// ResolveRIC maps exchange identifiers to a RIC. The (ISIN, MIC) listing
// wins; (SEDOL, ISIN) is the fallback.
func (m *Master) ResolveRIC(isin, mic, sedol string) (string, bool) {
	if ric, ok := m.byISINMIC[pairKey{isin, mic}]; ok {
		return ric, true
	}
	ric, ok := m.bySEDOLISIN[pairKey{sedol, isin}]
	return ric, ok
}
