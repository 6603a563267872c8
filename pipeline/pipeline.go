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

// Package pipeline runs one reconciliation: it fetches every vendor feed,
// normalizes and reconciles them and writes the review workbook. A run is
// all or nothing; when any source fails no workbook is written.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/penny-vault/ca-validator/classify"
	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/feeds"
	"github.com/penny-vault/ca-validator/instrument"
	"github.com/penny-vault/ca-validator/normalize"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
	"github.com/penny-vault/ca-validator/reconcile"
	"github.com/penny-vault/ca-validator/report"
	"github.com/penny-vault/ca-validator/tradecron"
	"github.com/penny-vault/ca-validator/upload"
)

type ReutersSource interface {
	Read(ctx context.Context) ([]normalize.ReutersRow, error)
}

type EDISource interface {
	Fetch(ctx context.Context) ([]normalize.EDIRow, error)
}

type PlatformSource interface {
	Fetch(ctx context.Context, window corpaction.Window) ([]normalize.PlatformRow, error)
}

type CapitalEventsSource interface {
	Fetch(ctx context.Context) ([]normalize.CapitalEventRow, error)
}

// Sources are the external collaborators of a run
type Sources struct {
	Reuters       ReutersSource
	EDI           EDISource
	Platform      PlatformSource
	CapitalEvents CapitalEventsSource
	Symbology     classify.Lookup
	Currency      upload.CurrencyLookup

	// Cache backs the symbology and currency lookups. Its local tier is
	// purged when a run starts so tags never outlive the run.
	Cache *common.Cache
}

// NewSources builds the HTTP and file backed sources described by conf
func NewSources(conf *config.Config, cache *common.Cache) Sources {
	timeout := conf.HTTP.Timeout()
	return Sources{
		Reuters:       feeds.NewReutersReader(conf.Reuters),
		EDI:           feeds.NewEDIClient(conf.EDI, timeout),
		Platform:      feeds.NewPlatformClient(conf.Platform, timeout),
		CapitalEvents: feeds.NewCapitalEventsClient(conf.CapitalEvents, timeout),
		Symbology:     classify.NewSymbologyClient(conf.Symbology, timeout, cache),
		Currency:      upload.NewCurrencyClient(conf.Currency, timeout, cache),
		Cache:         cache,
	}
}

// Summary describes a finished run
type Summary struct {
	RunID          string
	Window         corpaction.Window
	Output         string
	Warnings       int
	StockDividends int
	StockSplits    int
	RightsIssues   int
	CashDividends  int
	Uploads        int
}

type Runner struct {
	conf    *config.Config
	sources Sources
	now     func() time.Time
}

func New(conf *config.Config, sources Sources) *Runner {
	return &Runner{
		conf:    conf,
		sources: sources,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to compute the date window
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

type fetched struct {
	reuters       []normalize.ReutersRow
	edi           []normalize.EDIRow
	platform      []normalize.PlatformRow
	capitalEvents []normalize.CapitalEventRow
}

// Run executes one reconciliation
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := uuid.New().String()
	subLog := log.With().Str("RunID", runID).Logger()

	tz, err := time.LoadLocation(r.conf.Schedule.Timezone)
	if err != nil {
		subLog.Error().Err(err).Str("Timezone", r.conf.Schedule.Timezone).Msg("unknown timezone")
		return Summary{}, fmt.Errorf("%w: schedule.timezone: %w", config.ErrInvalidSetting, err)
	}

	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pipeline.Run")
	defer span.End()

	fail := func(msg string, err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		subLog.Error().Stack().Err(err).Msg(msg)
		return Summary{}, err
	}

	r.sources.Cache.Purge()

	master, err := instrument.Load(ctx, r.conf.Database.InstrumentTable)
	if err != nil {
		return fail("could not load instrument master", err)
	}

	cal, err := tradecron.LoadCalendar(ctx, r.conf.Database.HolidayTable, tz)
	if err != nil {
		return fail("could not load market holidays", err)
	}

	window, err := cal.Window(r.now(), r.conf.Window.StartDays, r.conf.Window.EndBusinessDays)
	if err != nil {
		return fail("invalid date window", err)
	}
	span.SetAttributes(opentelemetry.RunAttributes(runID, window.Start, window.End)...)
	subLog = subLog.With().Time("WindowStart", window.Start).Time("WindowEnd", window.End).Logger()
	subLog.Info().Msg("starting reconciliation")

	raw, err := r.fetch(ctx, window)
	if err != nil {
		return fail("could not fetch vendor data", err)
	}

	raw.reuters = feeds.FilterReuters(raw.reuters, master)
	raw.edi = feeds.FilterEDI(raw.edi, master)

	reuters := normalize.Reuters(raw.reuters, window)
	edi := normalize.EDI(raw.edi, window)
	platform := normalize.Platform(raw.platform, window)

	tags, err := classify.NewEnricher(r.sources.Symbology).Enrich(ctx, reuters.Set.CashDividends, edi.Set.CashDividends, platform.Set.CashDividends)
	if err != nil {
		return fail("could not classify instruments", err)
	}
	edi.Set.CashDividends = classify.ApplyREIT(edi.Set.CashDividends, tags)

	reconciled := reconcile.Run(reuters.Set, edi.Set, platform.Set, reconcile.Options{
		RoundingDigits: r.conf.Reconcile.RoundingDigits,
		Tags:           tags,
		Master:         master,
		PlatformRaw:    raw.platform,
		CapitalEvents:  raw.capitalEvents,
	})

	decided := upload.NewDecider(cal, r.sources.Currency).WithClock(r.now).Decide(ctx, reconciled)

	if err := report.Write(ctx, decided, window, r.conf.Report); err != nil {
		return fail("could not write report", err)
	}

	summary := Summary{
		RunID:          runID,
		Window:         window,
		Output:         r.conf.Report.Output,
		Warnings:       len(reuters.Warnings) + len(edi.Warnings) + len(platform.Warnings),
		StockDividends: len(decided.StockDividends),
		StockSplits:    len(decided.StockSplits),
		RightsIssues:   len(decided.RightsIssues),
		CashDividends:  len(decided.CashDividends),
		Uploads:        decided.Uploads(),
	}

	subLog.Info().
		Str("Output", summary.Output).
		Int("Warnings", summary.Warnings).
		Int("Uploads", summary.Uploads).
		Msg("reconciliation finished")

	return summary, nil
}

// fetch reads every vendor feed. The first failure aborts the run.
func (r *Runner) fetch(ctx context.Context, window corpaction.Window) (*fetched, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pipeline.fetch")
	defer span.End()

	var (
		raw fetched
		err error
	)

	if raw.reuters, err = r.sources.Reuters.Read(ctx); err != nil {
		return nil, fmt.Errorf("reuters: %w", err)
	}
	if raw.edi, err = r.sources.EDI.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("edi: %w", err)
	}
	if raw.platform, err = r.sources.Platform.Fetch(ctx, window); err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}
	if raw.capitalEvents, err = r.sources.CapitalEvents.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("capital events: %w", err)
	}

	log.Debug().
		Int("Reuters", len(raw.reuters)).
		Int("EDI", len(raw.edi)).
		Int("Platform", len(raw.platform)).
		Int("CapitalEvents", len(raw.capitalEvents)).
		Msg("fetched vendor data")

	return &raw, nil
}
