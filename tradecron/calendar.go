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

package tradecron

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/data/database"
)

// Calendar knows which days are business days: weekdays that are not
// listed as holidays. Dates are evaluated in the calendar's timezone.
type Calendar struct {
	tz       *time.Location
	holidays map[time.Time]bool
}

func NewCalendar(tz *time.Location, holidays ...time.Time) *Calendar {
	if tz == nil {
		tz = time.UTC
	}
	cal := &Calendar{
		tz:       tz,
		holidays: make(map[time.Time]bool, len(holidays)),
	}
	for _, day := range holidays {
		cal.holidays[corpaction.DateOf(day)] = true
	}
	return cal
}

// LoadCalendar reads market holidays from table
func LoadCalendar(ctx context.Context, table string, tz *time.Location) (*Calendar, error) {
	subLog := log.With().Str("Table", table).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: holidays: %w", corpaction.ErrFetch, err)
	}

	ident := pgx.Identifier{table}
	sql := fmt.Sprintf("SELECT event_date FROM %s ORDER BY event_date ASC", ident.Sanitize())
	rows, err := trx.Query(ctx, sql)
	if err != nil {
		subLog.Error().Err(err).Str("Query", sql).Msg("could not load market holidays")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, fmt.Errorf("%w: holidays: %w", corpaction.ErrFetch, err)
	}

	holidays := make([]time.Time, 0, 64)
	for rows.Next() {
		var dt time.Time
		if err := rows.Scan(&dt); err != nil {
			subLog.Warn().Err(err).Msg("holiday scan failed")
			continue
		}
		holidays = append(holidays, dt)
	}
	rows.Close()

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Err(err).Msg("could not commit transaction")
	}

	subLog.Debug().Int("NumHolidays", len(holidays)).Msg("loaded market holidays")
	return NewCalendar(tz, holidays...), nil
}

func (c *Calendar) Location() *time.Location {
	return c.tz
}

// Date returns the calendar date of t in the calendar's timezone. A value
// that already is a date (UTC midnight) is returned unchanged.
func (c *Calendar) Date(t time.Time) time.Time {
	if isDate(t) {
		return t
	}
	return corpaction.DateOf(t.In(c.tz))
}

func isDate(t time.Time) bool {
	return t.Location() == time.UTC && t.Equal(corpaction.DateOf(t))
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	return c.holidays[c.Date(t)]
}

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	return c.businessDate(c.Date(t))
}

// businessDate checks a calendar date without moving it between timezones
func (c *Calendar) businessDate(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !c.holidays[d]
}

// AddBusinessDays moves n business days forward from the date of t. With
// n = 0 the date itself is returned, business day or not.
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	d := c.Date(t)
	for i := 0; i < n; i++ {
		d = d.AddDate(0, 0, 1)
		for !c.businessDate(d) {
			d = d.AddDate(0, 0, 1)
		}
	}
	return d
}

func (c *Calendar) NextBusinessDay(t time.Time) time.Time {
	return c.AddBusinessDays(t, 1)
}

// Window spans today plus startDays calendar days through today plus
// endBusinessDays business days
func (c *Calendar) Window(now time.Time, startDays, endBusinessDays int) (corpaction.Window, error) {
	start := c.Date(now).AddDate(0, 0, startDays)
	end := c.AddBusinessDays(now, endBusinessDays)
	return corpaction.NewWindow(start, end)
}

// FirstBusinessDayOfMonth returns the first business day in the month of t
func (c *Calendar) FirstBusinessDayOfMonth(t time.Time) time.Time {
	d := c.Date(t)
	d = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !c.businessDate(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// LastBusinessDayOfMonth returns the last business day in the month of t
func (c *Calendar) LastBusinessDayOfMonth(t time.Time) time.Time {
	d := c.Date(t)
	d = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	for !c.businessDate(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
