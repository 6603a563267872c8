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
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	AtMonthBegin = "@monthbegin"
	AtMonthEnd   = "@monthend"
)

const maxIters = 5000

// TradeCron is a cron schedule that only fires on business days. It
// accepts the standard five field format
// Minutes Hours DayOfMonth Month DayOfWeek; trailing fields may be omitted
// and default to '*'.
//
// Additional modifiers:
//
//	@monthbegin - only on the first business day of the month
//	@monthend   - only on the last business day of the month
//
// Examples:
//   - 06:00 every business day: 0 6
//   - 06:00 on the first business day of the month: 0 6 @monthbegin
type TradeCron struct {
	Schedule       cron.Schedule
	ScheduleString string
	TimeSpec       string
	DateFlag       string
	calendar       *Calendar
}

func New(cronSpec string, cal *Calendar) (*TradeCron, error) {
	specParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	tokens := strings.Fields(cronSpec)
	timeSpecTokens := make([]string, 0, 5)
	var dateFlag string
	for _, token := range tokens {
		if token[0] != '@' {
			timeSpecTokens = append(timeSpecTokens, token)
			continue
		}
		switch token {
		case AtMonthBegin, AtMonthEnd:
			if dateFlag != "" {
				return nil, ErrConflictingModifiers
			}
			dateFlag = token
		default:
			return nil, ErrUnknownModifier
		}
	}

	for len(timeSpecTokens) < 5 {
		timeSpecTokens = append(timeSpecTokens, "*")
	}
	timeSpec := strings.Join(timeSpecTokens, " ")

	schedule, err := specParser.Parse(timeSpec)
	if err != nil {
		log.Error().Err(err).Str("TimeSpec", timeSpec).Str("TradeCronSpec", cronSpec).Msg("robfig/cron could not parse timespec")
		return nil, err
	}

	if cal == nil {
		cal = NewCalendar(time.UTC)
	}

	return &TradeCron{
		Schedule:       schedule,
		ScheduleString: cronSpec,
		TimeSpec:       timeSpec,
		DateFlag:       dateFlag,
		calendar:       cal,
	}, nil
}

// Matches reports whether the day of t is one the schedule may fire on
func (tc *TradeCron) Matches(t time.Time) bool {
	if !tc.calendar.IsBusinessDay(t) {
		return false
	}
	d := tc.calendar.Date(t)
	switch tc.DateFlag {
	case AtMonthBegin:
		return d.Equal(tc.calendar.FirstBusinessDayOfMonth(t))
	case AtMonthEnd:
		return d.Equal(tc.calendar.LastBusinessDayOfMonth(t))
	}
	return true
}

// Next returns the first activation after forDate that falls on a matching
// day
func (tc *TradeCron) Next(forDate time.Time) (time.Time, error) {
	next := forDate.In(tc.calendar.Location())
	for i := 0; i < maxIters; i++ {
		next = tc.Schedule.Next(next)
		if next.IsZero() {
			break
		}
		if tc.Matches(next) {
			return next, nil
		}
	}
	log.Error().Str("TimeSpec", tc.TimeSpec).Str("DateFlag", tc.DateFlag).Msg("schedule does not fire on a business day")
	return time.Time{}, ErrNoScheduledTime
}
