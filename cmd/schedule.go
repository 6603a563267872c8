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

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/pipeline"
	"github.com/penny-vault/ca-validator/tradecron"
)

func init() {
	viper.BindEnv("schedule.cron", "CAV_SCHEDULE")
	scheduleCmd.Flags().String("cron", "", "When to run, a cron spec optionally followed by @monthbegin or @monthend")
	viper.BindPFlag("schedule.cron", scheduleCmd.Flags().Lookup("cron"))

	scheduleCmd.Flags().String("timezone", "", "Timezone the schedule is evaluated in")
	viper.BindPFlag("schedule.timezone", scheduleCmd.Flags().Lookup("timezone"))

	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Reconcile corporate actions every business day",
	Long: `Run the reconciliation on a schedule. Runs are skipped on weekends and market
holidays and never overlap.`,
	Run: func(cmd *cobra.Command, args []string) {
		conf, closeLog := loadConfig()
		defer closeLog()

		ctx := context.Background()
		shutdown := setup(ctx, conf)
		defer shutdown()

		cache, err := common.NewCache(conf.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create cache")
		}
		defer cache.Close()

		tz := common.GetTimezone(conf.Schedule.Timezone)
		cal, err := tradecron.LoadCalendar(ctx, conf.Database.HolidayTable, tz)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load market holidays")
		}

		tc, err := tradecron.New(conf.Schedule.Cron, cal)
		if err != nil {
			log.Fatal().Err(err).Str("Schedule", conf.Schedule.Cron).Msg("invalid schedule")
		}

		sources := pipeline.NewSources(conf, cache)
		scheduler := gocron.NewScheduler(tz)
		_, err = scheduler.Cron(tc.TimeSpec).SingletonMode().Do(scheduledRun, ctx, conf, sources, tc)
		if err != nil {
			log.Fatal().Err(err).Str("TimeSpec", tc.TimeSpec).Msg("could not schedule reconciliation")
		}

		if next, err := tc.Next(time.Now()); err == nil {
			log.Info().Time("NextRun", next).Msg("scheduler started")
		}
		scheduler.StartAsync()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		received := <-sig
		log.Info().Str("Signal", received.String()).Msg("shutting down")
		scheduler.Stop()
	},
}

func scheduledRun(ctx context.Context, conf *config.Config, sources pipeline.Sources, tc *tradecron.TradeCron) {
	now := time.Now()
	if !tc.Matches(now) {
		log.Info().Time("Now", now).Msg("not a scheduled business day, skipping run")
		return
	}

	summary, err := pipeline.New(conf, sources).Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled reconciliation failed")
		return
	}
	log.Info().Str("RunID", summary.RunID).Str("Output", summary.Output).Int("Uploads", summary.Uploads).Msg("scheduled reconciliation finished")
}
