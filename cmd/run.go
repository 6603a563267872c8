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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/data/database"
	"github.com/penny-vault/ca-validator/observability/opentelemetry"
	"github.com/penny-vault/ca-validator/pipeline"
)

func init() {
	runCmd.Flags().Int("window-days", 2, "Number of business days after today to include")
	viper.BindPFlag("window.end_business_days", runCmd.Flags().Lookup("window-days"))

	runCmd.Flags().Bool("use-edi-file", false, "Read EDI from the manual file")
	viper.BindPFlag("edi.use_manual", runCmd.Flags().Lookup("use-edi-file"))

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile corporate actions once and write the review workbook",
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

		summary, err := pipeline.New(conf, pipeline.NewSources(conf, cache)).Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("reconciliation failed")
		}

		database.LogOpenTransactions()
		log.Info().Str("RunID", summary.RunID).Str("Output", summary.Output).Int("Uploads", summary.Uploads).Msg("done")
	},
}

// setup validates the sources, connects to the database and installs the
// tracer. The returned function flushes pending spans.
func setup(ctx context.Context, conf *config.Config) func() {
	if err := conf.RequireSources(); err != nil {
		log.Fatal().Err(err).Msg("incomplete configuration")
	}

	if err := database.Connect(ctx, conf.Database.URL); err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}

	shutdown, err := opentelemetry.Setup(conf.OTLP)
	if err != nil {
		log.Fatal().Err(err).Msg("could not setup tracing")
	}

	return func() {
		if err := shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("could not flush traces")
		}
	}
}
