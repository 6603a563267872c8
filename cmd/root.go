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
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
)

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cavalidator/config.toml)")

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Feeds
	viper.BindEnv("reuters.directory", "CAV_REUTERS_DIR")
	rootCmd.PersistentFlags().String("reuters-dir", "", "Directory holding the Reuters corporate action workbooks")
	viper.BindPFlag("reuters.directory", rootCmd.PersistentFlags().Lookup("reuters-dir"))

	viper.BindEnv("edi.url", "CAV_EDI_URL")
	viper.BindEnv("edi.manual_file", "CAV_EDI_FILE")
	rootCmd.PersistentFlags().String("edi-file", "", "Read EDI corporate actions from this CSV instead of the EDI API")
	viper.BindPFlag("edi.manual_file", rootCmd.PersistentFlags().Lookup("edi-file"))

	viper.BindEnv("platform.url", "CAV_PLATFORM_URL")
	viper.BindEnv("symbology.url", "CAV_SYMBOLOGY_URL")
	viper.BindEnv("currency.url", "CAV_CURRENCY_URL")
	viper.BindEnv("capital_events.url", "CAV_CAPITAL_EVENTS_URL")
	viper.BindEnv("cache.redis_url", "REDIS_URL")

	// Output
	rootCmd.PersistentFlags().StringP("output", "o", "", "Path of the review workbook")
	viper.BindPFlag("report.output", rootCmd.PersistentFlags().Lookup("output"))

	// Logging configuration
	viper.BindEnv("log.level", "CAV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "CAV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "CAV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	rootCmd.PersistentFlags().Bool("log-pretty", false, "Write human readable logs instead of JSON")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath("/etc/cavalidator/")
		viper.AddConfigPath("$HOME/.config/cavalidator")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "could not read config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig builds the configuration and sets up logging. The returned
// function flushes the log output.
func loadConfig() (*config.Config, func() error) {
	conf, err := config.Load(viper.GetViper())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	closer, err := common.SetupLogging(conf.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if fn := viper.ConfigFileUsed(); fn != "" {
		log.Debug().Str("ConfigFile", fn).Msg("loaded configuration")
	}

	return conf, closer
}

var rootCmd = &cobra.Command{
	Use:     common.Program,
	Version: common.CurrentVersion.String(),
	Short:   "Reconcile corporate actions across Reuters, EDI and the platform",
	Long: `cavalidator compares upcoming corporate actions reported by Reuters and EDI
with the corporate actions stored on the platform and writes a review workbook
that marks disagreements and the actions that are ready for upload.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
