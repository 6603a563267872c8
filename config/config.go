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

// Package config holds the explicit configuration object that is built once
// from viper and handed to every component at construction.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

var (
	ErrMissingSetting = errors.New("required setting is missing")
	ErrInvalidSetting = errors.New("setting has an invalid value")
)

type Config struct {
	Log           Log           `mapstructure:"log" toml:"log"`
	Database      Database      `mapstructure:"database" toml:"database"`
	Reuters       Reuters       `mapstructure:"reuters" toml:"reuters"`
	EDI           EDI           `mapstructure:"edi" toml:"edi"`
	Platform      Endpoint      `mapstructure:"platform" toml:"platform"`
	Symbology     Symbology     `mapstructure:"symbology" toml:"symbology"`
	Currency      Endpoint      `mapstructure:"currency" toml:"currency"`
	CapitalEvents Endpoint      `mapstructure:"capital_events" toml:"capital_events"`
	Window        Window        `mapstructure:"window" toml:"window"`
	Reconcile     Reconcile     `mapstructure:"reconcile" toml:"reconcile"`
	Report        Report        `mapstructure:"report" toml:"report"`
	Cache         Cache         `mapstructure:"cache" toml:"cache"`
	OTLP          OTLP          `mapstructure:"otlp" toml:"otlp"`
	Schedule      Schedule      `mapstructure:"schedule" toml:"schedule"`
	HTTP          HTTP          `mapstructure:"http" toml:"http"`
}

type Log struct {
	Level        string `mapstructure:"level" toml:"level"`
	Output       string `mapstructure:"output" toml:"output"`
	Pretty       bool   `mapstructure:"pretty" toml:"pretty"`
	ReportCaller bool   `mapstructure:"report_caller" toml:"report_caller"`
}

type Database struct {
	URL             string `mapstructure:"url" toml:"url"`
	InstrumentTable string `mapstructure:"instrument_table" toml:"instrument_table"`
	HolidayTable    string `mapstructure:"holiday_table" toml:"holiday_table"`
}

type Reuters struct {
	Directory string `mapstructure:"directory" toml:"directory"`
	SkipRows  int    `mapstructure:"skip_rows" toml:"skip_rows"`
}

type EDI struct {
	URL        string `mapstructure:"url" toml:"url"`
	ManualFile string `mapstructure:"manual_file" toml:"manual_file"`
	UseManual  bool   `mapstructure:"use_manual" toml:"use_manual"`
}

type Endpoint struct {
	URL string `mapstructure:"url" toml:"url"`
}

type Symbology struct {
	URL       string `mapstructure:"url" toml:"url"`
	BatchSize int    `mapstructure:"batch_size" toml:"batch_size"`
}

// Window controls the execution dates that are reconciled: today plus
// StartDays calendar days through today plus EndBusinessDays business days
type Window struct {
	StartDays       int `mapstructure:"start_days" toml:"start_days"`
	EndBusinessDays int `mapstructure:"end_business_days" toml:"end_business_days"`
}

type Reconcile struct {
	RoundingDigits int `mapstructure:"rounding_digits" toml:"rounding_digits"`
}

type Report struct {
	Output string `mapstructure:"output" toml:"output"`
	Digest bool   `mapstructure:"digest" toml:"digest"`
}

type Cache struct {
	LocalSize int    `mapstructure:"local_size" toml:"local_size"`
	Redis     bool   `mapstructure:"redis" toml:"redis"`
	RedisURL  string `mapstructure:"redis_url" toml:"redis_url"`
	TTL       int    `mapstructure:"ttl" toml:"ttl"`
}

type OTLP struct {
	Enabled  bool              `mapstructure:"enabled" toml:"enabled"`
	HTTP     bool              `mapstructure:"http" toml:"http"`
	Endpoint string            `mapstructure:"endpoint" toml:"endpoint"`
	Headers  map[string]string `mapstructure:"headers" toml:"headers"`
}

type Schedule struct {
	Cron     string `mapstructure:"cron" toml:"cron"`
	Timezone string `mapstructure:"timezone" toml:"timezone"`
}

type HTTP struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout as a duration
func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Expiry returns the cache TTL as a duration
func (c Cache) Expiry() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// SetDefaults registers default values for every setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warning")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.report_caller", false)

	v.SetDefault("database.instrument_table", "shares_unique")
	v.SetDefault("database.holiday_table", "market_holidays")

	v.SetDefault("reuters.skip_rows", 6)

	v.SetDefault("symbology.batch_size", 2000)

	v.SetDefault("window.start_days", 0)
	v.SetDefault("window.end_business_days", 2)

	v.SetDefault("reconcile.rounding_digits", 6)

	v.SetDefault("report.output", "CA_check.xlsx")
	v.SetDefault("report.digest", true)

	v.SetDefault("cache.local_size", 10000)
	v.SetDefault("cache.redis", false)
	v.SetDefault("cache.ttl", 3600)

	v.SetDefault("schedule.cron", "0 6 * * 1-5")
	v.SetDefault("schedule.timezone", "Europe/Berlin")

	v.SetDefault("http.timeout_seconds", 60)
}

// Load builds a Config from the settings known to v
func Load(v *viper.Viper) (*Config, error) {
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.Symbology.BatchSize <= 0 {
		return fmt.Errorf("%w: symbology.batch_size must be positive", ErrInvalidSetting)
	}
	if c.Window.StartDays < 0 || c.Window.EndBusinessDays < 0 {
		return fmt.Errorf("%w: window offsets must not be negative", ErrInvalidSetting)
	}
	if c.Reconcile.RoundingDigits < 0 || c.Reconcile.RoundingDigits > 10 {
		return fmt.Errorf("%w: reconcile.rounding_digits must be between 0 and 10", ErrInvalidSetting)
	}
	if c.EDI.UseManual && c.EDI.ManualFile == "" {
		return fmt.Errorf("%w: edi.manual_file", ErrMissingSetting)
	}
	return nil
}

// RequireSources checks that every source needed for a reconciliation run is
// configured
func (c *Config) RequireSources() error {
	required := map[string]string{
		"database.url":       c.Database.URL,
		"reuters.directory":  c.Reuters.Directory,
		"platform.url":       c.Platform.URL,
		"symbology.url":      c.Symbology.URL,
		"currency.url":       c.Currency.URL,
		"capital_events.url": c.CapitalEvents.URL,
	}
	if !c.EDI.UseManual {
		required["edi.url"] = c.EDI.URL
	}
	for _, name := range sortedKeys(required) {
		if required[name] == "" {
			return fmt.Errorf("%w: %s", ErrMissingSetting, name)
		}
	}
	return nil
}

// TOML renders the configuration with secrets masked
func (c Config) TOML() ([]byte, error) {
	masked := c
	if masked.Database.URL != "" {
		masked.Database.URL = "********"
	}
	if masked.Cache.RedisURL != "" {
		masked.Cache.RedisURL = "********"
	}
	if len(masked.OTLP.Headers) > 0 {
		headers := make(map[string]string, len(masked.OTLP.Headers))
		for k := range masked.OTLP.Headers {
			headers[k] = "********"
		}
		masked.OTLP.Headers = headers
	}
	return toml.Marshal(masked)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
