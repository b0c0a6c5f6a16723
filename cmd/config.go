// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"strings"
	"time"

	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/edgar"
	"github.com/penny-vault/pvfacts/ingest"
	"github.com/penny-vault/pvfacts/pkginfo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// edgar.user_agent is read from PVFACTS_EDGAR_USER_AGENT
var envReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("edgar.rate_limit", edgar.DefaultRequestsPerSecond)
	viper.SetDefault("edgar.max_retries", edgar.DefaultMaxRetries)
	viper.SetDefault("edgar.backoff_base", edgar.DefaultBackoffBase)
	viper.SetDefault("edgar.timeout", edgar.DefaultTimeout)

	viper.SetDefault("ingest.min_year", ingest.DefaultMinYear)
	viper.SetDefault("ingest.checkpoint_every", ingest.DefaultCheckpointEvery)
	viper.SetDefault("ingest.progress_file", "pvfacts-progress.json")
	viper.SetDefault("ingest.policy", data.UpdateOnConflict.String())
	viper.SetDefault("ingest.sync_metadata", true)
}

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("BindPFlag failed")
	}
}

// newEdgarClient configures an EDGAR client from viper settings
func newEdgarClient() *edgar.Client {
	userAgent := edgarUserAgent()
	if userAgent == "" {
		log.Fatal().Msg("edgar.user_agent must be set to a contact email address; the SEC rejects anonymous requests")
	}

	limit := viper.GetFloat64("edgar.rate_limit")
	if limit <= 0 {
		limit = edgar.DefaultRequestsPerSecond
	}

	fetcher := edgar.NewFetcher(
		edgar.WithLimiter(rate.NewLimiter(rate.Limit(limit), 1)),
		edgar.WithRetry(viper.GetInt("edgar.max_retries"), viper.GetDuration("edgar.backoff_base")),
		edgar.WithUserAgent(userAgent),
		edgar.WithTimeout(viper.GetDuration("edgar.timeout")),
	)

	return edgar.NewClient(fetcher)
}

// edgarUserAgent returns the configured User-Agent. A bare contact address
// is prefixed with the program name and version.
func edgarUserAgent() string {
	userAgent := strings.TrimSpace(viper.GetString("edgar.user_agent"))
	if userAgent == "" || strings.Contains(userAgent, " ") {
		return userAgent
	}

	return pkginfo.UserAgent(userAgent)
}

// configuredConcepts returns the concept allowlist; nil selects the default set
func configuredConcepts() data.ConceptSet {
	concepts := viper.GetStringSlice("edgar.concepts")
	if len(concepts) == 0 {
		return nil
	}

	return data.NewConceptSet(concepts...)
}

func parseDate(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}

	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		log.Fatal().Err(err).Str("Date", value).Msg("dates must be formatted as YYYY-MM-DD")
	}

	return date
}
