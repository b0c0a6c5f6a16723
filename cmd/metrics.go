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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/library"
	"github.com/penny-vault/pvfacts/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	metricsDate  string
	metricsStart string
	metricsEnd   string
	metricsSave  bool
)

// metricsCmd represents the metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics <ticker>",
	Short: "Compute valuation metrics for a company",
	Long: `The metrics sub-command values a company from the facts and prices stored in
the library. Without --start the valuation on a single date is printed (the
latest price on or before --date). With --start a daily series is written as
CSV to stdout. --save stores the computed snapshots in the valuation_metrics
table.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		entity, found, err := myLibrary.EntityByTicker(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("could not lookup ticker")
		}

		if !found {
			log.Fatal().Str("Ticker", args[0]).Msg("ticker is not in the library; run ingest first")
		}

		engine := metrics.NewEngine(myLibrary, myLibrary)

		var snapshots []*data.ValuationSnapshot
		if metricsStart == "" {
			snapshot, err := engine.Snapshot(ctx, entity.CIK, parseDate(metricsDate, time.Now()))
			if err != nil {
				log.Fatal().Err(err).Object("Entity", entity).Msg("could not value company")
			}

			printSnapshot(entity, snapshot)
			snapshots = append(snapshots, snapshot)
		} else {
			start := parseDate(metricsStart, time.Now())
			end := parseDate(metricsEnd, time.Now())

			snapshots, err = engine.DailySnapshots(ctx, entity.CIK, start, end)
			if err != nil {
				log.Fatal().Err(err).Object("Entity", entity).Msg("could not compute daily metrics")
			}

			if err := gocsv.Marshal(snapshots, os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("could not write CSV")
			}
		}

		if metricsSave {
			if err := myLibrary.SaveSnapshots(ctx, snapshots); err != nil {
				log.Fatal().Err(err).Msg("could not save snapshots")
			}
			log.Info().Int("NumSnapshots", len(snapshots)).Msg("saved valuation snapshots")
		}
	},
}

func printSnapshot(entity *data.Entity, snapshot *data.ValuationSnapshot) {
	ratio := func(value *float64) string {
		if value == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *value)
	}

	fmt.Printf("%s (%s) on %s\n\n", entity.Name, entity.Ticker, snapshot.Date.Format(time.DateOnly))
	fmt.Printf("%-18s %.2f\n", "Price", snapshot.Price)
	fmt.Printf("%-18s %.0f\n", "Market Cap", snapshot.MarketCap)
	fmt.Printf("%-18s %.0f\n", "Enterprise Value", snapshot.EnterpriseValue)
	fmt.Printf("%-18s %s\n", "P/E", ratio(snapshot.PE))
	fmt.Printf("%-18s %s\n", "P/S", ratio(snapshot.PS))
	fmt.Printf("%-18s %s\n", "P/B", ratio(snapshot.PB))
	fmt.Printf("%-18s %s\n", "EV/Revenue", ratio(snapshot.EVToRevenue))
	fmt.Printf("%-18s %s\n", "EV/EBITDA", ratio(snapshot.EVToEBITDA))
	fmt.Printf("%-18s %s\n", "Gross Margin", ratio(snapshot.GrossMargin))
	fmt.Printf("%-18s %s\n", "Operating Margin", ratio(snapshot.OperatingMargin))
	fmt.Printf("%-18s %s\n", "Net Margin", ratio(snapshot.NetMargin))
	fmt.Printf("%-18s %s\n", "ROE", ratio(snapshot.ROE))
	fmt.Printf("%-18s %s\n", "ROA", ratio(snapshot.ROA))
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().StringVar(&metricsDate, "date", "", "value the company as of this date (default today)")
	metricsCmd.Flags().StringVar(&metricsStart, "start", "", "first day of a daily series")
	metricsCmd.Flags().StringVar(&metricsEnd, "end", "", "last day of a daily series (default today)")
	metricsCmd.Flags().BoolVar(&metricsSave, "save", false, "store the snapshots in the library")
}
