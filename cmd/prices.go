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
	"os"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// pricesCmd represents the prices command
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Manage the daily prices used to value companies",
}

// pricesImportCmd loads a CSV file of split-adjusted prices
var pricesImportCmd = &cobra.Command{
	Use:   "import <ticker> <file.csv>",
	Short: "Import split-adjusted daily prices for a company",
	Long: `The import sub-command reads a CSV file with the columns date (YYYY-MM-DD),
adj_close, and optionally shares_outstanding and stores it in the stock_prices
table. Prices must be adjusted for splits so valuations stay comparable across
a split. Existing prices for the same day are replaced.`,
	Args: cobra.ExactArgs(2),
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

		fh, err := os.Open(args[1])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[1]).Msg("could not open price file")
		}
		defer fh.Close()

		records := []*data.PriceRecord{}
		if err := gocsv.UnmarshalFile(fh, &records); err != nil {
			log.Fatal().Err(err).Str("FileName", args[1]).Msg("could not parse price file")
		}

		prices := make([]*data.PriceObservation, 0, len(records))
		for _, record := range records {
			price, err := record.Observation(entity.CIK)
			if err != nil {
				log.Warn().Err(err).Msg("skipping price row")
				continue
			}
			prices = append(prices, price)
		}

		if err := myLibrary.SavePrices(ctx, prices); err != nil {
			log.Fatal().Err(err).Msg("could not save prices")
		}

		log.Info().Object("Entity", entity).Int("NumPrices", len(prices)).Int("NumSkipped", len(records)-len(prices)).Msg("imported prices")
	},
}

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesImportCmd)
}
