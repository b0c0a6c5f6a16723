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
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvfacts/bundle"
	"github.com/penny-vault/pvfacts/library"
	"github.com/penny-vault/pvfacts/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	bundleStart       string
	bundleEnd         string
	bundleOutDir      string
	bundleTickers     []string
	bundleConcurrency int
	bundleMetric      string
)

// bundleCmd represents the bundle command
var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Work with bundles of companies",
}

// bundleListCmd prints every premade bundle and sector
var bundleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List premade bundles and sectors",
	Run: func(cmd *cobra.Command, args []string) {
		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		builder := strings.Builder{}
		builder.WriteString("# Premade Bundles\n\n")
		for _, b := range bundle.Premade {
			builder.WriteString(fmt.Sprintf("- **%s** (`%s`): %s\n", b.Name, b.Slug(), strings.Join(b.Tickers, ", ")))
		}

		builder.WriteString("\n# Sectors\n\nCompanies are assigned to sectors by the first two digits of their SIC code.\n\n")
		for _, b := range bundle.Sectors {
			builder.WriteString(fmt.Sprintf("- **%s** (`%s`): %s\n", b.Name, b.Slug(), strings.Join(b.SICPrefixes, ", ")))
		}

		out, err := r.Render(builder.String())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render bundle document")
		}

		fmt.Print(out)
	},
}

// bundleExportCmd writes the daily aggregate valuation of a bundle to CSV
var bundleExportCmd = &cobra.Command{
	Use:   "export <bundle>",
	Short: "Compute size weighted daily valuation metrics for a bundle",
	Long: `The export sub-command values every company in a bundle on each trading day
and combines them into size weighted aggregates (sum of numerators over sum of
denominators). Use a premade bundle or sector name, or --tickers with a name of
your choosing. The result is written to <out>/<bundle-slug>.csv.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		var selected *bundle.Bundle
		if len(bundleTickers) > 0 {
			selected = bundle.Custom(args[0], bundleTickers)
		} else {
			found, ok := bundle.Find(args[0])
			if !ok {
				log.Fatal().Str("Bundle", args[0]).Msg("unknown bundle; see `pvfacts bundle list`")
			}
			selected = found
		}

		entities, err := selected.Entities(ctx, myLibrary)
		if err != nil {
			log.Fatal().Err(err).Str("Bundle", selected.Name).Msg("could not resolve bundle")
		}

		if len(entities) == 0 {
			log.Fatal().Str("Bundle", selected.Name).Msg("none of the bundle's companies are in the library")
		}

		start := parseDate(bundleStart, time.Now().AddDate(-1, 0, 0))
		end := parseDate(bundleEnd, time.Now())

		aggregator := bundle.NewAggregator(metrics.NewEngine(myLibrary, myLibrary))
		aggregator.Concurrency = bundleConcurrency

		snapshots, err := aggregator.Aggregate(ctx, entities, start, end)
		if err != nil {
			log.Fatal().Err(err).Str("Bundle", selected.Name).Msg("could not aggregate bundle")
		}

		if err := os.MkdirAll(bundleOutDir, 0755); err != nil {
			log.Fatal().Err(err).Str("Dir", bundleOutDir).Msg("could not create output directory")
		}

		outFN := filepath.Join(bundleOutDir, selected.Slug()+".csv")
		fh, err := os.Create(outFN)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", outFN).Msg("could not create output file")
		}
		defer fh.Close()

		if err := gocsv.MarshalFile(&snapshots, fh); err != nil {
			log.Fatal().Err(err).Str("FileName", outFN).Msg("could not write CSV")
		}

		log.Info().Str("Bundle", selected.Name).Int("NumCompanies", len(entities)).Int("NumDays", len(snapshots)).Str("FileName", outFN).Msg("bundle exported")
	},
}

// bundleCompareCmd writes one metric of several bundles side by side
var bundleCompareCmd = &cobra.Command{
	Use:   "compare <bundle> <bundle>...",
	Short: "Compare a size weighted metric across bundles",
	Long: `The compare sub-command aggregates each bundle over the date range and writes
a CSV file with one row per day and one column per bundle holding the chosen
--metric (for example pe_ratio, ev_ebitda or total_market_cap). The file is
named after the bundles unless --file is given.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		metric, err := bundle.ParseMetric(bundleMetric)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid --metric")
		}

		bundles := make([]*bundle.Bundle, len(args))
		for idx, name := range args {
			found, ok := bundle.Find(name)
			if !ok {
				log.Fatal().Str("Bundle", name).Msg("unknown bundle; see `pvfacts bundle list`")
			}
			bundles[idx] = found
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		start := parseDate(bundleStart, time.Now().AddDate(-1, 0, 0))
		end := parseDate(bundleEnd, time.Now())

		aggregator := bundle.NewAggregator(metrics.NewEngine(myLibrary, myLibrary))
		aggregator.Concurrency = bundleConcurrency

		comparison, err := aggregator.Compare(ctx, myLibrary, bundles, start, end, metric)
		if err != nil {
			log.Fatal().Err(err).Msg("could not compare bundles")
		}

		outFN := bundleCompareFile
		if outFN == "" {
			outFN = filepath.Join(bundleOutDir, comparisonFileName(bundles, metric))
		}

		if err := writeComparison(outFN, comparison); err != nil {
			log.Fatal().Err(err).Str("FileName", outFN).Msg("could not write CSV")
		}

		log.Info().Int("NumBundles", len(bundles)).Int("NumDays", len(comparison.Rows)).Str("Metric", string(metric)).Str("FileName", outFN).Msg("bundle comparison exported")
	},
}

var bundleCompareFile string

// comparisonFileName joins the bundle slugs and the metric, e.g.
// magnificent-7-vs-technology-pe_ratio.csv
func comparisonFileName(bundles []*bundle.Bundle, metric bundle.Metric) string {
	slugs := make([]string, len(bundles))
	for idx, b := range bundles {
		slugs[idx] = b.Slug()
	}

	return fmt.Sprintf("%s-%s.csv", strings.Join(slugs, "-vs-"), metric)
}

func writeComparison(fn string, comparison *bundle.Comparison) error {
	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return err
	}

	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer fh.Close()

	writer := gocsv.DefaultCSVWriter(fh)
	for _, record := range comparison.Records() {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleCmd.AddCommand(bundleListCmd)
	bundleCmd.AddCommand(bundleExportCmd)
	bundleCmd.AddCommand(bundleCompareCmd)

	bundleCompareCmd.Flags().StringVar(&bundleStart, "start", "", "first day (default one year ago)")
	bundleCompareCmd.Flags().StringVar(&bundleEnd, "end", "", "last day (default today)")
	bundleCompareCmd.Flags().StringVarP(&bundleOutDir, "out", "o", ".", "directory the CSV file is written to")
	bundleCompareCmd.Flags().StringVar(&bundleCompareFile, "file", "", "write to this file instead of a name derived from the bundles")
	bundleCompareCmd.Flags().StringVar(&bundleMetric, "metric", string(bundle.MetricPE), "metric to compare")
	bundleCompareCmd.Flags().IntVar(&bundleConcurrency, "concurrency", bundle.DefaultConcurrency, "companies valued in parallel")

	bundleExportCmd.Flags().StringVar(&bundleStart, "start", "", "first day (default one year ago)")
	bundleExportCmd.Flags().StringVar(&bundleEnd, "end", "", "last day (default today)")
	bundleExportCmd.Flags().StringVarP(&bundleOutDir, "out", "o", ".", "directory the CSV file is written to")
	bundleExportCmd.Flags().StringSliceVar(&bundleTickers, "tickers", nil, "comma separated tickers of a custom bundle")
	bundleExportCmd.Flags().IntVar(&bundleConcurrency, "concurrency", bundle.DefaultConcurrency, "companies valued in parallel")
}
