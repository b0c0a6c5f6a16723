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
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var filingsLimit int

// filingsCmd lists the periodic reports recorded for a company
var filingsCmd = &cobra.Command{
	Use:   "filings <ticker>",
	Short: "List the 10-K and 10-Q filings recorded for a company",
	Long: `Filings are recorded while ingesting with ingest.sync_metadata enabled; the
recent filing index of the company's EDGAR submissions is scanned for annual and
quarterly reports.`,
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
			log.Fatal().Str("Ticker", args[0]).Msg("ticker is not in the library")
		}

		filings, err := myLibrary.Filings(ctx, entity.CIK, filingsLimit)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load filings")
		}

		r, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(120),
		)

		out, err := r.Render(filingsDocument(entity, filings))
		if err != nil {
			log.Fatal().Err(err).Msg("could not render filings")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(filingsCmd)

	filingsCmd.Flags().IntVar(&filingsLimit, "limit", 20, "number of filings to list")
}

// filingsDocument renders filings as a markdown table
func filingsDocument(entity *data.Entity, filings []*data.Filing) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("# %s (%s)\n\n", entity.Name, entity.Ticker))

	if len(filings) == 0 {
		builder.WriteString("No filings recorded; ingest with `ingest.sync_metadata` enabled.\n")
		return builder.String()
	}

	builder.WriteString("| Form | Filed | Period | Accession | Document |\n")
	builder.WriteString("|------|-------|--------|-----------|----------|\n")

	for _, filing := range filings {
		period := ""
		if filing.ReportDate != nil {
			period = filing.ReportDate.Format(time.DateOnly)
		}

		builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s/%s |\n",
			filing.Form,
			filing.FilingDate.Format(time.DateOnly),
			period,
			filing.AccessionNumber,
			filing.FileURL,
			filing.PrimaryDocument,
		))
	}

	return builder.String()
}
