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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/edgar"
	"github.com/penny-vault/pvfacts/healthcheck"
	"github.com/penny-vault/pvfacts/ingest"
	"github.com/penny-vault/pvfacts/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	resume     bool
	appendOnly bool
	limit      int
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download XBRL company facts from SEC EDGAR into the library",
	Long: `The ingest sub-command downloads the companyfacts document of every company
in the registry, one company at a time, and stores the curated concepts in the
fact library. Progress is checkpointed to a JSON file so an interrupted run can
be continued with --resume. Restated figures replace previously stored values
unless --append-only is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctx = log.Logger.WithContext(ctx)

		policy, err := data.ParseConflictPolicy(viper.GetString("ingest.policy"))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid ingest.policy")
		}

		if appendOnly {
			policy = data.SkipOnConflict
		}

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to library")
		}
		defer myLibrary.Close()

		client := newEdgarClient()

		orchestrator := &ingest.Orchestrator{
			Registry: &edgar.Registry{
				Client:        client,
				CompaniesFile: viper.GetString("ingest.companies_file"),
			},
			Source: client,
			Store:  library.NewFactStore(myLibrary.Pool, policy),
			Options: ingest.Options{
				ProgressFile:    viper.GetString("ingest.progress_file"),
				Resume:          resume,
				Limit:           limit,
				CheckpointEvery: viper.GetInt("ingest.checkpoint_every"),
				MinYear:         viper.GetInt("ingest.min_year"),
				Concepts:        configuredConcepts(),
				SyncMetadata:    viper.GetBool("ingest.sync_metadata"),
			},
		}

		monitor := healthcheck.New("")
		checkID := viper.GetString("healthchecks.check_id")
		ping(monitor, checkID, healthcheck.Start, "")

		summary, err := orchestrator.Run(ctx)
		fmt.Println(renderSummary(summary))

		code := exitCode(err)
		switch code {
		case exitInterrupted:
			ping(monitor, checkID, healthcheck.Fail, "interrupted")
			log.Warn().Msg("ingestion interrupted; continue with --resume")
		case exitFailed:
			ping(monitor, checkID, healthcheck.Fail, err.Error())
			log.Error().Err(err).Msg("ingestion failed")
		default:
			ping(monitor, checkID, healthcheck.Success, fmt.Sprintf("%d companies, %d facts", summary.Processed, summary.TotalFacts))
		}

		if code != exitOK {
			// os.Exit skips deferred calls
			stop()
			myLibrary.Close()
			os.Exit(code)
		}
	},
}

const (
	exitOK          = 0
	exitFailed      = 1
	exitInterrupted = 130
)

// exitCode maps the result of an ingestion run to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFailed
	}
}

// ping uses its own context so the final ping is sent after an interrupt
func ping(monitor *healthcheck.Client, checkID string, status healthcheck.Status, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := monitor.Ping(ctx, checkID, status, body); err != nil {
		log.Warn().Err(err).Msg("could not notify healthchecks.io")
	}
}

func renderSummary(summary *ingest.Summary) string {
	var sb strings.Builder
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	title := "INGESTION COMPLETE"
	if summary.Interrupted {
		title = "INGESTION INTERRUPTED"
	}

	fmt.Fprintf(&sb,
		"%s\n\nRun: %s\nPolicy: %s\nElapsed: %s\n\nCompanies: %s\nSucceeded: %s\nNo data: %s\nFailed: %s\nSkipped: %s\n\nFacts stored: %s\nRequests: %s",
		lipgloss.NewStyle().Bold(true).Render(title),
		keyword(summary.RunID),
		keyword(summary.Policy),
		keyword(durafmt.Parse(summary.Elapsed()).LimitFirstN(2).String()),
		keyword(fmt.Sprintf("%d / %d", summary.Processed, summary.Total)),
		keyword(fmt.Sprint(summary.Succeeded)),
		keyword(fmt.Sprint(summary.NoData)),
		keyword(fmt.Sprint(summary.Failed)),
		keyword(fmt.Sprint(summary.Skipped)),
		keyword(fmt.Sprint(summary.TotalFacts)),
		keyword(fmt.Sprint(summary.Requests)),
	)

	return lipgloss.NewStyle().
		Width(60).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2).
		Render(sb.String())
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&resume, "resume", false, "continue the run recorded in the progress file")
	ingestCmd.Flags().BoolVar(&appendOnly, "append-only", false, "never overwrite stored facts (skip-on-conflict)")
	ingestCmd.Flags().IntVar(&limit, "limit", 0, "only ingest the first N companies of the registry")

	ingestCmd.Flags().String("progress-file", "", "checkpoint file (default pvfacts-progress.json)")
	ingestCmd.Flags().String("companies-file", "", "JSON list of companies to ingest instead of the SEC ticker list")
	ingestCmd.Flags().Int("checkpoint-every", ingest.DefaultCheckpointEvery, "save progress after this many companies")
	ingestCmd.Flags().Int("min-year", ingest.DefaultMinYear, "ignore facts for periods ending before this year")
	ingestCmd.Flags().String("user-agent", "", "contact email sent to the SEC with every request")

	bindFlag("ingest.progress_file", ingestCmd.Flags().Lookup("progress-file"))
	bindFlag("ingest.companies_file", ingestCmd.Flags().Lookup("companies-file"))
	bindFlag("ingest.checkpoint_every", ingestCmd.Flags().Lookup("checkpoint-every"))
	bindFlag("ingest.min_year", ingestCmd.Flags().Lookup("min-year"))
	bindFlag("edgar.user_agent", ingestCmd.Flags().Lookup("user-agent"))
}
