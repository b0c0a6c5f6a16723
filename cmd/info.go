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
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/pvfacts/library"
	"github.com/penny-vault/pvfacts/progress"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xeonx/timeago"
)

const maxFailuresShown = 10

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about the fact library and the last ingestion run",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary, err := library.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not load library info")
		}
		defer myLibrary.Close()

		summary, err := myLibrary.Summary(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create library summary document")
		}

		summary += checkpointSummary(viper.GetString("ingest.progress_file"))

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(summary)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render summary document")
		}

		fmt.Print(out)
	},
}

// checkpointSummary describes the ingestion checkpoint at path in markdown
func checkpointSummary(path string) string {
	tracker, err := progress.Load(path)
	if errors.Is(err, progress.ErrNoCheckpoint) {
		return ""
	}

	if err != nil {
		log.Warn().Err(err).Str("ProgressFile", path).Msg("could not read ingestion checkpoint")
		return ""
	}

	doc := tracker.Document()
	done, failed, noData := tracker.Counts()

	builder := strings.Builder{}
	builder.WriteString("## Ingestion Checkpoint\n\n")
	builder.WriteString(fmt.Sprintf("  * Run: %s (%s)\n", doc.RunID, doc.Policy))
	builder.WriteString(fmt.Sprintf("  * Position: %d of %d\n", doc.LastIndex, doc.Total))
	builder.WriteString(fmt.Sprintf("  * Done: %d, No Data: %d, Failed: %d\n", done, noData, failed))
	builder.WriteString(fmt.Sprintf("  * Saved: %s\n\n", timeago.English.Format(tracker.SavedAt())))

	if len(doc.Failed) > 0 {
		builder.WriteString("### Failures\n\n")
		for idx, failure := range doc.Failed {
			if idx == maxFailuresShown {
				builder.WriteString(fmt.Sprintf("  * ... and %d more\n", len(doc.Failed)-maxFailuresShown))
				break
			}
			builder.WriteString(fmt.Sprintf("  * %s: %s\n", failure.ID, failure.Reason))
		}
		builder.WriteString("\n")
	}

	if doc.LastIndex < doc.Total {
		builder.WriteString("Run `pvfacts ingest --resume` to continue.\n")
	}

	return builder.String()
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
