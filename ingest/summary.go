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
package ingest

import (
	"time"

	"github.com/rs/zerolog"
)

// Summary describes the outcome of an ingestion run
type Summary struct {
	RunID     string
	Policy    string
	StartTime time.Time
	EndTime   time.Time

	Total      int
	Processed  int
	Succeeded  int
	Failed     int
	NoData     int
	Skipped    int
	TotalFacts int64
	Requests   int64

	Interrupted bool
}

// Elapsed returns the wall time of the run
func (summary *Summary) Elapsed() time.Duration {
	if summary.EndTime.IsZero() {
		return time.Since(summary.StartTime)
	}
	return summary.EndTime.Sub(summary.StartTime)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (summary *Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", summary.RunID)
	e.Str("Policy", summary.Policy)
	e.Int("Total", summary.Total)
	e.Int("Processed", summary.Processed)
	e.Int("Succeeded", summary.Succeeded)
	e.Int("Failed", summary.Failed)
	e.Int("NoData", summary.NoData)
	e.Int("Skipped", summary.Skipped)
	e.Int64("TotalFacts", summary.TotalFacts)
	e.Int64("Requests", summary.Requests)
	e.Bool("Interrupted", summary.Interrupted)
}
