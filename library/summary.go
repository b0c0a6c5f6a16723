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
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("# %s\n", myLibrary.Name))
	if myLibrary.Owner != "" {
		builder.WriteString(fmt.Sprintf("Maintained by %s\n\n", myLibrary.Owner))
	}

	builder.WriteString("## Details\n\n")

	numCompanies, err := myLibrary.NumCompanies(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Companies Tracked: %d\n", numCompanies))

	numFacts, err := myLibrary.NumFacts(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Financial Facts: %d\n", numFacts))

	numSnapshots, err := myLibrary.NumSnapshots(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Valuation Snapshots: %d\n\n", numSnapshots))

	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	if lastUpdated.Equal(time.Time{}) || lastUpdated.Year() <= 1 {
		builder.WriteString("Last Ingested: Never\n\n")
	} else {
		age := timeago.English.Format(lastUpdated)
		builder.WriteString(fmt.Sprintf("Last Ingested: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006")))
	}

	return builder.String(), nil
}
