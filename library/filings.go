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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

// Filings returns the most recent periodic reports of cik, newest first
func (myLibrary *Library) Filings(ctx context.Context, cik string, limit int) ([]*data.Filing, error) {
	var filings []*data.Filing

	err := pgxscan.Select(ctx, myLibrary.Pool, &filings, `SELECT accession_number, cik, form_type, filing_date, report_date,
coalesce(primary_document, '') AS primary_document, coalesce(file_url, '') AS file_url
FROM sec_filings WHERE cik = $1 ORDER BY filing_date DESC LIMIT $2`, cik, limit)
	if err != nil {
		log.Error().Err(err).Str("CIK", cik).Msg("could not load filings")
		return nil, err
	}

	return filings, nil
}
