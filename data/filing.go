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
package data

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Periodic report forms kept from a company's filing history
const (
	FormAnnualReport    = "10-K"
	FormQuarterlyReport = "10-Q"
)

// Filing is one periodic report listed in a company's EDGAR submissions
type Filing struct {
	AccessionNumber string     `db:"accession_number" json:"accession_number" csv:"accession_number"`
	CIK             string     `db:"cik" json:"cik" csv:"cik"`
	Form            string     `db:"form_type" json:"form_type" csv:"form_type"`
	FilingDate      time.Time  `db:"filing_date" json:"filing_date" csv:"filing_date"`
	ReportDate      *time.Time `db:"report_date" json:"report_date,omitempty" csv:"report_date"`
	PrimaryDocument string     `db:"primary_document" json:"primary_document,omitempty" csv:"primary_document"`
	FileURL         string     `db:"file_url" json:"file_url" csv:"file_url"`
}

// SaveDB records the filing; a filing already on record is left unchanged
func (filing *Filing) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO sec_filings (
		"accession_number",
		"cik",
		"form_type",
		"filing_date",
		"report_date",
		"primary_document",
		"file_url"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	) ON CONFLICT ON CONSTRAINT sec_filings_pkey DO NOTHING`

	_, err := tx.Exec(ctx, sql,
		filing.AccessionNumber,
		filing.CIK,
		filing.Form,
		filing.FilingDate,
		filing.ReportDate,
		nullString(filing.PrimaryDocument),
		nullString(filing.FileURL),
	)
	if err != nil {
		log.Error().Err(err).Object("Filing", filing).Msg("save filing to DB failed")
	}

	return err
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (filing *Filing) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CIK", filing.CIK)
	e.Str("AccessionNumber", filing.AccessionNumber)
	e.Str("Form", filing.Form)
	e.Time("FilingDate", filing.FilingDate)
}
