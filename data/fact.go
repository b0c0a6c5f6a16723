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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FiscalPeriod is the fiscal period reported alongside a fact (FY, Q1..Q4)
type FiscalPeriod string

const (
	Annual FiscalPeriod = "FY"
	Q1     FiscalPeriod = "Q1"
	Q2     FiscalPeriod = "Q2"
	Q3     FiscalPeriod = "Q3"
	Q4     FiscalPeriod = "Q4"
)

// IsQuarter returns true for Q1 through Q4
func (fp FiscalPeriod) IsQuarter() bool {
	switch fp {
	case Q1, Q2, Q3, Q4:
		return true
	default:
		return false
	}
}

const filingBaseURL = "https://www.sec.gov/Archives/edgar/data"

// Fact is a single value reported by a company for a concept over a period
type Fact struct {
	CIK             string       `db:"cik"`
	Taxonomy        string       `db:"taxonomy"`
	Concept         string       `db:"concept"`
	Value           float64      `db:"value"`
	Unit            string       `db:"unit"`
	PeriodStart     *time.Time   `db:"period_start"`
	PeriodEnd       time.Time    `db:"period_end"`
	FiscalYear      *int         `db:"fiscal_year"`
	FiscalPeriod    FiscalPeriod `db:"fiscal_period"`
	Form            *string      `db:"form"`
	AccessionNumber *string      `db:"accession_number"`
	FilingURL       *string      `db:"filing_url"`
	Frame           *string      `db:"frame"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

// NaturalKey uniquely identifies a fact within the library
type NaturalKey struct {
	CIK          string
	Concept      string
	PeriodEnd    string
	FiscalPeriod FiscalPeriod
}

func (fact *Fact) Key() NaturalKey {
	return NaturalKey{
		CIK:          fact.CIK,
		Concept:      fact.Concept,
		PeriodEnd:    fact.PeriodEnd.Format(time.DateOnly),
		FiscalPeriod: fact.FiscalPeriod,
	}
}

// Instant returns true for balance-sheet style facts that have no period start
func (fact *Fact) Instant() bool {
	return fact.PeriodStart == nil
}

// FilingURL builds the EDGAR archive URL of the filing with the given accession number
func FilingURL(cik, accessionNumber string) string {
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" {
		trimmed = "0"
	}

	return fmt.Sprintf("%s/%s/%s", filingBaseURL, trimmed, strings.ReplaceAll(accessionNumber, "-", ""))
}

// PadCIK left pads a central index key with zeros to the ten digits EDGAR expects
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if cik == "" || len(cik) >= 10 {
		return cik
	}

	return strings.Repeat("0", 10-len(cik)) + cik
}

// CIKFromInt formats a numeric central index key
func CIKFromInt(cik int64) string {
	return PadCIK(strconv.FormatInt(cik, 10))
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (fact *Fact) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CIK", fact.CIK)
	e.Str("Taxonomy", fact.Taxonomy)
	e.Str("Concept", fact.Concept)
	e.Float64("Value", fact.Value)
	e.Str("Unit", fact.Unit)
	e.Time("PeriodEnd", fact.PeriodEnd)
	e.Str("FiscalPeriod", string(fact.FiscalPeriod))

	if fact.AccessionNumber != nil {
		e.Str("Accession", *fact.AccessionNumber)
	}
}
