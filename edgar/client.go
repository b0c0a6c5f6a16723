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
package edgar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvfacts/data"
)

const (
	DefaultDataURL = "https://data.sec.gov"
	DefaultWWWURL  = "https://www.sec.gov"

	// DefaultFilingLimit is how many of the most recent submissions are
	// scanned for periodic reports
	DefaultFilingLimit = 40
)

// CompanyFacts is the response of the XBRL companyfacts API
type CompanyFacts struct {
	CIK        json.Number                         `json:"cik"`
	EntityName string                              `json:"entityName"`
	Facts      map[string]map[string]*ConceptFacts `json:"facts"`
}

// ConceptFacts holds every observation for a single concept keyed by unit
type ConceptFacts struct {
	Label       string                    `json:"label"`
	Description string                    `json:"description"`
	Units       map[string][]*Observation `json:"units"`
}

// Observation is one reported value as it appears in the companyfacts API
type Observation struct {
	Value *float64 `json:"val"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	FY    *int     `json:"fy"`
	FP    *string  `json:"fp"`
	Form  *string  `json:"form"`
	Filed string   `json:"filed"`
	Accn  *string  `json:"accn"`
	Frame *string  `json:"frame"`
}

type submissions struct {
	CIK            string   `json:"cik"`
	Name           string   `json:"name"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Tickers        []string `json:"tickers"`
	Filings        struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

// recentFilings is the column oriented filing index of the submissions API
type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

func column(values []string, idx int) string {
	if idx < len(values) {
		return values[idx]
	}
	return ""
}

// periodic returns the annual and quarterly reports among the first limit
// submissions. Rows without an accession number or filing date are skipped.
func (recent *recentFilings) periodic(cik string, limit int) []*data.Filing {
	var filings []*data.Filing

	n := min(limit, len(recent.Form))
	for idx := 0; idx < n; idx++ {
		form := recent.Form[idx]
		if form != data.FormAnnualReport && form != data.FormQuarterlyReport {
			continue
		}

		accession := column(recent.AccessionNumber, idx)
		filed, err := time.Parse(time.DateOnly, column(recent.FilingDate, idx))
		if accession == "" || err != nil {
			continue
		}

		filing := &data.Filing{
			AccessionNumber: accession,
			CIK:             cik,
			Form:            form,
			FilingDate:      filed,
			PrimaryDocument: column(recent.PrimaryDocument, idx),
			FileURL:         data.FilingURL(cik, accession),
		}

		if reported, err := time.Parse(time.DateOnly, column(recent.ReportDate, idx)); err == nil {
			filing.ReportDate = &reported
		}

		filings = append(filings, filing)
	}

	return filings
}

// Client wraps a Fetcher with the EDGAR endpoints used during ingestion
type Client struct {
	Fetcher     *Fetcher
	DataURL     string
	WWWURL      string
	FilingLimit int
}

// NewClient creates an EDGAR client that issues every request through fetcher
func NewClient(fetcher *Fetcher) *Client {
	return &Client{
		Fetcher:     fetcher,
		DataURL:     DefaultDataURL,
		WWWURL:      DefaultWWWURL,
		FilingLimit: DefaultFilingLimit,
	}
}

// Requests returns the number of HTTP requests issued by the client
func (client *Client) Requests() int64 {
	return client.Fetcher.Requests()
}

// CompanyFacts downloads all XBRL facts reported by cik. found is false when
// EDGAR has no facts for the company.
func (client *Client) CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, bool, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", strings.TrimRight(client.DataURL, "/"), data.PadCIK(cik))

	body, found, err := client.Fetcher.Get(ctx, url)
	if err != nil || !found {
		return nil, found, err
	}

	facts := &CompanyFacts{}
	if err := json.Unmarshal(body, facts); err != nil {
		return nil, true, fmt.Errorf("decode company facts for %s: %w", cik, err)
	}

	return facts, true, nil
}

// Submissions downloads company metadata (name, SIC code, tickers) along
// with the company's recent 10-K and 10-Q filings
func (client *Client) Submissions(ctx context.Context, cik string) (*data.Entity, bool, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", strings.TrimRight(client.DataURL, "/"), data.PadCIK(cik))

	body, found, err := client.Fetcher.Get(ctx, url)
	if err != nil || !found {
		return nil, found, err
	}

	var subs submissions
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, true, fmt.Errorf("decode submissions for %s: %w", cik, err)
	}

	entity := &data.Entity{
		CIK:            data.PadCIK(cik),
		Name:           subs.Name,
		SICCode:        subs.SIC,
		SICDescription: subs.SICDescription,
	}

	if len(subs.Tickers) > 0 {
		entity.Ticker = subs.Tickers[0]
	}

	limit := client.FilingLimit
	if limit <= 0 {
		limit = DefaultFilingLimit
	}
	entity.Filings = subs.Filings.Recent.periodic(entity.CIK, limit)

	return entity, true, nil
}
