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
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	ErrInvalidRegistry = errors.New("company registry is not valid json")
	ErrEmptyRegistry   = errors.New("company registry is empty")
)

// Registry produces the ordered list of companies to ingest. When
// CompaniesFile is set the list is read from a pre-built JSON document of the
// form {"companies": [{"cik", "ticker", "name", "market_cap"}]}; otherwise the
// SEC company tickers file is downloaded.
type Registry struct {
	Client        *Client
	CompaniesFile string
}

// Entities returns the companies ordered by descending size metric. Companies
// without a size metric keep their source order after those with one.
func (registry *Registry) Entities(ctx context.Context) ([]*data.Entity, error) {
	var (
		entities []*data.Entity
		err      error
	)

	if registry.CompaniesFile != "" {
		entities, err = registry.fromFile()
	} else {
		entities, err = registry.fromSEC(ctx)
	}

	if err != nil {
		return nil, err
	}

	if len(entities) == 0 {
		return nil, ErrEmptyRegistry
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].SizeMetric > entities[j].SizeMetric
	})

	return entities, nil
}

func (registry *Registry) fromFile() ([]*data.Entity, error) {
	content, err := os.ReadFile(registry.CompaniesFile)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegistry, registry.CompaniesFile)
	}

	var entities []*data.Entity
	gjson.GetBytes(content, "companies").ForEach(func(_, company gjson.Result) bool {
		entities = append(entities, &data.Entity{
			CIK:        data.PadCIK(company.Get("cik").String()),
			Ticker:     company.Get("ticker").String(),
			Name:       company.Get("name").String(),
			SizeMetric: company.Get("market_cap").Float(),
		})
		return true
	})

	log.Info().Str("FileName", registry.CompaniesFile).Int("NumCompanies", len(entities)).Msg("loaded company list")

	return dedupe(entities), nil
}

// fromSEC parses company_tickers.json, an object keyed by rank ("0", "1", ...)
func (registry *Registry) fromSEC(ctx context.Context) ([]*data.Entity, error) {
	url := fmt.Sprintf("%s/files/company_tickers.json", strings.TrimRight(registry.Client.WWWURL, "/"))

	body, found, err := registry.Client.Fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if !found || !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegistry, url)
	}

	type ranked struct {
		rank   int
		entity *data.Entity
	}

	var rows []ranked
	gjson.ParseBytes(body).ForEach(func(key, company gjson.Result) bool {
		rank, err := strconv.Atoi(key.String())
		if err != nil {
			rank = len(rows)
		}

		rows = append(rows, ranked{
			rank: rank,
			entity: &data.Entity{
				CIK:    data.PadCIK(company.Get("cik_str").String()),
				Ticker: company.Get("ticker").String(),
				Name:   company.Get("title").String(),
			},
		})
		return true
	})

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].rank < rows[j].rank
	})

	entities := make([]*data.Entity, len(rows))
	for idx, row := range rows {
		entities[idx] = row.entity
	}

	log.Info().Str("URL", url).Int("NumCompanies", len(entities)).Msg("downloaded company list")

	return dedupe(entities), nil
}

// dedupe keeps the first entry for each CIK; companies with several share
// classes appear once per ticker
func dedupe(entities []*data.Entity) []*data.Entity {
	seen := make(map[string]bool, len(entities))
	unique := entities[:0]

	for _, entity := range entities {
		if entity.CIK == "" || seen[entity.CIK] {
			continue
		}
		seen[entity.CIK] = true
		unique = append(unique, entity)
	}

	return unique
}
