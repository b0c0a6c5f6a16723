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
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

const entityColumns = `cik, coalesce(name, '') AS name, coalesce(ticker, '') AS ticker,
coalesce(sic_code, '') AS sic_code, coalesce(sic_description, '') AS sic_description`

// EntityByTicker looks up a company by ticker. Results are cached for the
// lifetime of the library.
func (myLibrary *Library) EntityByTicker(ctx context.Context, ticker string) (*data.Entity, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if entity, ok := myLibrary.entityCache.Get(ticker); ok {
		return entity, true, nil
	}

	entity := &data.Entity{}
	err := pgxscan.Get(ctx, myLibrary.Pool, entity, `SELECT `+entityColumns+` FROM companies WHERE upper(ticker) = $1 LIMIT 1`, ticker)
	if pgxscan.NotFound(err) {
		return nil, false, nil
	}

	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not lookup company by ticker")
		return nil, false, err
	}

	myLibrary.entityCache.Set(ticker, entity)

	return entity, true, nil
}

// EntitiesByTicker resolves each ticker to a company. Unknown tickers are
// logged and skipped.
func (myLibrary *Library) EntitiesByTicker(ctx context.Context, tickers []string) ([]*data.Entity, error) {
	entities := make([]*data.Entity, 0, len(tickers))

	for _, ticker := range tickers {
		entity, found, err := myLibrary.EntityByTicker(ctx, ticker)
		if err != nil {
			return nil, err
		}

		if !found {
			log.Warn().Str("Ticker", ticker).Msg("ticker not found in library")
			continue
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

// EntitiesBySICPrefix returns every company whose SIC code starts with one of prefixes
func (myLibrary *Library) EntitiesBySICPrefix(ctx context.Context, prefixes []string) ([]*data.Entity, error) {
	patterns := make([]string, len(prefixes))
	for idx, prefix := range prefixes {
		patterns[idx] = prefix + "%"
	}

	var entities []*data.Entity
	err := pgxscan.Select(ctx, myLibrary.Pool, &entities, `SELECT `+entityColumns+` FROM companies
WHERE sic_code LIKE ANY($1) ORDER BY cik`, patterns)
	if err != nil {
		log.Error().Err(err).Strs("Prefixes", prefixes).Msg("could not lookup companies by SIC code")
		return nil, err
	}

	return entities, nil
}
