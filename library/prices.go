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
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

// Prices returns the daily prices of cik between start and end inclusive,
// oldest first
func (myLibrary *Library) Prices(ctx context.Context, cik string, start, end time.Time) ([]*data.PriceObservation, error) {
	var prices []*data.PriceObservation

	err := pgxscan.Select(ctx, myLibrary.Pool, &prices, `SELECT cik, price_date, adj_close, shares_outstanding
FROM stock_prices WHERE cik = $1 AND price_date BETWEEN $2 AND $3 ORDER BY price_date`, cik, start, end)
	if err != nil {
		log.Error().Err(err).Str("CIK", cik).Time("Start", start).Time("End", end).Msg("could not load prices")
		return nil, err
	}

	return prices, nil
}

// LatestPrice returns the most recent price of cik on or before asOf
func (myLibrary *Library) LatestPrice(ctx context.Context, cik string, asOf time.Time) (*data.PriceObservation, bool, error) {
	price := &data.PriceObservation{}

	err := pgxscan.Get(ctx, myLibrary.Pool, price, `SELECT cik, price_date, adj_close, shares_outstanding
FROM stock_prices WHERE cik = $1 AND price_date <= $2 ORDER BY price_date DESC LIMIT 1`, cik, asOf)
	if pgxscan.NotFound(err) {
		return nil, false, nil
	}

	if err != nil {
		log.Error().Err(err).Str("CIK", cik).Time("AsOf", asOf).Msg("could not load latest price")
		return nil, false, err
	}

	return price, true, nil
}

// SavePrices writes daily prices in a single transaction
func (myLibrary *Library) SavePrices(ctx context.Context, prices []*data.PriceObservation) (err error) {
	if len(prices) == 0 {
		return nil
	}

	tx, err := myLibrary.Pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			rollback(ctx, tx, "prices")
			panic(r)
		}

		if err != nil {
			rollback(ctx, tx, "prices")
		}
	}()

	for _, price := range prices {
		if err = price.SaveDB(ctx, tx); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
