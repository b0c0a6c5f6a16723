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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PriceObservation is a daily split-adjusted closing price. Shares
// outstanding are optional and are filled in from reported facts when absent.
type PriceObservation struct {
	CIK               string    `db:"cik"`
	Date              time.Time `db:"price_date"`
	AdjClose          float64   `db:"adj_close"`
	SharesOutstanding *float64  `db:"shares_outstanding"`
}

// PriceRecord is one row of a price CSV file
type PriceRecord struct {
	Date              string   `csv:"date"`
	AdjClose          float64  `csv:"adj_close"`
	SharesOutstanding *float64 `csv:"shares_outstanding,omitempty"`
}

// Observation converts the record to a price for cik
func (record *PriceRecord) Observation(cik string) (*PriceObservation, error) {
	date, err := time.Parse(time.DateOnly, record.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid price date %q: %w", record.Date, err)
	}

	if record.AdjClose <= 0 {
		return nil, fmt.Errorf("invalid adjusted close %f on %s", record.AdjClose, record.Date)
	}

	return &PriceObservation{
		CIK:               cik,
		Date:              date,
		AdjClose:          record.AdjClose,
		SharesOutstanding: record.SharesOutstanding,
	}, nil
}

// SaveDB writes the price to the stock_prices table, replacing any price
// already stored for the same company and day
func (price *PriceObservation) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO stock_prices (
		"cik",
		"price_date",
		"adj_close",
		"shares_outstanding"
	) VALUES (
		$1, $2, $3, $4
	) ON CONFLICT ON CONSTRAINT stock_prices_pkey DO UPDATE SET
		adj_close = EXCLUDED.adj_close,
		shares_outstanding = COALESCE(EXCLUDED.shares_outstanding, stock_prices.shares_outstanding)`

	_, err := tx.Exec(ctx, sql, price.CIK, price.Date, price.AdjClose, price.SharesOutstanding)
	if err != nil {
		log.Error().Err(err).Str("CIK", price.CIK).Time("Date", price.Date).Msg("save price to DB failed")
	}

	return err
}
