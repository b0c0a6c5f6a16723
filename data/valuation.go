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

// ValuationSnapshot holds the valuation of a company on a single day. It is
// derived entirely from facts and prices and can be recomputed at any time.
// Nil pointers mark values that could not be computed.
type ValuationSnapshot struct {
	CIK  string    `json:"cik" csv:"cik"`
	Date time.Time `json:"date" csv:"date"`

	Price             float64 `json:"price" csv:"price"`
	SharesOutstanding float64 `json:"shares_outstanding" csv:"shares_outstanding"`
	MarketCap         float64 `json:"market_cap" csv:"market_cap"`
	TotalDebt         float64 `json:"total_debt" csv:"total_debt"`
	Cash              float64 `json:"cash" csv:"cash"`
	EnterpriseValue   float64 `json:"enterprise_value" csv:"enterprise_value"`

	RevenueTTM         *float64 `json:"revenue_ttm,omitempty" csv:"revenue_ttm"`
	NetIncomeTTM       *float64 `json:"net_income_ttm,omitempty" csv:"net_income_ttm"`
	GrossProfitTTM     *float64 `json:"gross_profit_ttm,omitempty" csv:"gross_profit_ttm"`
	OperatingIncomeTTM *float64 `json:"operating_income_ttm,omitempty" csv:"operating_income_ttm"`
	EBITDATTM          *float64 `json:"ebitda_ttm,omitempty" csv:"ebitda_ttm"`
	StockholdersEquity *float64 `json:"stockholders_equity,omitempty" csv:"stockholders_equity"`
	TotalAssets        *float64 `json:"total_assets,omitempty" csv:"total_assets"`

	PE              *float64 `json:"pe_ratio,omitempty" csv:"pe_ratio"`
	PS              *float64 `json:"ps_ratio,omitempty" csv:"ps_ratio"`
	PB              *float64 `json:"pb_ratio,omitempty" csv:"pb_ratio"`
	EVToRevenue     *float64 `json:"ev_revenue,omitempty" csv:"ev_revenue"`
	EVToEBITDA      *float64 `json:"ev_ebitda,omitempty" csv:"ev_ebitda"`
	GrossMargin     *float64 `json:"gross_margin,omitempty" csv:"gross_margin"`
	OperatingMargin *float64 `json:"operating_margin,omitempty" csv:"operating_margin"`
	NetMargin       *float64 `json:"net_margin,omitempty" csv:"net_margin"`
	ROE             *float64 `json:"roe,omitempty" csv:"roe"`
	ROA             *float64 `json:"roa,omitempty" csv:"roa"`
}

// SaveDB writes the snapshot to the valuation_metrics table, replacing any
// snapshot previously computed for the same company and day
func (snapshot *ValuationSnapshot) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO valuation_metrics (
		"cik",
		"event_date",
		"price",
		"shares_outstanding",
		"market_cap",
		"enterprise_value",
		"revenue_ttm",
		"net_income_ttm",
		"ebitda_ttm",
		"pe_ratio",
		"ps_ratio",
		"pb_ratio",
		"ev_revenue",
		"ev_ebitda",
		"gross_margin",
		"operating_margin",
		"net_margin",
		"roe",
		"roa"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
	) ON CONFLICT ON CONSTRAINT valuation_metrics_pkey DO UPDATE SET
		price = EXCLUDED.price,
		shares_outstanding = EXCLUDED.shares_outstanding,
		market_cap = EXCLUDED.market_cap,
		enterprise_value = EXCLUDED.enterprise_value,
		revenue_ttm = EXCLUDED.revenue_ttm,
		net_income_ttm = EXCLUDED.net_income_ttm,
		ebitda_ttm = EXCLUDED.ebitda_ttm,
		pe_ratio = EXCLUDED.pe_ratio,
		ps_ratio = EXCLUDED.ps_ratio,
		pb_ratio = EXCLUDED.pb_ratio,
		ev_revenue = EXCLUDED.ev_revenue,
		ev_ebitda = EXCLUDED.ev_ebitda,
		gross_margin = EXCLUDED.gross_margin,
		operating_margin = EXCLUDED.operating_margin,
		net_margin = EXCLUDED.net_margin,
		roe = EXCLUDED.roe,
		roa = EXCLUDED.roa`

	_, err := tx.Exec(ctx, sql,
		snapshot.CIK,
		snapshot.Date,
		snapshot.Price,
		snapshot.SharesOutstanding,
		snapshot.MarketCap,
		snapshot.EnterpriseValue,
		snapshot.RevenueTTM,
		snapshot.NetIncomeTTM,
		snapshot.EBITDATTM,
		snapshot.PE,
		snapshot.PS,
		snapshot.PB,
		snapshot.EVToRevenue,
		snapshot.EVToEBITDA,
		snapshot.GrossMargin,
		snapshot.OperatingMargin,
		snapshot.NetMargin,
		snapshot.ROE,
		snapshot.ROA,
	)

	if err != nil {
		log.Error().Err(err).Object("Snapshot", snapshot).Msg("save valuation snapshot to DB failed")
	}

	return err
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (snapshot *ValuationSnapshot) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CIK", snapshot.CIK)
	e.Time("Date", snapshot.Date)
	e.Float64("Price", snapshot.Price)
	e.Float64("MarketCap", snapshot.MarketCap)
	e.Float64("EV", snapshot.EnterpriseValue)

	if snapshot.PE != nil {
		e.Float64("PE", *snapshot.PE)
	}

	if snapshot.EVToEBITDA != nil {
		e.Float64("EVtoEBITDA", *snapshot.EVToEBITDA)
	}
}
