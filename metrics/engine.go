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
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoPrice  = errors.New("no price available on or before date")
	ErrNoShares = errors.New("shares outstanding unknown")
)

// FactSource reads stored facts for a company
type FactSource interface {
	Facts(ctx context.Context, cik string, concepts []string) ([]*data.Fact, error)
}

// PriceSource reads split-adjusted daily prices for a company
type PriceSource interface {
	Prices(ctx context.Context, cik string, start, end time.Time) ([]*data.PriceObservation, error)
	LatestPrice(ctx context.Context, cik string, asOf time.Time) (*data.PriceObservation, bool, error)
}

// Engine computes point-in-time fundamentals and valuation ratios from
// committed facts and prices. It holds no state between calls.
type Engine struct {
	Facts  FactSource
	Prices PriceSource
}

func NewEngine(facts FactSource, prices PriceSource) *Engine {
	return &Engine{
		Facts:  facts,
		Prices: prices,
	}
}

// PointInTime returns the latest value of concept reported for a period
// ending on or before asOf
func (engine *Engine) PointInTime(ctx context.Context, cik, concept string, asOf time.Time) (float64, bool, error) {
	set, err := engine.factSet(ctx, cik, []string{concept})
	if err != nil {
		return 0, false, err
	}

	value, ok := set.PointInTime(concept, asOf)
	return value, ok, nil
}

// TTM returns the trailing twelve month value of concept as of asOf
func (engine *Engine) TTM(ctx context.Context, cik, concept string, asOf time.Time) (float64, bool, error) {
	set, err := engine.factSet(ctx, cik, []string{concept})
	if err != nil {
		return 0, false, err
	}

	value, ok := set.TTM(concept, asOf)
	return value, ok, nil
}

// Snapshot values the company as of asOf using the latest price on or before
// that date. Fundamentals are cut off at asOf, not at the price date.
func (engine *Engine) Snapshot(ctx context.Context, cik string, asOf time.Time) (*data.ValuationSnapshot, error) {
	price, ok, err := engine.Prices.LatestPrice(ctx, cik, asOf)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s as of %s", ErrNoPrice, cik, asOf.Format(time.DateOnly))
	}

	set, err := engine.factSet(ctx, cik, data.MetricConcepts())
	if err != nil {
		return nil, err
	}

	snapshot, ok := Compute(set, price, asOf)
	if !ok {
		return nil, fmt.Errorf("%w: %s as of %s", ErrNoShares, cik, asOf.Format(time.DateOnly))
	}

	return snapshot, nil
}

// DailySnapshots values the company on every price date between start and
// end (inclusive). Each day only sees facts with a period ending on or before
// that day. Days without a known share count are omitted.
func (engine *Engine) DailySnapshots(ctx context.Context, cik string, start, end time.Time) ([]*data.ValuationSnapshot, error) {
	prices, err := engine.Prices.Prices(ctx, cik, start, end)
	if err != nil {
		return nil, err
	}

	if len(prices) == 0 {
		return nil, nil
	}

	set, err := engine.factSet(ctx, cik, data.MetricConcepts())
	if err != nil {
		return nil, err
	}

	snapshots := make([]*data.ValuationSnapshot, 0, len(prices))
	for _, price := range prices {
		if snapshot, ok := Compute(set, price, price.Date); ok {
			snapshots = append(snapshots, snapshot)
		}
	}

	log.Debug().Str("CIK", cik).Int("Prices", len(prices)).Int("Snapshots", len(snapshots)).Msg("computed daily snapshots")

	return snapshots, nil
}

func (engine *Engine) factSet(ctx context.Context, cik string, concepts []string) (*FactSet, error) {
	facts, err := engine.Facts.Facts(ctx, cik, concepts)
	if err != nil {
		return nil, err
	}

	return NewFactSet(facts), nil
}

// Compute values a company on asOf at the given price. Fundamentals come from
// facts with a period ending on or before asOf; no per-share fact is used so
// the result is unaffected by stock splits. ok is false when shares
// outstanding cannot be determined.
func Compute(set *FactSet, price *data.PriceObservation, asOf time.Time) (*data.ValuationSnapshot, bool) {
	asOf = startOfDay(asOf)

	var shares float64
	if price.SharesOutstanding != nil && *price.SharesOutstanding > 0 {
		shares = *price.SharesOutstanding
	} else if value, ok := set.FirstPointInTime(data.SharesConcepts, asOf); ok && value > 0 {
		shares = value
	} else {
		return nil, false
	}

	longTermDebt, _ := set.FirstPointInTime(data.LongTermDebtConcepts, asOf)
	shortTermDebt, _ := set.PointInTime(data.ConceptShortTermBorrowings, asOf)
	cash, _ := set.FirstPointInTime(data.CashConcepts, asOf)

	snapshot := &data.ValuationSnapshot{
		CIK:               price.CIK,
		Date:              asOf,
		Price:             price.AdjClose,
		SharesOutstanding: shares,
		MarketCap:         price.AdjClose * shares,
		TotalDebt:         longTermDebt + shortTermDebt,
		Cash:              cash,
	}
	snapshot.EnterpriseValue = snapshot.MarketCap + snapshot.TotalDebt - snapshot.Cash

	snapshot.RevenueTTM = optional(set.FirstTTM(data.RevenueConcepts, asOf))
	snapshot.NetIncomeTTM = optional(set.TTM(data.ConceptNetIncome, asOf))
	snapshot.GrossProfitTTM = optional(set.TTM(data.ConceptGrossProfit, asOf))
	snapshot.OperatingIncomeTTM = optional(set.TTM(data.ConceptOperatingIncome, asOf))
	snapshot.EBITDATTM = ebitda(set, asOf)
	snapshot.StockholdersEquity = optional(set.FirstPointInTime(data.EquityConcepts, asOf))
	snapshot.TotalAssets = optional(set.PointInTime(data.ConceptAssets, asOf))

	marketCap := &snapshot.MarketCap
	ev := &snapshot.EnterpriseValue

	snapshot.PE = Ratio(marketCap, snapshot.NetIncomeTTM)
	snapshot.PS = Ratio(marketCap, snapshot.RevenueTTM)
	snapshot.PB = Ratio(marketCap, snapshot.StockholdersEquity)
	snapshot.EVToRevenue = Ratio(ev, snapshot.RevenueTTM)
	snapshot.EVToEBITDA = Ratio(ev, snapshot.EBITDATTM)
	snapshot.GrossMargin = Ratio(snapshot.GrossProfitTTM, snapshot.RevenueTTM)
	snapshot.OperatingMargin = Ratio(snapshot.OperatingIncomeTTM, snapshot.RevenueTTM)
	snapshot.NetMargin = Ratio(snapshot.NetIncomeTTM, snapshot.RevenueTTM)
	snapshot.ROE = Ratio(snapshot.NetIncomeTTM, snapshot.StockholdersEquity)
	snapshot.ROA = Ratio(snapshot.NetIncomeTTM, snapshot.TotalAssets)

	return snapshot, true
}

// Ratio divides numerator by denominator. The result is nil when either
// side is missing or the denominator is not positive.
func Ratio(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator <= 0 {
		return nil
	}

	value := *numerator / *denominator
	return &value
}

// ebitda prefers a reported EBITDA figure and otherwise adds depreciation and
// amortization back to operating income
func ebitda(set *FactSet, asOf time.Time) *float64 {
	if value, ok := set.TTM(data.ConceptEBITDA, asOf); ok {
		return &value
	}

	operatingIncome, ok := set.TTM(data.ConceptOperatingIncome, asOf)
	if !ok {
		return nil
	}

	depreciation, ok := set.FirstTTM(data.DepreciationConcepts, asOf)
	if !ok {
		return nil
	}

	value := operatingIncome + depreciation
	return &value
}

func optional(value float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &value
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
