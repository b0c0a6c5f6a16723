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
package bundle

import (
	"context"
	"sort"
	"time"

	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// SnapshotSource computes the daily valuation of a single company
type SnapshotSource interface {
	DailySnapshots(ctx context.Context, cik string, start, end time.Time) ([]*data.ValuationSnapshot, error)
}

// Snapshot is the valuation of a bundle on one day. Ratios are weighted by
// size: each is the sum of the numerators over the sum of the denominators
// of the companies that report both sides.
type Snapshot struct {
	Date         time.Time `json:"date" csv:"date"`
	CompanyCount int       `json:"company_count" csv:"company_count"`

	TotalMarketCap       float64 `json:"total_market_cap" csv:"total_market_cap"`
	TotalEnterpriseValue float64 `json:"total_enterprise_value" csv:"total_enterprise_value"`
	TotalNetIncome       float64 `json:"total_net_income" csv:"total_net_income"`
	TotalRevenue         float64 `json:"total_revenue" csv:"total_revenue"`
	TotalEBITDA          float64 `json:"total_ebitda" csv:"total_ebitda"`

	PE              *float64 `json:"pe_ratio,omitempty" csv:"pe_ratio"`
	PS              *float64 `json:"ps_ratio,omitempty" csv:"ps_ratio"`
	PB              *float64 `json:"pb_ratio,omitempty" csv:"pb_ratio"`
	EVToRevenue     *float64 `json:"ev_revenue,omitempty" csv:"ev_revenue"`
	EVToEBITDA      *float64 `json:"ev_ebitda,omitempty" csv:"ev_ebitda"`
	GrossMargin     *float64 `json:"gross_margin,omitempty" csv:"gross_margin"`
	OperatingMargin *float64 `json:"operating_margin,omitempty" csv:"operating_margin"`
	NetMargin       *float64 `json:"net_margin,omitempty" csv:"net_margin"`
}

// Aggregator combines the daily valuations of many companies
type Aggregator struct {
	Source      SnapshotSource
	Concurrency int
}

func NewAggregator(source SnapshotSource) *Aggregator {
	return &Aggregator{
		Source:      source,
		Concurrency: DefaultConcurrency,
	}
}

// weightedSum accumulates one aggregate ratio
type weightedSum struct {
	numerator   float64
	denominator float64
}

func (sum *weightedSum) add(numerator float64, denominator *float64) {
	if denominator == nil {
		return
	}

	sum.numerator += numerator
	sum.denominator += *denominator
}

func (sum *weightedSum) addOptional(numerator, denominator *float64) {
	if numerator == nil {
		return
	}

	sum.add(*numerator, denominator)
}

func (sum *weightedSum) ratio() *float64 {
	if sum.denominator <= 0 {
		return nil
	}

	value := sum.numerator / sum.denominator
	return &value
}

type day struct {
	snapshot *Snapshot

	pe, ps, pb, evRevenue, evEBITDA weightedSum
	gross, operating, net           weightedSum
}

func (d *day) add(valuation *data.ValuationSnapshot) {
	snap := d.snapshot
	snap.CompanyCount++
	snap.TotalMarketCap += valuation.MarketCap
	snap.TotalEnterpriseValue += valuation.EnterpriseValue

	if valuation.NetIncomeTTM != nil {
		snap.TotalNetIncome += *valuation.NetIncomeTTM
	}

	if valuation.RevenueTTM != nil {
		snap.TotalRevenue += *valuation.RevenueTTM
	}

	if valuation.EBITDATTM != nil {
		snap.TotalEBITDA += *valuation.EBITDATTM
	}

	d.pe.add(valuation.MarketCap, valuation.NetIncomeTTM)
	d.ps.add(valuation.MarketCap, valuation.RevenueTTM)
	d.pb.add(valuation.MarketCap, valuation.StockholdersEquity)
	d.evRevenue.add(valuation.EnterpriseValue, valuation.RevenueTTM)
	d.evEBITDA.add(valuation.EnterpriseValue, valuation.EBITDATTM)
	d.gross.addOptional(valuation.GrossProfitTTM, valuation.RevenueTTM)
	d.operating.addOptional(valuation.OperatingIncomeTTM, valuation.RevenueTTM)
	d.net.addOptional(valuation.NetIncomeTTM, valuation.RevenueTTM)
}

func (d *day) finish() *Snapshot {
	snap := d.snapshot
	snap.PE = d.pe.ratio()
	snap.PS = d.ps.ratio()
	snap.PB = d.pb.ratio()
	snap.EVToRevenue = d.evRevenue.ratio()
	snap.EVToEBITDA = d.evEBITDA.ratio()
	snap.GrossMargin = d.gross.ratio()
	snap.OperatingMargin = d.operating.ratio()
	snap.NetMargin = d.net.ratio()
	return snap
}

// Aggregate computes the daily valuation of every entity between start and
// end and folds them into one snapshot per day. A company contributes to a
// day only if it has a valuation on that day.
func (aggregator *Aggregator) Aggregate(ctx context.Context, entities []*data.Entity, start, end time.Time) ([]*Snapshot, error) {
	series := make([][]*data.ValuationSnapshot, len(entities))

	concurrency := aggregator.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for idx, entity := range entities {
		idx, entity := idx, entity
		g.Go(func() error {
			snapshots, err := aggregator.Source.DailySnapshots(gctx, entity.CIK, start, end)
			if err != nil {
				log.Error().Err(err).Object("Entity", entity).Msg("could not compute daily snapshots")
				return err
			}

			series[idx] = snapshots
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Fold(series), nil
}

// Fold combines per-company daily valuations into bundle snapshots ordered by date
func Fold(series [][]*data.ValuationSnapshot) []*Snapshot {
	days := make(map[time.Time]*day)

	for _, snapshots := range series {
		for _, valuation := range snapshots {
			key := valuation.Date.UTC().Truncate(24 * time.Hour)

			current, ok := days[key]
			if !ok {
				current = &day{snapshot: &Snapshot{Date: key}}
				days[key] = current
			}

			current.add(valuation)
		}
	}

	result := make([]*Snapshot, 0, len(days))
	for _, current := range days {
		result = append(result, current.finish())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result
}
