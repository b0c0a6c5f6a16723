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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrUnknownMetric = errors.New("unknown bundle metric")

// Metric names one column of a bundle Snapshot
type Metric string

const (
	MetricPE                   Metric = "pe_ratio"
	MetricPS                   Metric = "ps_ratio"
	MetricPB                   Metric = "pb_ratio"
	MetricEVToRevenue          Metric = "ev_revenue"
	MetricEVToEBITDA           Metric = "ev_ebitda"
	MetricGrossMargin          Metric = "gross_margin"
	MetricOperatingMargin      Metric = "operating_margin"
	MetricNetMargin            Metric = "net_margin"
	MetricTotalMarketCap       Metric = "total_market_cap"
	MetricTotalEnterpriseValue Metric = "total_enterprise_value"
	MetricCompanyCount         Metric = "company_count"
)

// Metrics lists every metric a comparison can be drawn on
func Metrics() []Metric {
	return []Metric{
		MetricPE, MetricPS, MetricPB, MetricEVToRevenue, MetricEVToEBITDA,
		MetricGrossMargin, MetricOperatingMargin, MetricNetMargin,
		MetricTotalMarketCap, MetricTotalEnterpriseValue, MetricCompanyCount,
	}
}

// ParseMetric accepts a metric name, ignoring case and surrounding space
func ParseMetric(name string) (Metric, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, metric := range Metrics() {
		if string(metric) == name {
			return metric, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// Value reads the metric from a bundle snapshot; nil when it is absent
func (metric Metric) Value(snapshot *Snapshot) *float64 {
	switch metric {
	case MetricPE:
		return snapshot.PE
	case MetricPS:
		return snapshot.PS
	case MetricPB:
		return snapshot.PB
	case MetricEVToRevenue:
		return snapshot.EVToRevenue
	case MetricEVToEBITDA:
		return snapshot.EVToEBITDA
	case MetricGrossMargin:
		return snapshot.GrossMargin
	case MetricOperatingMargin:
		return snapshot.OperatingMargin
	case MetricNetMargin:
		return snapshot.NetMargin
	case MetricTotalMarketCap:
		value := snapshot.TotalMarketCap
		return &value
	case MetricTotalEnterpriseValue:
		value := snapshot.TotalEnterpriseValue
		return &value
	case MetricCompanyCount:
		value := float64(snapshot.CompanyCount)
		return &value
	default:
		return nil
	}
}

// ComparisonRow holds the metric of every compared bundle on one day. Values
// line up with Comparison.Bundles; a nil value means the bundle had no
// value that day.
type ComparisonRow struct {
	Date   time.Time
	Values []*float64
}

// Comparison is one metric of several bundles, one row per day
type Comparison struct {
	Metric  Metric
	Bundles []string
	Rows    []*ComparisonRow
}

// Compare aggregates each bundle over [start, end] and lines the chosen
// metric up by day. Bundles are aggregated one after another; the companies
// of each bundle are valued in parallel.
func (aggregator *Aggregator) Compare(ctx context.Context, lookup EntityLookup, bundles []*Bundle, start, end time.Time, metric Metric) (*Comparison, error) {
	comparison := &Comparison{
		Metric:  metric,
		Bundles: make([]string, len(bundles)),
	}

	rows := make(map[time.Time]*ComparisonRow)

	for idx, bundle := range bundles {
		comparison.Bundles[idx] = bundle.Name

		entities, err := bundle.Entities(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("resolve bundle %s: %w", bundle.Name, err)
		}

		if len(entities) == 0 {
			log.Warn().Str("Bundle", bundle.Name).Msg("none of the bundle's companies are in the library")
			continue
		}

		snapshots, err := aggregator.Aggregate(ctx, entities, start, end)
		if err != nil {
			return nil, fmt.Errorf("aggregate bundle %s: %w", bundle.Name, err)
		}

		for _, snapshot := range snapshots {
			row, ok := rows[snapshot.Date]
			if !ok {
				row = &ComparisonRow{
					Date:   snapshot.Date,
					Values: make([]*float64, len(bundles)),
				}
				rows[snapshot.Date] = row
			}

			row.Values[idx] = metric.Value(snapshot)
		}
	}

	comparison.Rows = make([]*ComparisonRow, 0, len(rows))
	for _, row := range rows {
		comparison.Rows = append(comparison.Rows, row)
	}

	sort.Slice(comparison.Rows, func(i, j int) bool {
		return comparison.Rows[i].Date.Before(comparison.Rows[j].Date)
	})

	return comparison, nil
}

// Records renders the comparison as CSV records: a header of "date" and the
// bundle names, then one record per day with empty cells for missing values
func (comparison *Comparison) Records() [][]string {
	records := make([][]string, 0, len(comparison.Rows)+1)

	header := make([]string, 0, len(comparison.Bundles)+1)
	header = append(header, "date")
	header = append(header, comparison.Bundles...)
	records = append(records, header)

	for _, row := range comparison.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, row.Date.Format(time.DateOnly))
		for _, value := range row.Values {
			if value == nil {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(*value, 'f', -1, 64))
		}
		records = append(records, record)
	}

	return records
}
