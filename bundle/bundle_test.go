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
package bundle_test

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/bundle"
	"github.com/penny-vault/pvfacts/data"
)

type seriesSource struct {
	series map[string][]*data.ValuationSnapshot
	err    error
}

func (source *seriesSource) DailySnapshots(_ context.Context, cik string, _, _ time.Time) ([]*data.ValuationSnapshot, error) {
	if source.err != nil {
		return nil, source.err
	}
	return source.series[cik], nil
}

type lookup struct {
	entities []*data.Entity
}

func (l *lookup) EntitiesByTicker(_ context.Context, tickers []string) ([]*data.Entity, error) {
	var out []*data.Entity
	for _, ticker := range tickers {
		for _, entity := range l.entities {
			if entity.Ticker == ticker {
				out = append(out, entity)
			}
		}
	}
	return out, nil
}

func (l *lookup) EntitiesBySICPrefix(_ context.Context, prefixes []string) ([]*data.Entity, error) {
	var out []*data.Entity
	for _, entity := range l.entities {
		for _, prefix := range prefixes {
			if strings.HasPrefix(entity.SICCode, prefix) {
				out = append(out, entity)
				break
			}
		}
	}
	return out, nil
}

func ptr(value float64) *float64 {
	return &value
}

var (
	dayOne = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	dayTwo = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
)

func valuation(cik string, date time.Time, marketCap float64, netIncome, revenue *float64) *data.ValuationSnapshot {
	return &data.ValuationSnapshot{
		CIK:             cik,
		Date:            date,
		MarketCap:       marketCap,
		EnterpriseValue: marketCap,
		NetIncomeTTM:    netIncome,
		RevenueTTM:      revenue,
	}
}

var _ = Describe("Aggregator", func() {
	var (
		source     *seriesSource
		aggregator *bundle.Aggregator
		entities   []*data.Entity
	)

	BeforeEach(func() {
		entities = []*data.Entity{{CIK: "A", Ticker: "AAA"}, {CIK: "B", Ticker: "BBB"}}
		source = &seriesSource{series: map[string][]*data.ValuationSnapshot{
			"A": {
				valuation("A", dayOne, 100, ptr(10), ptr(50)),
				valuation("A", dayTwo, 120, ptr(10), ptr(50)),
			},
			"B": {
				valuation("B", dayOne, 10, ptr(0.5), ptr(20)),
			},
		}}
		aggregator = bundle.NewAggregator(source)
	})

	It("weights ratios by company size", func() {
		snapshots, err := aggregator.Aggregate(context.Background(), entities, dayOne, dayTwo)
		Expect(err).ToNot(HaveOccurred())
		Expect(snapshots).To(HaveLen(2))

		first := snapshots[0]
		Expect(first.Date).To(Equal(dayOne))
		Expect(first.CompanyCount).To(Equal(2))
		Expect(first.TotalMarketCap).To(Equal(110.0))
		Expect(*first.PE).To(BeNumerically("~", 110.0/10.5, 1e-9))
		Expect(*first.PE).ToNot(BeNumerically("~", 15, 1e-3))
		Expect(*first.PS).To(BeNumerically("~", 110.0/70.0, 1e-9))
		Expect(*first.NetMargin).To(BeNumerically("~", 10.5/70.0, 1e-9))
	})

	It("excludes companies without data for a day", func() {
		snapshots, err := aggregator.Aggregate(context.Background(), entities, dayOne, dayTwo)
		Expect(err).ToNot(HaveOccurred())

		second := snapshots[1]
		Expect(second.Date).To(Equal(dayTwo))
		Expect(second.CompanyCount).To(Equal(1))
		Expect(*second.PE).To(BeNumerically("~", 12, 1e-9))
	})

	It("only sums companies reporting both sides of a ratio", func() {
		source.series["B"] = []*data.ValuationSnapshot{valuation("B", dayOne, 10, nil, ptr(20))}

		snapshots, err := aggregator.Aggregate(context.Background(), entities, dayOne, dayOne)
		Expect(err).ToNot(HaveOccurred())

		first := snapshots[0]
		Expect(first.CompanyCount).To(Equal(2))
		Expect(*first.PE).To(BeNumerically("~", 10, 1e-9))
		Expect(*first.PS).To(BeNumerically("~", 110.0/70.0, 1e-9))
	})

	It("leaves a ratio absent when the denominators do not sum to a positive value", func() {
		source.series["A"] = []*data.ValuationSnapshot{valuation("A", dayOne, 100, ptr(-10), ptr(50))}
		source.series["B"] = []*data.ValuationSnapshot{valuation("B", dayOne, 10, ptr(5), ptr(20))}

		snapshots, err := aggregator.Aggregate(context.Background(), entities, dayOne, dayOne)
		Expect(err).ToNot(HaveOccurred())
		Expect(snapshots[0].PE).To(BeNil())
		Expect(snapshots[0].EVToEBITDA).To(BeNil())
		Expect(snapshots[0].PS).ToNot(BeNil())
	})

	It("fails when a company cannot be valued", func() {
		source.err = errors.New("database unavailable")

		_, err := aggregator.Aggregate(context.Background(), entities, dayOne, dayTwo)
		Expect(err).To(MatchError("database unavailable"))
	})

	It("returns nothing for an empty bundle", func() {
		snapshots, err := aggregator.Aggregate(context.Background(), nil, dayOne, dayTwo)
		Expect(err).ToNot(HaveOccurred())
		Expect(snapshots).To(BeEmpty())
	})
})

var _ = Describe("Bundles", func() {
	var library *lookup

	BeforeEach(func() {
		library = &lookup{entities: []*data.Entity{
			{CIK: "1", Ticker: "AAPL", SICCode: "3571"},
			{CIK: "2", Ticker: "MSFT", SICCode: "7372"},
			{CIK: "3", Ticker: "JPM", SICCode: "6021"},
			{CIK: "4", Ticker: "NFLX", SICCode: "7841"},
		}}
	})

	It("finds bundles by name or slug", func() {
		b, ok := bundle.Find("magnificent 7")
		Expect(ok).To(BeTrue())
		Expect(b.Tickers).To(ContainElement("NVDA"))

		b, ok = bundle.Find("ev-and-clean-energy")
		Expect(ok).To(BeTrue())
		Expect(b.Name).To(Equal("EV & Clean Energy"))

		_, ok = bundle.Find("Meme Stocks")
		Expect(ok).To(BeFalse())
	})

	It("resolves premade bundles by ticker", func() {
		b, entities, err := bundle.Resolve(context.Background(), library, "FAANG")
		Expect(err).ToNot(HaveOccurred())
		Expect(b.IsSector()).To(BeFalse())
		Expect(entities).To(HaveLen(2))
		Expect(entities[0].Ticker).To(Equal("AAPL"))
		Expect(entities[1].Ticker).To(Equal("NFLX"))
	})

	It("resolves sectors by SIC code prefix", func() {
		b, entities, err := bundle.Resolve(context.Background(), library, "Technology")
		Expect(err).ToNot(HaveOccurred())
		Expect(b.IsSector()).To(BeTrue())
		Expect(entities).To(HaveLen(2))

		_, entities, err = bundle.Resolve(context.Background(), library, "financial")
		Expect(err).ToNot(HaveOccurred())
		Expect(entities).To(HaveLen(1))
		Expect(entities[0].Ticker).To(Equal("JPM"))
	})

	It("rejects unknown bundles", func() {
		_, _, err := bundle.Resolve(context.Background(), library, "nope")
		Expect(err).To(MatchError(bundle.ErrUnknownBundle))
	})

	It("normalizes custom ticker lists", func() {
		b := bundle.Custom("Mine", []string{" aapl", "", "msft "})
		Expect(b.Tickers).To(Equal([]string{"AAPL", "MSFT"}))
		Expect(b.Slug()).To(Equal("mine"))
	})
})
