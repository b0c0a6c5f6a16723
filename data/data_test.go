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
package data_test

import (
	"time"

	"github.com/gocarina/gocsv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/data"
)

var _ = Describe("Fact", func() {
	It("pads central index keys to ten digits", func() {
		Expect(data.PadCIK("320193")).To(Equal("0000320193"))
		Expect(data.PadCIK("0000320193")).To(Equal("0000320193"))
		Expect(data.PadCIK("")).To(Equal(""))
		Expect(data.CIKFromInt(1045810)).To(Equal("0001045810"))
	})

	It("builds filing archive URLs", func() {
		Expect(data.FilingURL("0000320193", "0000320193-23-000106")).
			To(Equal("https://www.sec.gov/Archives/edgar/data/320193/000032019323000106"))
	})

	It("identifies facts by company, concept, period end, and fiscal period", func() {
		end := time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)
		annual := &data.Fact{CIK: "1", Concept: "Revenues", PeriodEnd: end, FiscalPeriod: data.Annual, Value: 1}
		restated := &data.Fact{CIK: "1", Concept: "Revenues", PeriodEnd: end.Add(5 * time.Hour), FiscalPeriod: data.Annual, Value: 2}
		quarter := &data.Fact{CIK: "1", Concept: "Revenues", PeriodEnd: end, FiscalPeriod: data.Q4}

		Expect(annual.Key()).To(Equal(restated.Key()))
		Expect(annual.Key()).ToNot(Equal(quarter.Key()))
		Expect(data.Q3.IsQuarter()).To(BeTrue())
		Expect(data.Annual.IsQuarter()).To(BeFalse())
	})
})

var _ = Describe("Concepts", func() {
	It("ingests every concept the valuation calculations read by default", func() {
		allowlist := data.DefaultConcepts()
		for _, concept := range data.MetricConcepts() {
			Expect(allowlist.Contains(concept)).To(BeTrue(), concept)
		}
		Expect(allowlist.Contains(data.ConceptEBITDA)).To(BeTrue())
	})
})

var _ = Describe("ConflictPolicy", func() {
	DescribeTable("parses policy names",
		func(name string, expected data.ConflictPolicy) {
			policy, err := data.ParseConflictPolicy(name)
			Expect(err).ToNot(HaveOccurred())
			Expect(policy).To(Equal(expected))
			Expect(data.ParseConflictPolicy(policy.String())).To(Equal(expected))
		},
		Entry("default", "", data.UpdateOnConflict),
		Entry("update", "update", data.UpdateOnConflict),
		Entry("skip", "skip", data.SkipOnConflict),
	)

	It("rejects unknown policies", func() {
		_, err := data.ParseConflictPolicy("merge")
		Expect(err).To(MatchError(data.ErrUnknownPolicy))
	})
})

var _ = Describe("Entity", func() {
	It("only overwrites fields that are set", func() {
		entity := &data.Entity{CIK: "0000320193", Name: "Apple", Ticker: "AAPL"}
		entity.Merge(&data.Entity{Name: "Apple Inc.", SICCode: "3571"})
		entity.Merge(nil)

		Expect(entity.Name).To(Equal("Apple Inc."))
		Expect(entity.Ticker).To(Equal("AAPL"))
		Expect(entity.SICCode).To(Equal("3571"))
	})
})

var _ = Describe("PriceRecord", func() {
	It("parses price CSV files", func() {
		records := []*data.PriceRecord{}
		err := gocsv.UnmarshalString("date,adj_close,shares_outstanding\n2024-03-01,179.66,15400000000\n2024-03-04,175.10,\n", &records)
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(2))

		price, err := records[0].Observation("0000320193")
		Expect(err).ToNot(HaveOccurred())
		Expect(price.Date).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		Expect(price.AdjClose).To(Equal(179.66))
		Expect(*price.SharesOutstanding).To(Equal(15.4e9))
	})

	It("rejects rows that cannot be priced", func() {
		_, err := (&data.PriceRecord{Date: "03/01/2024", AdjClose: 10}).Observation("1")
		Expect(err).To(HaveOccurred())

		_, err = (&data.PriceRecord{Date: "2024-03-01", AdjClose: 0}).Observation("1")
		Expect(err).To(HaveOccurred())
	})
})
