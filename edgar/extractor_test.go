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
package edgar_test

import (
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/edgar"
)

const companyFactsJSON = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {
    "dei": {
      "EntityCommonStockSharesOutstanding": {
        "label": "Entity Common Stock, Shares Outstanding",
        "units": {
          "shares": [
            {"end": "2023-10-20", "val": 15550061000, "accn": "0000320193-23-000106", "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03", "frame": "CY2023Q3I"}
          ]
        }
      }
    },
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "units": {
          "USD": [
            {"start": "2023-07-02", "end": "2023-09-30", "val": 89498000000, "accn": "0000320193-23-000106", "fy": 2023, "fp": "Q4", "form": "10-K", "filed": "2023-11-03"},
            {"start": "2022-09-25", "end": "2023-09-30", "val": 383285000000, "accn": "0000320193-23-000106", "fy": 2023, "fp": "FY", "form": "10-K", "filed": "2023-11-03", "frame": "CY2023"},
            {"start": "2005-01-01", "end": "2005-12-31", "val": 1000, "fy": 2005, "fp": "FY"},
            {"start": "2023-01-01", "end": "not-a-date", "val": 5},
            {"start": "2023-01-01", "end": "2023-03-31", "val": null, "fy": 2023, "fp": "Q2"}
          ]
        }
      },
      "Assets": {
        "label": "Assets",
        "units": {
          "USD": [
            {"end": "2023-09-30", "val": 352583000000}
          ]
        }
      },
      "SomethingObscure": {
        "label": "Not tracked",
        "units": {
          "USD": [
            {"end": "2023-09-30", "val": 1}
          ]
        }
      }
    }
  }
}`

var _ = Describe("Extractor", func() {
	var facts *edgar.CompanyFacts

	BeforeEach(func() {
		facts = &edgar.CompanyFacts{}
		Expect(json.Unmarshal([]byte(companyFactsJSON), facts)).To(Succeed())
	})

	It("yields only allowlisted, well formed facts within the year window", func() {
		extractor := edgar.NewExtractor("320193", facts, nil, 2010)
		records := extractor.Collect()

		Expect(records).To(HaveLen(4))
		Expect(extractor.Skipped()).To(Equal(1))

		concepts := make([]string, len(records))
		for idx, record := range records {
			concepts[idx] = record.Concept
			Expect(record.CIK).To(Equal("0000320193"))
		}

		Expect(concepts).To(Equal([]string{
			"EntityCommonStockSharesOutstanding",
			"Assets",
			"Revenues",
			"Revenues",
		}))
	})

	It("classifies facts without a start date as instant", func() {
		extractor := edgar.NewExtractor("320193", facts, data.NewConceptSet("Assets", "Revenues"), 2010)

		Expect(extractor.Next()).To(BeTrue())
		assets := extractor.Fact()
		Expect(assets.Concept).To(Equal("Assets"))
		Expect(assets.Instant()).To(BeTrue())
		Expect(assets.FiscalYear).To(BeNil())
		Expect(assets.FiscalPeriod).To(Equal(data.FiscalPeriod("")))
		Expect(assets.AccessionNumber).To(BeNil())
		Expect(assets.FilingURL).To(BeNil())

		Expect(extractor.Next()).To(BeTrue())
		revenue := extractor.Fact()
		Expect(revenue.Instant()).To(BeFalse())
		Expect(*revenue.PeriodStart).To(Equal(time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC)))
	})

	It("carries provenance through", func() {
		extractor := edgar.NewExtractor("320193", facts, data.NewConceptSet("Revenues"), 2010)
		records := extractor.Collect()
		Expect(records).To(HaveLen(2))

		annual := records[1]
		Expect(annual.Value).To(Equal(383285000000.0))
		Expect(annual.Unit).To(Equal("USD"))
		Expect(annual.Taxonomy).To(Equal("us-gaap"))
		Expect(*annual.FiscalYear).To(Equal(2023))
		Expect(annual.FiscalPeriod).To(Equal(data.Annual))
		Expect(*annual.Form).To(Equal("10-K"))
		Expect(*annual.AccessionNumber).To(Equal("0000320193-23-000106"))
		Expect(*annual.FilingURL).To(Equal("https://www.sec.gov/Archives/edgar/data/320193/000032019323000106"))
		Expect(*annual.Frame).To(Equal("CY2023"))
		Expect(annual.PeriodEnd).To(Equal(time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)))
	})

	It("includes older facts when the minimum year allows them", func() {
		extractor := edgar.NewExtractor("320193", facts, data.NewConceptSet("Revenues"), 2000)
		Expect(extractor.Collect()).To(HaveLen(3))
	})

	It("cannot be restarted once exhausted", func() {
		extractor := edgar.NewExtractor("320193", facts, data.NewConceptSet("Assets"), 2010)
		Expect(extractor.Next()).To(BeTrue())
		Expect(extractor.Next()).To(BeFalse())
		Expect(extractor.Fact()).To(BeNil())
		Expect(extractor.Next()).To(BeFalse())
	})

	It("handles a document without facts", func() {
		extractor := edgar.NewExtractor("1", nil, nil, 2010)
		Expect(extractor.Next()).To(BeFalse())
	})
})
