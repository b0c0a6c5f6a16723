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
package cmd

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/bundle"
)

var _ = Describe("Bundle comparison", func() {
	It("names the file after the bundles and the metric", func() {
		one, ok := bundle.Find("Magnificent 7")
		Expect(ok).To(BeTrue())
		two, ok := bundle.Find("FAANG")
		Expect(ok).To(BeTrue())

		Expect(comparisonFileName([]*bundle.Bundle{one, two}, bundle.MetricEVToEBITDA)).To(Equal("magnificent-7-vs-faang-ev_ebitda.csv"))
	})

	It("writes one row per day with a column per bundle", func() {
		pe := 21.5
		comparison := &bundle.Comparison{
			Metric:  bundle.MetricPE,
			Bundles: []string{"One", "Two"},
			Rows: []*bundle.ComparisonRow{
				{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Values: []*float64{&pe, nil}},
			},
		}

		fn := filepath.Join(GinkgoT().TempDir(), "out", "cmp.csv")
		Expect(writeComparison(fn, comparison)).To(Succeed())

		contents, err := os.ReadFile(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(contents)).To(Equal("date,One,Two\n2024-03-01,21.5,\n"))
	})
})
