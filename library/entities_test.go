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
package library_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/penny-vault/pvfacts/library"
)

var entityCols = []string{"cik", "name", "ticker", "sic_code", "sic_description"}

var _ = Describe("Library", func() {
	var (
		mock      pgxmock.PgxPoolIface
		myLibrary *library.Library
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		mock, err = pgxmock.NewPool()
		Expect(err).ToNot(HaveOccurred())

		myLibrary = library.New(mock)
		myLibrary.Name = "Test Library"
		ctx = context.Background()
	})

	AfterEach(func() {
		mock.Close()
	})

	Describe("EntityByTicker", func() {
		It("caches companies after the first lookup", func() {
			mock.ExpectQuery("SELECT cik").
				WithArgs("AAPL").
				WillReturnRows(pgxmock.NewRows(entityCols).AddRow("0000320193", "Apple Inc.", "AAPL", "3571", "Electronic Computers"))

			entity, found, err := myLibrary.EntityByTicker(ctx, "aapl")
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(entity.CIK).To(Equal("0000320193"))
			Expect(entity.SICCode).To(Equal("3571"))

			again, found, err := myLibrary.EntityByTicker(ctx, "AAPL")
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(again).To(BeIdenticalTo(entity))

			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("reports unknown tickers as not found", func() {
			mock.ExpectQuery("SELECT cik").WithArgs("ZZZZ").WillReturnRows(pgxmock.NewRows(entityCols))

			entity, found, err := myLibrary.EntityByTicker(ctx, "ZZZZ")
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(entity).To(BeNil())
		})

		It("skips unknown tickers when resolving a list", func() {
			mock.ExpectQuery("SELECT cik").WithArgs("NVDA").
				WillReturnRows(pgxmock.NewRows(entityCols).AddRow("0001045810", "NVIDIA CORP", "NVDA", "3674", "Semiconductors"))
			mock.ExpectQuery("SELECT cik").WithArgs("ZZZZ").WillReturnRows(pgxmock.NewRows(entityCols))

			entities, err := myLibrary.EntitiesByTicker(ctx, []string{"NVDA", "ZZZZ"})
			Expect(err).ToNot(HaveOccurred())
			Expect(entities).To(HaveLen(1))
			Expect(entities[0].Ticker).To(Equal("NVDA"))
		})
	})

	Describe("LatestPrice", func() {
		It("reports a missing price without an error", func() {
			mock.ExpectQuery("SELECT cik, price_date").
				WithArgs("0000320193", pgxmock.AnyArg()).
				WillReturnRows(pgxmock.NewRows([]string{"cik", "price_date", "adj_close", "shares_outstanding"}))

			price, found, err := myLibrary.LatestPrice(ctx, "0000320193", time.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(price).To(BeNil())
		})
	})

	Describe("Summary", func() {
		It("describes the contents of the library", func() {
			mock.ExpectQuery("FROM companies").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1500))
			mock.ExpectQuery("FROM financial_facts").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2500000))
			mock.ExpectQuery("FROM valuation_metrics").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
			mock.ExpectQuery("max\\(updated_at\\)").WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(time.Time{}))

			summary, err := myLibrary.Summary(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(summary).To(ContainSubstring("# Test Library"))
			Expect(summary).To(ContainSubstring("Companies Tracked: 1,500"))
			Expect(summary).To(ContainSubstring("Financial Facts: 2,500,000"))
			Expect(summary).To(ContainSubstring("Last Ingested: Never"))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})
})
