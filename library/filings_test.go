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

var _ = Describe("Filings", func() {
	var (
		mock      pgxmock.PgxPoolIface
		myLibrary *library.Library
	)

	BeforeEach(func() {
		var err error
		mock, err = pgxmock.NewPool()
		Expect(err).ToNot(HaveOccurred())

		myLibrary = library.New(mock)
	})

	AfterEach(func() {
		mock.Close()
	})

	It("loads the newest filings first", func() {
		filed := time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC)
		reported := time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("FROM sec_filings WHERE cik = \\$1 ORDER BY filing_date DESC LIMIT \\$2").
			WithArgs("0000320193", 5).
			WillReturnRows(pgxmock.NewRows([]string{"accession_number", "cik", "form_type", "filing_date", "report_date", "primary_document", "file_url"}).
				AddRow("0000320193-23-000106", "0000320193", "10-K", filed, &reported, "aapl-20230930.htm", "https://www.sec.gov/Archives/edgar/data/320193/000032019323000106").
				AddRow("0000320193-23-000077", "0000320193", "10-Q", filed.AddDate(0, -3, 0), nil, "", ""))

		filings, err := myLibrary.Filings(context.Background(), "0000320193", 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(filings).To(HaveLen(2))
		Expect(filings[0].Form).To(Equal("10-K"))
		Expect(*filings[0].ReportDate).To(Equal(reported))
		Expect(filings[1].ReportDate).To(BeNil())
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})
})
