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
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/edgar"
	"golang.org/x/time/rate"
)

const testURL = "https://data.sec.gov/api/xbrl/companyfacts/CIK0000320193.json"

var _ = Describe("Fetcher", func() {
	var (
		transport *httpmock.MockTransport
		fetcher   *edgar.Fetcher
		delays    []time.Duration
	)

	BeforeEach(func() {
		transport = httpmock.NewMockTransport()
		delays = nil

		client := resty.New().SetTransport(transport)
		fetcher = edgar.NewFetcher(
			edgar.WithClient(client),
			edgar.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
			edgar.WithRetry(3, 10*time.Millisecond),
			edgar.WithSleep(func(_ context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}),
			edgar.WithUserAgent("pvfacts test@example.com"),
		)
	})

	Context("with a successful response", func() {
		It("returns the body", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(200, `{"cik": 320193}`))

			body, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(string(body)).To(Equal(`{"cik": 320193}`))
			Expect(fetcher.Requests()).To(Equal(int64(1)))
			Expect(delays).To(BeEmpty())
		})

		It("sends the configured user agent", func() {
			transport.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
				Expect(req.Header.Get("User-Agent")).To(Equal("pvfacts test@example.com"))
				return httpmock.NewStringResponse(200, "{}"), nil
			})

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
		})
	})

	Context("with a 404 response", func() {
		It("reports not found without an error", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(404, "not found"))

			body, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(body).To(BeNil())
			Expect(fetcher.Requests()).To(Equal(int64(1)))
		})
	})

	Context("when rate limited", func() {
		It("backs off with strictly increasing delays and then succeeds", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.ResponderFromMultipleResponses([]*http.Response{
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(200, "{}"),
			}))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(delays).To(Equal([]time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}))
			Expect(fetcher.Requests()).To(Equal(int64(4)))
		})

		It("fails with a transient error once the retry budget is exhausted", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(429, ""))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(found).To(BeFalse())
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, edgar.ErrRetriesExhausted)).To(BeTrue())

			var fetchErr *edgar.FetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Transient).To(BeTrue())
			Expect(fetchErr.StatusCode).To(Equal(429))
			Expect(fetchErr.Attempts).To(Equal(4))

			Expect(delays).To(HaveLen(3))
			for idx := 1; idx < len(delays); idx++ {
				Expect(delays[idx]).To(BeNumerically(">", delays[idx-1]))
			}
		})
	})

	Context("with server errors", func() {
		It("retries 5xx responses", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.ResponderFromMultipleResponses([]*http.Response{
				httpmock.NewStringResponse(503, ""),
				httpmock.NewStringResponse(200, "{}"),
			}))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(delays).To(HaveLen(1))
		})

		It("retries transport errors", func() {
			calls := 0
			transport.RegisterResponder(http.MethodGet, testURL, func(req *http.Request) (*http.Response, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("i/o timeout")
				}
				return httpmock.NewStringResponse(200, "{}"), nil
			})

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(calls).To(Equal(2))
		})
	})

	Context("with other client errors", func() {
		It("retries once and then fails permanently", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(403, "forbidden"))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(found).To(BeFalse())

			var fetchErr *edgar.FetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Transient).To(BeFalse())
			Expect(fetchErr.StatusCode).To(Equal(403))
			Expect(errors.Is(err, edgar.ErrRetriesExhausted)).To(BeFalse())
			Expect(fetcher.Requests()).To(Equal(int64(2)))
		})

		It("succeeds if the single retry succeeds", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.ResponderFromMultipleResponses([]*http.Response{
				httpmock.NewStringResponse(400, ""),
				httpmock.NewStringResponse(200, "{}"),
			}))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("retries once even without a transient retry budget", func() {
			fetcher = edgar.NewFetcher(
				edgar.WithClient(resty.New().SetTransport(transport)),
				edgar.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
				edgar.WithRetry(0, 10*time.Millisecond),
				edgar.WithSleep(func(_ context.Context, d time.Duration) error {
					delays = append(delays, d)
					return nil
				}),
			)
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(403, "forbidden"))

			_, _, err := fetcher.Get(context.Background(), testURL)

			var fetchErr *edgar.FetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Transient).To(BeFalse())
			Expect(fetchErr.Attempts).To(Equal(2))
			Expect(errors.Is(err, edgar.ErrRetriesExhausted)).To(BeFalse())
			Expect(errors.Is(err, edgar.ErrStatus)).To(BeTrue())
			Expect(fetcher.Requests()).To(Equal(int64(2)))
			Expect(delays).To(HaveLen(1))
		})

		It("does not spend the transient retry budget", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.ResponderFromMultipleResponses([]*http.Response{
				httpmock.NewStringResponse(400, ""),
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(429, ""),
				httpmock.NewStringResponse(200, "{}"),
			}))

			_, found, err := fetcher.Get(context.Background(), testURL)
			Expect(err).ToNot(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(fetcher.Requests()).To(Equal(int64(5)))
		})
	})

	Context("when the context is cancelled", func() {
		It("returns the context error instead of a fetch error", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(200, "{}"))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, _, err := fetcher.Get(ctx, testURL)
			Expect(err).To(MatchError(context.Canceled))

			var fetchErr *edgar.FetchError
			Expect(errors.As(err, &fetchErr)).To(BeFalse())
		})
	})

	Context("with a rate limiter", func() {
		It("spaces consecutive requests", func() {
			transport.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(200, "{}"))

			limited := edgar.NewFetcher(
				edgar.WithClient(resty.New().SetTransport(transport)),
				edgar.WithLimiter(rate.NewLimiter(rate.Every(50*time.Millisecond), 1)),
			)

			start := time.Now()
			for i := 0; i < 3; i++ {
				_, _, err := limited.Get(context.Background(), testURL)
				Expect(err).ToNot(HaveOccurred())
			}

			Expect(time.Since(start)).To(BeNumerically(">=", 90*time.Millisecond))
			Expect(limited.Requests()).To(Equal(int64(3)))
		})
	})
})
