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
package edgar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrRetriesExhausted = errors.New("retry budget exhausted")
	ErrStatus           = errors.New("status code is invalid")
)

const (
	// EDGAR asks clients to stay at or below 10 requests per second
	DefaultRequestsPerSecond = 10
	DefaultMaxRetries        = 3
	DefaultBackoffBase       = time.Second
	DefaultTimeout           = 30 * time.Second
)

// FetchError is returned when a request cannot be completed. Transient errors
// (timeouts, 429 and 5xx responses) are only returned once the retry budget
// has been used up.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed after %d attempt(s): status %d: %v", e.URL, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SleepFunc pauses for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher is a rate limited HTTP client that retries transient failures with
// exponential backoff
type Fetcher struct {
	client      *resty.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	sleep       SleepFunc
	requests    atomic.Int64
}

type Option func(*Fetcher)

// WithClient replaces the underlying resty client
func WithClient(client *resty.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLimiter sets the limiter shared by every request made by the fetcher
func WithLimiter(limiter *rate.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = limiter
	}
}

// WithRetry sets the number of retries for transient failures and the base
// delay; retry n waits base*2^n
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
		f.backoffBase = base
	}
}

// WithSleep replaces the function used to wait between retries
func WithSleep(sleep SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.client.SetHeader("User-Agent", userAgent)
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.client.SetTimeout(timeout)
	}
}

// NewFetcher creates a fetcher. Options are applied in order so WithClient
// should come before WithUserAgent and WithTimeout.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      resty.New().SetTimeout(DefaultTimeout),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Requests returns the number of HTTP requests issued, including retries
func (f *Fetcher) Requests() int64 {
	return f.requests.Load()
}

// Backoff returns the delay before the given retry attempt (0 based)
func (f *Fetcher) Backoff(attempt int) time.Duration {
	return f.backoffBase * time.Duration(1<<uint(attempt))
}

// Get requests url and returns the response body. found is false when the
// server responds with 404; that is not an error.
func (f *Fetcher) Get(ctx context.Context, url string) (body []byte, found bool, err error) {
	clientErrorRetried := false
	transientFailures := 0
	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			return nil, false, err
		}

		f.requests.Add(1)
		resp, err := f.client.R().SetContext(ctx).Get(url)

		var lastErr error
		statusCode := 0

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			lastErr = err
		case resp.StatusCode() == http.StatusNotFound:
			return nil, false, nil
		case resp.StatusCode() >= 200 && resp.StatusCode() < 300:
			return resp.Body(), true, nil
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
			statusCode = resp.StatusCode()
			lastErr = fmt.Errorf("%w: %d", ErrStatus, statusCode)
		default:
			// other client errors get exactly one retry outside the transient budget
			statusCode = resp.StatusCode()
			lastErr = fmt.Errorf("%w: %d", ErrStatus, statusCode)
			if clientErrorRetried {
				return nil, false, &FetchError{
					URL:        url,
					StatusCode: statusCode,
					Attempts:   attempt + 1,
					Err:        lastErr,
				}
			}
			clientErrorRetried = true

			if err := f.retryAfter(ctx, url, attempt, lastErr); err != nil {
				return nil, false, err
			}
			continue
		}

		transientFailures++
		if transientFailures > f.maxRetries {
			return nil, false, &FetchError{
				URL:        url,
				StatusCode: statusCode,
				Attempts:   attempt + 1,
				Transient:  true,
				Err:        fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr),
			}
		}

		if err := f.retryAfter(ctx, url, attempt, lastErr); err != nil {
			return nil, false, err
		}
	}
}

// retryAfter waits out the backoff that follows the given failed attempt
func (f *Fetcher) retryAfter(ctx context.Context, url string, attempt int, cause error) error {
	delay := f.Backoff(attempt)
	zerolog.Ctx(ctx).Warn().Err(cause).Str("URL", url).Int("Attempt", attempt+1).Dur("Backoff", delay).Msg("request failed, retrying")

	return f.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
