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
	"strings"

	"github.com/gosimple/slug"
	"github.com/penny-vault/pvfacts/data"
)

var ErrUnknownBundle = errors.New("unknown bundle")

// Bundle is a named group of companies selected either by ticker or by SIC
// code prefix
type Bundle struct {
	Name        string
	Tickers     []string
	SICPrefixes []string
}

// Slug returns a file and URL safe version of the bundle name
func (bundle *Bundle) Slug() string {
	return slug.Make(bundle.Name)
}

// IsSector returns true if the bundle is defined by SIC code prefixes
func (bundle *Bundle) IsSector() bool {
	return len(bundle.SICPrefixes) > 0
}

// Premade bundles of well known companies
var Premade = []*Bundle{
	{Name: "FAANG", Tickers: []string{"META", "AAPL", "AMZN", "NFLX", "GOOGL"}},
	{Name: "Magnificent 7", Tickers: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA"}},
	{Name: "Big Tech", Tickers: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}},
	{Name: "Chip Makers", Tickers: []string{"NVDA", "AMD", "INTC", "AVGO", "QCOM"}},
	{Name: "EV & Clean Energy", Tickers: []string{"TSLA", "RIVN", "LCID", "NIO", "ENPH"}},
	{Name: "Streaming", Tickers: []string{"NFLX", "DIS", "WBD", "PARA", "CMCSA"}},
}

// Sectors group companies by the first two digits of their SIC code. A
// prefix may belong to more than one sector.
var Sectors = []*Bundle{
	{Name: "Technology", SICPrefixes: []string{"35", "36", "37", "73"}},
	{Name: "Healthcare", SICPrefixes: []string{"28", "38", "80"}},
	{Name: "Financial", SICPrefixes: []string{"60", "61", "62", "63", "64", "65", "67"}},
	{Name: "Consumer Discretionary", SICPrefixes: []string{"52", "53", "54", "55", "56", "57", "58", "59", "70", "78", "79"}},
	{Name: "Consumer Staples", SICPrefixes: []string{"20", "21", "51", "54"}},
	{Name: "Energy", SICPrefixes: []string{"10", "12", "13", "14", "29", "46"}},
	{Name: "Industrials", SICPrefixes: []string{"15", "16", "17", "24", "25", "30", "31", "32", "33", "34", "37", "40", "41", "42", "44", "45", "47"}},
	{Name: "Materials", SICPrefixes: []string{"10", "12", "14", "24", "26", "28", "32", "33"}},
	{Name: "Utilities", SICPrefixes: []string{"49"}},
	{Name: "Real Estate", SICPrefixes: []string{"65", "67"}},
	{Name: "Communication", SICPrefixes: []string{"48", "78", "79"}},
}

// EntityLookup finds companies in the library
type EntityLookup interface {
	EntitiesByTicker(ctx context.Context, tickers []string) ([]*data.Entity, error)
	EntitiesBySICPrefix(ctx context.Context, prefixes []string) ([]*data.Entity, error)
}

// All returns the premade bundles followed by the sectors
func All() []*Bundle {
	all := make([]*Bundle, 0, len(Premade)+len(Sectors))
	all = append(all, Premade...)
	all = append(all, Sectors...)
	return all
}

// Find returns the bundle with the given name or slug, ignoring case
func Find(name string) (*Bundle, bool) {
	name = strings.TrimSpace(name)
	for _, bundle := range All() {
		if strings.EqualFold(bundle.Name, name) || bundle.Slug() == strings.ToLower(name) {
			return bundle, true
		}
	}

	return nil, false
}

// Custom creates an ad-hoc bundle from a list of tickers
func Custom(name string, tickers []string) *Bundle {
	normalized := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker != "" {
			normalized = append(normalized, ticker)
		}
	}

	return &Bundle{Name: name, Tickers: normalized}
}

// Entities resolves the bundle to the companies stored in the library
func (bundle *Bundle) Entities(ctx context.Context, lookup EntityLookup) ([]*data.Entity, error) {
	if bundle.IsSector() {
		return lookup.EntitiesBySICPrefix(ctx, bundle.SICPrefixes)
	}

	return lookup.EntitiesByTicker(ctx, bundle.Tickers)
}

// Resolve finds the named bundle and resolves its companies
func Resolve(ctx context.Context, lookup EntityLookup, name string) (*Bundle, []*data.Entity, error) {
	bundle, ok := Find(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownBundle, name)
	}

	entities, err := bundle.Entities(ctx, lookup)
	if err != nil {
		return nil, nil, err
	}

	return bundle, entities, nil
}
