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
package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

const DefaultChunkSize = 500

var factColumns = []string{
	"cik",
	"taxonomy",
	"concept",
	"value",
	"unit",
	"period_start",
	"period_end",
	"fiscal_year",
	"fiscal_period",
	"form",
	"accession_number",
	"filing_url",
	"frame",
}

// FactStore writes financial facts. The conflict policy is fixed when the
// store is created so a single ingestion run never mixes policies.
type FactStore struct {
	db        DB
	policy    data.ConflictPolicy
	chunkSize int
}

type FactStoreOption func(*FactStore)

// WithChunkSize bounds the number of facts written per INSERT statement
func WithChunkSize(size int) FactStoreOption {
	return func(store *FactStore) {
		if size > 0 {
			store.chunkSize = size
		}
	}
}

// NewFactStore creates a store that resolves natural key conflicts with policy
func NewFactStore(db DB, policy data.ConflictPolicy, opts ...FactStoreOption) *FactStore {
	store := &FactStore{
		db:        db,
		policy:    policy,
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Policy returns the conflict policy used by the store
func (store *FactStore) Policy() data.ConflictPolicy {
	return store.policy
}

// Upsert saves entity and its facts in a single transaction and returns the
// number of fact rows written. Nothing is committed if any chunk fails.
func (store *FactStore) Upsert(ctx context.Context, entity *data.Entity, facts []*data.Fact) (stored int64, err error) {
	tx, err := store.db.Begin(ctx)
	if err != nil {
		return 0, err
	}

	defer func() {
		if r := recover(); r != nil {
			rollback(ctx, tx, "facts")
			panic(r)
		}

		if err != nil {
			rollback(ctx, tx, "facts")
		}
	}()

	if err = entity.SaveDB(ctx, tx); err != nil {
		return 0, err
	}

	for _, filing := range entity.Filings {
		if err = filing.SaveDB(ctx, tx); err != nil {
			return 0, err
		}
	}

	unique := Dedupe(facts)

	for start := 0; start < len(unique); start += store.chunkSize {
		end := min(start+store.chunkSize, len(unique))
		chunk := unique[start:end]

		sql := store.insertSQL(len(chunk))
		args := make([]any, 0, len(chunk)*len(factColumns))
		for _, fact := range chunk {
			args = append(args,
				fact.CIK,
				fact.Taxonomy,
				fact.Concept,
				fact.Value,
				fact.Unit,
				fact.PeriodStart,
				fact.PeriodEnd,
				fact.FiscalYear,
				string(fact.FiscalPeriod),
				fact.Form,
				fact.AccessionNumber,
				fact.FilingURL,
				fact.Frame,
			)
		}

		tag, execErr := tx.Exec(ctx, sql, args...)
		if execErr != nil {
			err = fmt.Errorf("store facts %d-%d for %s: %w", start, end, entity.CIK, execErr)
			return 0, err
		}

		stored += tag.RowsAffected()
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}

	log.Debug().Str("CIK", entity.CIK).Int("NumFacts", len(unique)).Int64("NumStored", stored).Int("NumFilings", len(entity.Filings)).Str("Policy", store.policy.String()).Msg("stored facts")

	return stored, nil
}

func (store *FactStore) insertSQL(rows int) string {
	var builder strings.Builder

	builder.WriteString("INSERT INTO financial_facts (")
	for idx, col := range factColumns {
		if idx > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(fmt.Sprintf("%q", col))
	}
	builder.WriteString(") VALUES ")

	param := 1
	for row := 0; row < rows; row++ {
		if row > 0 {
			builder.WriteString(", ")
		}

		builder.WriteString("(")
		for col := range factColumns {
			if col > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString(fmt.Sprintf("$%d", param))
			param++
		}
		builder.WriteString(")")
	}

	builder.WriteString(" ON CONFLICT ON CONSTRAINT financial_facts_natural_key ")

	switch store.policy {
	case data.SkipOnConflict:
		builder.WriteString("DO NOTHING")
	default:
		builder.WriteString(`DO UPDATE SET
		taxonomy = EXCLUDED.taxonomy,
		value = EXCLUDED.value,
		unit = EXCLUDED.unit,
		period_start = EXCLUDED.period_start,
		fiscal_year = EXCLUDED.fiscal_year,
		form = EXCLUDED.form,
		accession_number = EXCLUDED.accession_number,
		filing_url = EXCLUDED.filing_url,
		frame = EXCLUDED.frame,
		updated_at = now()`)
	}

	return builder.String()
}

// Dedupe removes facts that share a natural key, keeping the last one seen.
// Order of first appearance is preserved.
func Dedupe(facts []*data.Fact) []*data.Fact {
	position := make(map[data.NaturalKey]int, len(facts))
	unique := make([]*data.Fact, 0, len(facts))

	for _, fact := range facts {
		key := fact.Key()
		if idx, ok := position[key]; ok {
			unique[idx] = fact
			continue
		}

		position[key] = len(unique)
		unique = append(unique, fact)
	}

	return unique
}

// Facts returns every stored fact for cik whose concept is in concepts
func (myLibrary *Library) Facts(ctx context.Context, cik string, concepts []string) ([]*data.Fact, error) {
	var facts []*data.Fact

	err := pgxscan.Select(ctx, myLibrary.Pool, &facts, `SELECT cik, taxonomy, concept, value, unit,
period_start, period_end, fiscal_year, fiscal_period, form, accession_number, filing_url, frame, updated_at
FROM financial_facts WHERE cik = $1 AND concept = ANY($2) ORDER BY concept, period_end, updated_at`, cik, concepts)
	if err != nil {
		log.Error().Err(err).Str("CIK", cik).Msg("could not load facts")
		return nil, err
	}

	return facts, nil
}
