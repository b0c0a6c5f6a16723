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
package data

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Entity is a company that files with the SEC
type Entity struct {
	CIK            string  `db:"cik" json:"cik"`
	Name           string  `db:"name" json:"name"`
	Ticker         string  `db:"ticker" json:"ticker,omitempty"`
	SICCode        string  `db:"sic_code" json:"sic_code,omitempty"`
	SICDescription string  `db:"sic_description" json:"sic_description,omitempty"`
	SizeMetric     float64 `db:"-" json:"size_metric,omitempty"`

	// Filings holds recent periodic reports found while syncing metadata
	Filings []*Filing `db:"-" json:"-"`
}

// SaveDB creates the entity if it does not exist. Existing values are only
// replaced when the incoming value is non-empty.
func (entity *Entity) SaveDB(ctx context.Context, tx pgx.Tx) error {
	sql := `INSERT INTO companies (
		"cik",
		"name",
		"ticker",
		"sic_code",
		"sic_description"
	) VALUES (
		$1, $2, $3, $4, $5
	) ON CONFLICT ON CONSTRAINT companies_pkey DO UPDATE SET
		name = COALESCE(EXCLUDED.name, companies.name),
		ticker = COALESCE(EXCLUDED.ticker, companies.ticker),
		sic_code = COALESCE(EXCLUDED.sic_code, companies.sic_code),
		sic_description = COALESCE(EXCLUDED.sic_description, companies.sic_description),
		updated_at = now()`

	_, err := tx.Exec(ctx, sql,
		entity.CIK,
		nullString(entity.Name),
		nullString(entity.Ticker),
		nullString(entity.SICCode),
		nullString(entity.SICDescription),
	)
	if err != nil {
		log.Error().Err(err).Object("Entity", entity).Msg("save entity to DB failed")
	}

	return err
}

// Merge copies non-empty metadata from other into entity
func (entity *Entity) Merge(other *Entity) {
	if other == nil {
		return
	}

	if other.Name != "" {
		entity.Name = other.Name
	}

	if other.Ticker != "" {
		entity.Ticker = other.Ticker
	}

	if other.SICCode != "" {
		entity.SICCode = other.SICCode
	}

	if other.SICDescription != "" {
		entity.SICDescription = other.SICDescription
	}

	if len(other.Filings) > 0 {
		entity.Filings = other.Filings
	}
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (entity *Entity) MarshalZerologObject(e *zerolog.Event) {
	e.Str("CIK", entity.CIK)
	e.Str("Name", entity.Name)
	e.Str("Ticker", entity.Ticker)
	e.Str("SIC", entity.SICCode)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
