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
	"errors"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

// DB is the subset of *pgxpool.Pool used by the library
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Library struct {
	DBUrl string
	Name  string
	Owner string

	Pool DB

	pool        *pgxpool.Pool
	entityCache *haxmap.Map[string, *data.Entity]
}

// New creates a library that uses an already established database handle
func New(db DB) *Library {
	return &Library{
		Pool:        db,
		entityCache: haxmap.New[string, *data.Entity](),
	}
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}

	myLibrary.pool = pool
	myLibrary.Pool = pool

	if myLibrary.entityCache == nil {
		myLibrary.entityCache = haxmap.New[string, *data.Entity]()
	}

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	if myLibrary.pool != nil {
		myLibrary.pool.Close()
	}
}

// NewFromDB creates a new library object with values from the database
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	myLibrary := &Library{
		DBUrl: dbURL,
	}

	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}

	if err := myLibrary.Pool.QueryRow(ctx, "SELECT name, owner FROM library").Scan(&myLibrary.Name, &myLibrary.Owner); err != nil {
		myLibrary.Close()
		return nil, err
	}

	return myLibrary, nil
}

// SaveDB creates a new record in the library table for this library
func (myLibrary *Library) SaveDB(ctx context.Context) error {
	_, err := myLibrary.Pool.Exec(ctx, `INSERT INTO library ("name", "owner") VALUES ($1, $2)`, myLibrary.Name, myLibrary.Owner)
	return err
}

// NumCompanies returns the number of companies tracked by the library
func (myLibrary *Library) NumCompanies(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM companies").Scan(&count)
	return count, err
}

// NumFacts returns the number of financial facts stored in the library
func (myLibrary *Library) NumFacts(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM financial_facts").Scan(&count)
	return count, err
}

// NumSnapshots returns the number of stored valuation snapshots
func (myLibrary *Library) NumSnapshots(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM valuation_metrics").Scan(&count)
	return count, err
}

// LastUpdated returns the time facts were last written to the library
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	var lastUpdated time.Time
	err := myLibrary.Pool.QueryRow(ctx, "SELECT coalesce(max(updated_at), '0001-01-01'::timestamptz) FROM financial_facts").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// rollback aborts tx; a transaction that is already closed is not an error
func rollback(ctx context.Context, tx pgx.Tx, what string) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Error().Err(err).Str("Transaction", what).Msg("error rolling back transaction")
	}
}
