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

	"github.com/penny-vault/pvfacts/data"
)

// SaveSnapshots writes valuation snapshots in a single transaction
func (myLibrary *Library) SaveSnapshots(ctx context.Context, snapshots []*data.ValuationSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := myLibrary.Pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			rollback(ctx, tx, "snapshots")
			panic(r)
		}

		if err != nil {
			rollback(ctx, tx, "snapshots")
		}
	}()

	for _, snapshot := range snapshots {
		if err = snapshot.SaveDB(ctx, tx); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
