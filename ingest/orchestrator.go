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
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hako/durafmt"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/edgar"
	"github.com/penny-vault/pvfacts/progress"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultCheckpointEvery = 10
	DefaultMinYear         = 2009
)

var (
	ErrRegistry       = errors.New("could not load company registry")
	ErrPolicyMismatch = errors.New("checkpoint was written with a different conflict policy")
	ErrPanic          = errors.New("panic during ingestion")
)

// Registry supplies the ordered list of companies to ingest
type Registry interface {
	Entities(ctx context.Context) ([]*data.Entity, error)
}

// Source downloads company facts and metadata
type Source interface {
	CompanyFacts(ctx context.Context, cik string) (*edgar.CompanyFacts, bool, error)
	Submissions(ctx context.Context, cik string) (*data.Entity, bool, error)
}

// Store persists the facts of one company in its own transaction
type Store interface {
	Upsert(ctx context.Context, entity *data.Entity, facts []*data.Fact) (int64, error)
	Policy() data.ConflictPolicy
}

type requestCounter interface {
	Requests() int64
}

// Options configure an ingestion run
type Options struct {
	ProgressFile    string
	Resume          bool
	Limit           int
	CheckpointEvery int
	MinYear         int
	Concepts        data.ConceptSet
	SyncMetadata    bool
}

// Orchestrator ingests companies one at a time, recording the outcome of each
// so an interrupted run can pick up where it left off
type Orchestrator struct {
	Registry Registry
	Source   Source
	Store    Store
	Options  Options
}

// Run ingests every company supplied by the registry. A failure for a single
// company is recorded and the run continues; only registry and checkpoint
// failures end the run early. When ctx is cancelled the company in flight is
// returned to pending, progress is saved, and ctx.Err() is returned.
func (orchestrator *Orchestrator) Run(ctx context.Context) (summary *Summary, err error) {
	logger := zerolog.Ctx(ctx)
	opts := orchestrator.options()

	summary = &Summary{
		StartTime: time.Now(),
		Policy:    orchestrator.Store.Policy().String(),
	}

	tracker, err := orchestrator.tracker(ctx, opts)
	if err != nil {
		summary.EndTime = time.Now()
		return summary, err
	}

	summary.RunID = tracker.RunID()

	companies := tracker.Companies()
	if len(companies) == 0 {
		entities, err := orchestrator.Registry.Entities(ctx)
		if err != nil {
			summary.EndTime = time.Now()
			return summary, fmt.Errorf("%w: %w", ErrRegistry, err)
		}

		if opts.Limit > 0 && len(entities) > opts.Limit {
			entities = entities[:opts.Limit]
		}

		companies = tracker.Start(entities)
	}

	summary.Total = len(companies)

	defer func() {
		summary.EndTime = time.Now()

		if counter, ok := orchestrator.Source.(requestCounter); ok {
			summary.Requests = counter.Requests()
		}

		if saveErr := tracker.Save(); saveErr != nil {
			logger.Error().Err(saveErr).Str("ProgressFile", opts.ProgressFile).Msg("could not save final progress")
			if err == nil {
				err = saveErr
			}
		}

		logger.Info().Object("Summary", summary).
			Str("RunTime", durafmt.Parse(summary.Elapsed()).LimitFirstN(2).String()).
			Msg("ingestion run finished")
	}()

	progressLog := rate.Sometimes{Interval: 30 * time.Second}
	sinceCheckpoint := 0

	for idx := tracker.LastIndex(); idx < len(companies); idx++ {
		entity := companies[idx]

		if ctx.Err() != nil {
			tracker.Advance(idx)
			summary.Interrupted = true
			return summary, ctx.Err()
		}

		if status, _ := tracker.Status(entity.CIK); status.Terminal() {
			summary.Skipped++
			tracker.Advance(idx + 1)
			continue
		}

		if err := tracker.Begin(entity.CIK); err != nil {
			return summary, err
		}

		found, stored, procErr := orchestrator.process(ctx, entity, opts)

		switch {
		case procErr != nil && ctx.Err() != nil:
			if err := tracker.Reset(entity.CIK); err != nil {
				return summary, err
			}
			tracker.Advance(idx)
			summary.Interrupted = true
			logger.Warn().Str("CIK", entity.CIK).Msg("ingestion interrupted, company returned to pending")
			return summary, ctx.Err()
		case procErr != nil:
			summary.Failed++
			logger.Error().Err(procErr).Str("CIK", entity.CIK).Str("Ticker", entity.Ticker).Msg("company ingestion failed")
			if err := tracker.Fail(entity.CIK, procErr.Error()); err != nil {
				return summary, err
			}
		case !found:
			summary.NoData++
			logger.Debug().Str("CIK", entity.CIK).Str("Ticker", entity.Ticker).Msg("no facts available")
			if err := tracker.NoData(entity.CIK); err != nil {
				return summary, err
			}
		default:
			summary.Succeeded++
			summary.TotalFacts += stored
			if err := tracker.Complete(entity.CIK); err != nil {
				return summary, err
			}
		}

		summary.Processed++
		tracker.Advance(idx + 1)

		sinceCheckpoint++
		if sinceCheckpoint >= opts.CheckpointEvery {
			if err := tracker.Save(); err != nil {
				return summary, err
			}
			sinceCheckpoint = 0
		}

		progressLog.Do(func() {
			logger.Info().Int("Index", idx+1).Int("Total", len(companies)).
				Int("Succeeded", summary.Succeeded).Int("Failed", summary.Failed).
				Int64("NumFacts", summary.TotalFacts).Msg("ingestion progress")
		})
	}

	return summary, nil
}

func (orchestrator *Orchestrator) options() Options {
	opts := orchestrator.Options
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = DefaultCheckpointEvery
	}

	if opts.MinYear <= 0 {
		opts.MinYear = DefaultMinYear
	}

	if opts.Concepts == nil {
		opts.Concepts = data.DefaultConcepts()
	}

	return opts
}

func (orchestrator *Orchestrator) tracker(ctx context.Context, opts Options) (*progress.Tracker, error) {
	logger := zerolog.Ctx(ctx)
	policy := orchestrator.Store.Policy().String()

	if opts.Resume {
		tracker, err := progress.Load(opts.ProgressFile)
		switch {
		case err == nil:
			if tracker.Policy() != "" && tracker.Policy() != policy {
				return nil, fmt.Errorf("%w: checkpoint uses %q, store uses %q", ErrPolicyMismatch, tracker.Policy(), policy)
			}

			tracker.SetPolicy(policy)
			done, failed, noData := tracker.Counts()
			logger.Info().Str("RunID", tracker.RunID()).Int("LastIndex", tracker.LastIndex()).
				Int("Done", done).Int("Failed", failed).Int("NoData", noData).Msg("resuming ingestion run")
			return tracker, nil
		case errors.Is(err, progress.ErrNoCheckpoint):
			logger.Warn().Str("ProgressFile", opts.ProgressFile).Msg("no checkpoint to resume from, starting a new run")
		default:
			return nil, err
		}
	}

	tracker := progress.New(opts.ProgressFile)
	tracker.SetPolicy(policy)

	return tracker, nil
}

// process runs fetch, extract and store for one company. Panics are
// recovered and reported as errors so a single company cannot end the run.
func (orchestrator *Orchestrator) process(ctx context.Context, entity *data.Entity, opts Options) (found bool, stored int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	logger := zerolog.Ctx(ctx)

	facts, found, err := orchestrator.Source.CompanyFacts(ctx, entity.CIK)
	if err != nil || !found {
		return found, 0, err
	}

	if entity.Name == "" {
		entity.Name = facts.EntityName
	}

	if opts.SyncMetadata {
		metadata, ok, err := orchestrator.Source.Submissions(ctx, entity.CIK)
		switch {
		case err != nil && ctx.Err() != nil:
			return true, 0, err
		case err != nil:
			logger.Warn().Err(err).Str("CIK", entity.CIK).Msg("could not fetch company metadata")
		case ok:
			entity.Merge(metadata)
		}
	}

	extractor := edgar.NewExtractor(entity.CIK, facts, opts.Concepts, opts.MinYear)
	records := extractor.Collect()

	if skipped := extractor.Skipped(); skipped > 0 {
		logger.Debug().Str("CIK", entity.CIK).Int("NumSkipped", skipped).Msg("skipped malformed observations")
	}

	stored, err = orchestrator.Store.Upsert(ctx, entity, records)
	if err != nil {
		return true, 0, err
	}

	return true, stored, nil
}
