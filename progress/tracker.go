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
package progress

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/penny-vault/pvfacts/data"
)

var (
	ErrNoCheckpoint      = errors.New("no checkpoint found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPersist           = errors.New("could not persist progress")
)

// Status is the ingestion state of a single company
type Status int

const (
	Pending Status = iota
	Processing
	Done
	Failed
	NoData
)

func (status Status) String() string {
	switch status {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case NoData:
		return "no_data"
	default:
		return fmt.Sprintf("Status(%d)", int(status))
	}
}

// Terminal returns true for states that are final for the run
func (status Status) Terminal() bool {
	return status == Done || status == Failed || status == NoData
}

// Failure records why a company could not be ingested
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Document is the checkpoint written to disk
type Document struct {
	RunID       string         `json:"run_id"`
	Policy      string         `json:"policy,omitempty"`
	Completed   []string       `json:"completed"`
	Failed      []Failure      `json:"failed"`
	NoData      []string       `json:"no_data"`
	LastIndex   int            `json:"last_index"`
	Total       int            `json:"total"`
	Companies   []*data.Entity `json:"companies"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type state struct {
	status Status
	reason string
}

// Tracker holds the per-company state machine of an ingestion run
// (pending -> processing -> done | failed | no_data) and persists it
type Tracker struct {
	path string

	mu        sync.Mutex
	runID     string
	policy    string
	lastIndex int
	companies []*data.Entity
	states    map[string]*state
	savedAt   time.Time
}

// New creates a tracker for a fresh run that checkpoints to path
func New(path string) *Tracker {
	return &Tracker{
		path:   path,
		runID:  uuid.New().String(),
		states: make(map[string]*state),
	}
}

// Load restores a tracker from the checkpoint at path
func Load(path string) (*Tracker, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, path)
	}

	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}

	tracker := &Tracker{
		path:      path,
		runID:     doc.RunID,
		policy:    doc.Policy,
		lastIndex: doc.LastIndex,
		companies: doc.Companies,
		states:    make(map[string]*state, len(doc.Companies)),
		savedAt:   doc.GeneratedAt,
	}

	if tracker.runID == "" {
		tracker.runID = uuid.New().String()
	}

	for _, cik := range doc.Completed {
		tracker.states[cik] = &state{status: Done}
	}

	for _, failure := range doc.Failed {
		tracker.states[failure.ID] = &state{status: Failed, reason: failure.Reason}
	}

	for _, cik := range doc.NoData {
		tracker.states[cik] = &state{status: NoData}
	}

	return tracker, nil
}

// RunID identifies the run across resumptions
func (tracker *Tracker) RunID() string {
	return tracker.runID
}

// Policy returns the conflict policy recorded for the run
func (tracker *Tracker) Policy() string {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.policy
}

// SetPolicy records the conflict policy used by the run
func (tracker *Tracker) SetPolicy(policy string) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.policy = policy
}

// Start fixes the ordered company list for the run. A resumed tracker keeps
// the list it was saved with and ignores entities.
func (tracker *Tracker) Start(entities []*data.Entity) []*data.Entity {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if len(tracker.companies) == 0 {
		tracker.companies = entities
	}

	return tracker.companies
}

// Companies returns the ordered company list
func (tracker *Tracker) Companies() []*data.Entity {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.companies
}

// LastIndex returns the position the run should continue from
func (tracker *Tracker) LastIndex() int {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.lastIndex
}

// Advance records idx as the position to continue from
func (tracker *Tracker) Advance(idx int) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.lastIndex = idx
}

// Status returns the state of cik and, for failures, the reason
func (tracker *Tracker) Status(cik string) (Status, string) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	if st, ok := tracker.states[cik]; ok {
		return st.status, st.reason
	}

	return Pending, ""
}

// Begin moves cik from pending to processing
func (tracker *Tracker) Begin(cik string) error {
	return tracker.transition(cik, Pending, Processing, "")
}

// Complete marks cik as successfully ingested
func (tracker *Tracker) Complete(cik string) error {
	return tracker.transition(cik, Processing, Done, "")
}

// Fail marks cik as failed with reason
func (tracker *Tracker) Fail(cik, reason string) error {
	return tracker.transition(cik, Processing, Failed, reason)
}

// NoData marks cik as having nothing to ingest upstream
func (tracker *Tracker) NoData(cik string) error {
	return tracker.transition(cik, Processing, NoData, "")
}

// Reset returns an interrupted company to pending so it is retried on resume
func (tracker *Tracker) Reset(cik string) error {
	return tracker.transition(cik, Processing, Pending, "")
}

func (tracker *Tracker) transition(cik string, from, to Status, reason string) error {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	current := Pending
	if st, ok := tracker.states[cik]; ok {
		current = st.status
	}

	if current != from {
		return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidTransition, cik, current, to)
	}

	if to == Pending {
		delete(tracker.states, cik)
		return nil
	}

	tracker.states[cik] = &state{status: to, reason: reason}
	return nil
}

// Counts returns the number of companies in each terminal state
func (tracker *Tracker) Counts() (done, failed, noData int) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	for _, st := range tracker.states {
		switch st.status {
		case Done:
			done++
		case Failed:
			failed++
		case NoData:
			noData++
		}
	}

	return
}

// Document returns a snapshot of the checkpoint contents
func (tracker *Tracker) Document() *Document {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	doc := &Document{
		RunID:       tracker.runID,
		Policy:      tracker.policy,
		Completed:   []string{},
		Failed:      []Failure{},
		NoData:      []string{},
		LastIndex:   tracker.lastIndex,
		Total:       len(tracker.companies),
		Companies:   tracker.companies,
		GeneratedAt: time.Now().UTC(),
	}

	// walk companies rather than the map so the document is stable
	for _, company := range tracker.companies {
		st, ok := tracker.states[company.CIK]
		if !ok {
			continue
		}

		switch st.status {
		case Done:
			doc.Completed = append(doc.Completed, company.CIK)
		case Failed:
			doc.Failed = append(doc.Failed, Failure{ID: company.CIK, Reason: st.reason})
		case NoData:
			doc.NoData = append(doc.NoData, company.CIK)
		}
	}

	return doc
}

// SavedAt returns when the checkpoint was last written; zero if never
func (tracker *Tracker) SavedAt() time.Time {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.savedAt
}

// Save atomically replaces the checkpoint file
func (tracker *Tracker) Save() error {
	doc := tracker.Document()
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if err := renameio.WriteFile(tracker.path, content, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	tracker.mu.Lock()
	tracker.savedAt = doc.GeneratedAt
	tracker.mu.Unlock()

	return nil
}
