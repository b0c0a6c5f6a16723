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
package metrics

import (
	"sort"
	"time"

	"github.com/penny-vault/pvfacts/data"
)

// FactSet indexes the facts of a single company by concept. Each concept's
// facts are ordered by period end and then by the time they were stored, so
// the last fact on or before a date is the one to report.
type FactSet struct {
	byConcept map[string][]*data.Fact
}

// NewFactSet indexes facts; the input slice is not modified
func NewFactSet(facts []*data.Fact) *FactSet {
	set := &FactSet{
		byConcept: make(map[string][]*data.Fact),
	}

	for _, fact := range facts {
		set.byConcept[fact.Concept] = append(set.byConcept[fact.Concept], fact)
	}

	for _, conceptFacts := range set.byConcept {
		sort.SliceStable(conceptFacts, func(i, j int) bool {
			a, b := conceptFacts[i], conceptFacts[j]
			if !a.PeriodEnd.Equal(b.PeriodEnd) {
				return a.PeriodEnd.Before(b.PeriodEnd)
			}
			return a.UpdatedAt.Before(b.UpdatedAt)
		})
	}

	return set
}

// PointInTime returns the most recent value of concept with a period ending
// on or before asOf
func (set *FactSet) PointInTime(concept string, asOf time.Time) (float64, bool) {
	facts := set.upTo(concept, asOf)
	if len(facts) == 0 {
		return 0, false
	}

	return facts[len(facts)-1].Value, true
}

// TTM returns the trailing twelve month value of concept as of asOf. The four
// most recent quarters are summed; with fewer than four quarters the average
// is annualized; without quarters the latest annual value is used.
func (set *FactSet) TTM(concept string, asOf time.Time) (float64, bool) {
	facts := set.upTo(concept, asOf)

	quarters := make([]float64, 0, 4)
	var lastEnd time.Time

	for idx := len(facts) - 1; idx >= 0 && len(quarters) < 4; idx-- {
		fact := facts[idx]
		if !fact.FiscalPeriod.IsQuarter() {
			continue
		}

		// one value per quarter; the most recently stored wins
		if len(quarters) > 0 && fact.PeriodEnd.Equal(lastEnd) {
			continue
		}

		quarters = append(quarters, fact.Value)
		lastEnd = fact.PeriodEnd
	}

	if len(quarters) > 0 {
		total := 0.0
		for _, value := range quarters {
			total += value
		}

		if len(quarters) == 4 {
			return total, true
		}

		return total / float64(len(quarters)) * 4, true
	}

	for idx := len(facts) - 1; idx >= 0; idx-- {
		if facts[idx].FiscalPeriod == data.Annual {
			return facts[idx].Value, true
		}
	}

	return 0, false
}

// FirstPointInTime returns the point-in-time value of the first concept in
// concepts that has one
func (set *FactSet) FirstPointInTime(concepts []string, asOf time.Time) (float64, bool) {
	for _, concept := range concepts {
		if value, ok := set.PointInTime(concept, asOf); ok {
			return value, true
		}
	}

	return 0, false
}

// FirstTTM returns the TTM value of the first concept in concepts that has one
func (set *FactSet) FirstTTM(concepts []string, asOf time.Time) (float64, bool) {
	for _, concept := range concepts {
		if value, ok := set.TTM(concept, asOf); ok {
			return value, true
		}
	}

	return 0, false
}

// upTo returns the facts of concept with a period ending on or before asOf
func (set *FactSet) upTo(concept string, asOf time.Time) []*data.Fact {
	facts := set.byConcept[concept]
	cutoff := endOfDay(asOf)

	idx := sort.Search(len(facts), func(i int) bool {
		return facts[i].PeriodEnd.After(cutoff)
	})

	return facts[:idx]
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}
