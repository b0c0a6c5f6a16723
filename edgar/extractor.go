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
	"sort"
	"time"

	"github.com/penny-vault/pvfacts/data"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

type unitKey struct {
	taxonomy string
	concept  string
	unit     string
}

// Extractor walks the nested taxonomy, concept, unit structure of a
// CompanyFacts document and yields one data.Fact per usable observation.
// Iteration is lazy and cannot be restarted:
//
//	extractor := edgar.NewExtractor(cik, facts, concepts, 2010)
//	for extractor.Next() {
//		fact := extractor.Fact()
//	}
type Extractor struct {
	cik     string
	minYear int
	facts   *CompanyFacts
	keys    []unitKey

	keyIdx  int
	obsIdx  int
	current *data.Fact
	skipped int
}

// NewExtractor creates an extractor over facts. Concepts not in the allowlist
// are ignored; a nil allowlist uses data.DefaultConcepts.
func NewExtractor(cik string, facts *CompanyFacts, concepts data.ConceptSet, minYear int) *Extractor {
	if concepts == nil {
		concepts = data.DefaultConcepts()
	}

	extractor := &Extractor{
		cik:     data.PadCIK(cik),
		minYear: minYear,
		facts:   facts,
	}

	if facts == nil {
		return extractor
	}

	for taxonomy, conceptMap := range facts.Facts {
		for concept, conceptFacts := range conceptMap {
			if !concepts.Contains(concept) || conceptFacts == nil {
				continue
			}

			for unit := range conceptFacts.Units {
				extractor.keys = append(extractor.keys, unitKey{taxonomy: taxonomy, concept: concept, unit: unit})
			}
		}
	}

	sort.Slice(extractor.keys, func(i, j int) bool {
		a, b := extractor.keys[i], extractor.keys[j]
		if a.taxonomy != b.taxonomy {
			return a.taxonomy < b.taxonomy
		}
		if a.concept != b.concept {
			return a.concept < b.concept
		}
		return a.unit < b.unit
	})

	return extractor
}

// Next advances to the next fact and reports whether there is one
func (extractor *Extractor) Next() bool {
	for extractor.keyIdx < len(extractor.keys) {
		key := extractor.keys[extractor.keyIdx]
		observations := extractor.facts.Facts[key.taxonomy][key.concept].Units[key.unit]

		for extractor.obsIdx < len(observations) {
			obs := observations[extractor.obsIdx]
			extractor.obsIdx++

			if fact, ok := extractor.convert(key, obs); ok {
				extractor.current = fact
				return true
			}
		}

		extractor.keyIdx++
		extractor.obsIdx = 0
	}

	extractor.current = nil
	return false
}

// Fact returns the fact produced by the last call to Next
func (extractor *Extractor) Fact() *data.Fact {
	return extractor.current
}

// Skipped returns the number of malformed observations dropped so far
func (extractor *Extractor) Skipped() int {
	return extractor.skipped
}

// Collect drains the extractor into a slice
func (extractor *Extractor) Collect() []*data.Fact {
	var facts []*data.Fact
	for extractor.Next() {
		facts = append(facts, extractor.Fact())
	}
	return facts
}

func (extractor *Extractor) convert(key unitKey, obs *Observation) (*data.Fact, bool) {
	if obs == nil || obs.Value == nil {
		return nil, false
	}

	periodEnd, err := time.Parse(dateLayout, obs.End)
	if err != nil {
		extractor.skipped++
		log.Debug().Err(err).Str("CIK", extractor.cik).Str("Concept", key.concept).Str("End", obs.End).Msg("skipping observation with invalid period end")
		return nil, false
	}

	if periodEnd.Year() < extractor.minYear {
		return nil, false
	}

	fact := &data.Fact{
		CIK:             extractor.cik,
		Taxonomy:        key.taxonomy,
		Concept:         key.concept,
		Value:           *obs.Value,
		Unit:            key.unit,
		PeriodEnd:       periodEnd,
		FiscalYear:      obs.FY,
		Form:            obs.Form,
		AccessionNumber: obs.Accn,
		Frame:           obs.Frame,
	}

	if obs.Start != "" {
		if periodStart, err := time.Parse(dateLayout, obs.Start); err == nil {
			fact.PeriodStart = &periodStart
		}
	}

	if obs.FP != nil {
		fact.FiscalPeriod = data.FiscalPeriod(*obs.FP)
	}

	if obs.Accn != nil && *obs.Accn != "" {
		url := data.FilingURL(extractor.cik, *obs.Accn)
		fact.FilingURL = &url
	}

	return fact, true
}
