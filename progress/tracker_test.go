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
package progress_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvfacts/data"
	"github.com/penny-vault/pvfacts/progress"
)

var _ = Describe("Tracker", func() {
	var (
		path      string
		companies []*data.Entity
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "progress.json")
		companies = []*data.Entity{
			{CIK: "0000000001", Ticker: "AAA"},
			{CIK: "0000000002", Ticker: "BBB"},
			{CIK: "0000000003", Ticker: "CCC"},
			{CIK: "0000000004", Ticker: "DDD"},
		}
	})

	Describe("state transitions", func() {
		It("follows pending, processing, terminal", func() {
			tracker := progress.New(path)
			tracker.Start(companies)

			status, _ := tracker.Status("0000000001")
			Expect(status).To(Equal(progress.Pending))

			Expect(tracker.Begin("0000000001")).To(Succeed())
			status, _ = tracker.Status("0000000001")
			Expect(status).To(Equal(progress.Processing))

			Expect(tracker.Fail("0000000001", "boom")).To(Succeed())
			status, reason := tracker.Status("0000000001")
			Expect(status).To(Equal(progress.Failed))
			Expect(reason).To(Equal("boom"))
		})

		It("refuses to leave a terminal state", func() {
			tracker := progress.New(path)
			Expect(tracker.Begin("0000000001")).To(Succeed())
			Expect(tracker.Complete("0000000001")).To(Succeed())

			Expect(tracker.Begin("0000000001")).To(MatchError(progress.ErrInvalidTransition))
			Expect(tracker.Fail("0000000001", "late")).To(MatchError(progress.ErrInvalidTransition))
		})

		It("requires processing before a terminal state", func() {
			tracker := progress.New(path)
			Expect(tracker.Complete("0000000002")).To(MatchError(progress.ErrInvalidTransition))
			Expect(tracker.NoData("0000000002")).To(MatchError(progress.ErrInvalidTransition))
		})

		It("resets an interrupted company to pending", func() {
			tracker := progress.New(path)
			Expect(tracker.Begin("0000000003")).To(Succeed())
			Expect(tracker.Reset("0000000003")).To(Succeed())

			status, _ := tracker.Status("0000000003")
			Expect(status).To(Equal(progress.Pending))
			Expect(tracker.Begin("0000000003")).To(Succeed())
		})
	})

	Describe("persistence", func() {
		It("round trips through the checkpoint file", func() {
			tracker := progress.New(path)
			tracker.SetPolicy("update")
			tracker.Start(companies)

			Expect(tracker.Begin("0000000001")).To(Succeed())
			Expect(tracker.Complete("0000000001")).To(Succeed())
			Expect(tracker.Begin("0000000002")).To(Succeed())
			Expect(tracker.Fail("0000000002", "decode error")).To(Succeed())
			Expect(tracker.Begin("0000000003")).To(Succeed())
			Expect(tracker.NoData("0000000003")).To(Succeed())
			tracker.Advance(3)

			Expect(tracker.SavedAt().IsZero()).To(BeTrue())
			Expect(tracker.Save()).To(Succeed())
			Expect(tracker.SavedAt().IsZero()).To(BeFalse())

			restored, err := progress.Load(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(restored.SavedAt()).To(BeTemporally("~", tracker.SavedAt(), time.Second))
			Expect(restored.RunID()).To(Equal(tracker.RunID()))
			Expect(restored.Policy()).To(Equal("update"))
			Expect(restored.LastIndex()).To(Equal(3))

			status, reason := restored.Status("0000000002")
			Expect(status).To(Equal(progress.Failed))
			Expect(reason).To(Equal("decode error"))

			status, _ = restored.Status("0000000003")
			Expect(status).To(Equal(progress.NoData))

			status, _ = restored.Status("0000000004")
			Expect(status).To(Equal(progress.Pending))

			done, failed, noData := restored.Counts()
			Expect([]int{done, failed, noData}).To(Equal([]int{1, 1, 1}))
		})

		It("writes the documented json layout", func() {
			tracker := progress.New(path)
			tracker.Start(companies)
			Expect(tracker.Begin("0000000001")).To(Succeed())
			Expect(tracker.Complete("0000000001")).To(Succeed())
			tracker.Advance(1)
			Expect(tracker.Save()).To(Succeed())

			content, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())

			var doc map[string]any
			Expect(json.Unmarshal(content, &doc)).To(Succeed())
			Expect(doc).To(HaveKey("completed"))
			Expect(doc).To(HaveKey("failed"))
			Expect(doc).To(HaveKey("last_index"))
			Expect(doc).To(HaveKey("total"))
			Expect(doc).To(HaveKey("companies"))
			Expect(doc).To(HaveKey("generated_at"))
			Expect(doc["completed"]).To(Equal([]any{"0000000001"}))
			Expect(doc["total"]).To(BeNumerically("==", 4))
		})

		It("keeps the saved company order when resumed", func() {
			tracker := progress.New(path)
			tracker.Start(companies)
			Expect(tracker.Save()).To(Succeed())

			restored, err := progress.Load(path)
			Expect(err).ToNot(HaveOccurred())

			reordered := []*data.Entity{companies[3], companies[2], companies[1], companies[0]}
			order := restored.Start(reordered)
			Expect(order).To(HaveLen(4))
			Expect(order[0].CIK).To(Equal("0000000001"))
			Expect(order[3].CIK).To(Equal("0000000004"))
		})

		It("reports a missing checkpoint", func() {
			_, err := progress.Load(filepath.Join(GinkgoT().TempDir(), "missing.json"))
			Expect(err).To(MatchError(progress.ErrNoCheckpoint))
		})

		It("fails to persist into a missing directory", func() {
			tracker := progress.New(filepath.Join(GinkgoT().TempDir(), "no", "such", "dir", "progress.json"))
			Expect(tracker.Save()).To(MatchError(progress.ErrPersist))
		})

		It("replaces the previous checkpoint without leaving temp files", func() {
			tracker := progress.New(path)
			tracker.Start(companies)
			Expect(tracker.Save()).To(Succeed())

			Expect(tracker.Begin("0000000001")).To(Succeed())
			Expect(tracker.Complete("0000000001")).To(Succeed())
			Expect(tracker.Save()).To(Succeed())

			entries, err := os.ReadDir(filepath.Dir(path))
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})
	})
})
