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
	"errors"
	"fmt"
)

var (
	ErrUnknownPolicy = errors.New("unknown conflict policy")
)

// ConflictPolicy controls what happens when a fact with the same natural key
// is already stored
type ConflictPolicy int

const (
	// UpdateOnConflict overwrites the stored value and provenance
	UpdateOnConflict ConflictPolicy = iota

	// SkipOnConflict leaves the stored row untouched
	SkipOnConflict
)

func (policy ConflictPolicy) String() string {
	switch policy {
	case UpdateOnConflict:
		return "update"
	case SkipOnConflict:
		return "skip"
	default:
		return fmt.Sprintf("ConflictPolicy(%d)", int(policy))
	}
}

// ParseConflictPolicy converts a configuration value into a ConflictPolicy
func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	switch name {
	case "", "update":
		return UpdateOnConflict, nil
	case "skip":
		return SkipOnConflict, nil
	default:
		return UpdateOnConflict, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
