// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reconcile

import (
	"strings"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/instrument"
	"github.com/penny-vault/ca-validator/normalize"
)

// EnrichIdentifiers copies ISIN, ticker and name from the instrument master.
// Rows of unknown instruments are left blank.
func EnrichIdentifiers[T corpaction.Record](rows []Row[T], master *instrument.Master) []Row[T] {
	res := cloneRows(rows)
	if master == nil {
		return res
	}
	for idx := range res {
		row := &res[idx]
		if inst, ok := master.ByRIC(row.Key.RIC); ok {
			row.ISIN = inst.ISIN
			row.Ticker = inst.Ticker
			row.Name = inst.Name
		}
	}
	return res
}

// RightsEventTypes maps capital events to RICs. Events whose identifiers do
// not resolve are dropped; the first event of a RIC wins.
func RightsEventTypes(events []normalize.CapitalEventRow, master *instrument.Master) map[string]string {
	res := make(map[string]string, len(events))
	if master == nil {
		return res
	}
	for _, ev := range events {
		ric, ok := master.ResolveRIC(strings.TrimSpace(ev.ISIN), strings.TrimSpace(ev.MIC), strings.TrimSpace(ev.SEDOL))
		if !ok {
			continue
		}
		if _, seen := res[ric]; seen {
			continue
		}
		res[ric] = strings.TrimSpace(ev.EventType)
	}
	return res
}

// AnnotateRightsEvents sets the additional comment of every rights issue
// to its capital event type, blank when unknown
func AnnotateRightsEvents(rows []Row[corpaction.RightsIssue], eventTypes map[string]string) []Row[corpaction.RightsIssue] {
	res := cloneRows(rows)
	for idx := range res {
		res[idx].AdditionalComment = eventTypes[res[idx].Key.RIC]
	}
	return res
}
