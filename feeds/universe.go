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

package feeds

import (
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
)

// Universe reports whether a RIC is an active instrument
type Universe interface {
	Active(ric string) bool
}

// FilterReuters keeps rows of instruments in the universe
func FilterReuters(rows []normalize.ReutersRow, universe Universe) []normalize.ReutersRow {
	res := make([]normalize.ReutersRow, 0, len(rows))
	for _, row := range rows {
		if universe.Active(row.RIC) {
			res = append(res, row)
		}
	}
	logFiltered(corpaction.Reuters, len(rows), len(res))
	return res
}

// FilterEDI keeps rows of instruments in the universe
func FilterEDI(rows []normalize.EDIRow, universe Universe) []normalize.EDIRow {
	res := make([]normalize.EDIRow, 0, len(rows))
	for _, row := range rows {
		if universe.Active(row.RIC) {
			res = append(res, row)
		}
	}
	logFiltered(corpaction.EDI, len(rows), len(res))
	return res
}

func logFiltered(vendor corpaction.Vendor, before, after int) {
	log.Debug().Str("Vendor", string(vendor)).Int("Before", before).Int("After", after).Msg("filtered rows to universe")
}
