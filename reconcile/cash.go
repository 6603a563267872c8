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
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/classify"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/normalize"
)

// Notes appended to the additional comment
const (
	NoteRounded             = "Rounded"
	NoteReutersZeroDividend = "Reuters zero dividend"
	NoteADR                 = "ADR"
)

type CashRow = Row[corpaction.CashDividend]

// MarkADR flags rows whose instrument is classified as ADR
func MarkADR(rows []CashRow, tags classify.Tags) []CashRow {
	res := cloneRows(rows)
	for idx := range res {
		res[idx].ADR = tags.ADR(res[idx].Key.RIC)
	}
	return res
}

type lookupKey struct {
	ric  string
	date time.Time
}

// PlatformLookup annotates rows for which the platform reports neither a
// GROSS nor a NET amount with the first platform cash or special dividend
// recorded for the same RIC and execution date, whatever its taxation
// type.
func PlatformLookup(rows []CashRow, raw []normalize.PlatformRow) []CashRow {
	info := make(map[lookupKey]string)
	for _, pr := range raw {
		if !pr.Type.IsCash() {
			continue
		}
		execDate, err := normalize.ParseDate(pr.ExecutionDate)
		if err != nil {
			log.Debug().Str("RIC", pr.RIC).Str("ExecutionDate", pr.ExecutionDate).Msg("skipping platform row without date")
			continue
		}
		key := lookupKey{ric: strings.TrimSpace(pr.RIC), date: execDate}
		if _, ok := info[key]; ok {
			continue
		}
		info[key] = lookupSummary(pr)
	}

	res := cloneRows(rows)
	for idx := range res {
		row := &res[idx]
		if !row.Value(corpaction.Platform, corpaction.ColGross).IsNull() ||
			!row.Value(corpaction.Platform, corpaction.ColNet).IsNull() {
			continue
		}
		if summary, ok := info[lookupKey{ric: row.Key.RIC, date: row.Key.ExecutionDate}]; ok {
			row.PlatformLookup = summary
		}
	}
	return res
}

func lookupSummary(pr normalize.PlatformRow) string {
	value := "NaN"
	if pr.Value.Valid {
		value = pr.Value.Decimal.String()
	}
	taxation := strings.TrimSpace(pr.TaxationType)
	if taxation == "" {
		taxation = "None"
	}
	return fmt.Sprintf("RIC : %s, Type : %s, Dividend_Taxation_Type : %s, Value : %s",
		strings.TrimSpace(pr.RIC), pr.Type, taxation, value)
}

// FlagZeroDividends notes rows where Reuters reports a zero GROSS and NET
func FlagZeroDividends(rows []CashRow) []CashRow {
	res := cloneRows(rows)
	for idx := range res {
		row := &res[idx]
		if row.Reuters == nil {
			continue
		}
		r := row.Reuters
		if r.Gross.Valid && r.Net.Valid && r.Gross.Decimal.IsZero() && r.Net.Decimal.IsZero() {
			row.annotate(NoteReutersZeroDividend)
		}
	}
	return res
}

// ComposeComments folds the ADR marker and the platform franking and CFI
// annotations into the additional comment, separated by ", "
func ComposeComments(rows []CashRow) []CashRow {
	res := cloneRows(rows)
	for idx := range res {
		row := &res[idx]
		parts := []string{row.AdditionalComment}
		if row.ADR {
			parts = append(parts, NoteADR)
		}
		if row.Platform != nil {
			parts = append(parts, row.Platform.Franking, row.Platform.CFI)
		}
		row.AdditionalComment = joinComment(parts...)
	}
	return res
}

func joinComment(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, ", ")
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}
