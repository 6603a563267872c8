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

// Package classify derives REIT and ADR classifications for cash dividends
// from the symbology service.
package classify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/corpaction"
)

const (
	SecurityTypeREIT = "REIT"
	SecurityTypeADR  = "ADR"
)

// REITExchanges are the exchanges on which a REIT security changes the
// dividend taxation type
var REITExchanges = []string{"KL", "MX", "SI", "TW", "TWO", "IS"}

type Tag struct {
	REIT bool
	ADR  bool
}

// Tags maps a RIC to its classification
type Tags map[string]Tag

func (t Tags) REIT(ric string) bool { return t[ric].REIT }
func (t Tags) ADR(ric string) bool  { return t[ric].ADR }

// Lookup resolves symbology records for a list of RICs
type Lookup interface {
	Lookup(ctx context.Context, rics []string) ([]SymbologyRecord, error)
}

// Classify turns symbology records into tags. A RIC reported more than once
// is tagged if any of its records qualifies.
func Classify(records []SymbologyRecord) Tags {
	tags := make(Tags, len(records))
	for _, rec := range records {
		tag := tags[rec.RIC]
		if isType(rec, SecurityTypeREIT) && onREITExchange(rec.RIC) {
			tag.REIT = true
		}
		if isType(rec, SecurityTypeADR) {
			tag.ADR = true
		}
		tags[rec.RIC] = tag
	}
	return tags
}

func isType(rec SymbologyRecord, securityType string) bool {
	return rec.SecurityType == securityType || rec.SecurityType2 == securityType
}

func onREITExchange(ric string) bool {
	exchange := corpaction.Exchange(ric)
	for _, ex := range REITExchanges {
		if ex == exchange {
			return true
		}
	}
	return false
}

// Enricher classifies the RICs of cash dividend tables
type Enricher struct {
	lookup Lookup
}

func NewEnricher(lookup Lookup) *Enricher {
	return &Enricher{lookup: lookup}
}

// Enrich looks up the distinct RICs of all given tables in one pass
func (e *Enricher) Enrich(ctx context.Context, tables ...corpaction.Table[corpaction.CashDividend]) (Tags, error) {
	seen := make(map[string]bool)
	rics := make([]string, 0)
	for _, tbl := range tables {
		for _, ric := range tbl.RICs() {
			if !seen[ric] {
				seen[ric] = true
				rics = append(rics, ric)
			}
		}
	}

	if len(rics) == 0 {
		return Tags{}, nil
	}

	records, err := e.lookup.Lookup(ctx, rics)
	if err != nil {
		log.Error().Stack().Err(err).Int("NumRICs", len(rics)).Msg("symbology enrichment failed")
		return nil, err
	}

	tags := Classify(records)
	log.Info().Int("NumRICs", len(rics)).Int("Classified", len(tags)).Msg("symbology enrichment complete")
	return tags, nil
}

// ApplyREIT returns a copy of tbl where every REIT dividend has the REIT
// taxation type. Other records keep their taxation type.
func ApplyREIT(tbl corpaction.Table[corpaction.CashDividend], tags Tags) corpaction.Table[corpaction.CashDividend] {
	res := make([]corpaction.CashDividend, len(tbl.Records))
	for idx, rec := range tbl.Records {
		if tags.REIT(rec.RIC) {
			rec.TaxationType = corpaction.TaxREIT
		}
		res[idx] = rec
	}
	return corpaction.Table[corpaction.CashDividend]{Vendor: tbl.Vendor, Records: res}
}
