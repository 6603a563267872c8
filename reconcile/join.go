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
	"sort"

	"github.com/penny-vault/ca-validator/corpaction"
)

type multiMap[T corpaction.Record] struct {
	order []string
	items map[string][]*T
}

func newMultiMap[T corpaction.Record](records []T, keyOf func(corpaction.Key) string) *multiMap[T] {
	m := &multiMap[T]{
		order: make([]string, 0, len(records)),
		items: make(map[string][]*T, len(records)),
	}
	for idx := range records {
		rec := &records[idx]
		id := keyOf((*rec).CAKey())
		if _, ok := m.items[id]; !ok {
			m.order = append(m.order, id)
		}
		m.items[id] = append(m.items[id], rec)
	}
	return m
}

func fullKey(k corpaction.Key) string { return k.ID() }
func baseKey(k corpaction.Key) string { return k.Base().ID() }

type partial[T corpaction.Record] struct {
	key      corpaction.Key
	edi      *T
	platform *T
}

// Join outer joins the three vendor tables. EDI and platform records are
// matched on the full key first; the result is matched with Reuters on
// (RIC, Type, Execution Date). Keys reported more than once by a vendor
// multiply, one row per combination.
func Join[T corpaction.Record](reuters, edi, platform corpaction.Table[T]) []Row[T] {
	ediRecords := append([]T(nil), edi.Records...)
	platRecords := append([]T(nil), platform.Records...)
	reutersRecords := append([]T(nil), reuters.Records...)

	platByKey := newMultiMap(platRecords, fullKey)
	matchedPlat := make(map[string]bool, len(platByKey.items))

	partials := make([]partial[T], 0, len(ediRecords)+len(platRecords))
	for idx := range ediRecords {
		rec := &ediRecords[idx]
		key := (*rec).CAKey()
		id := fullKey(key)
		if plats, ok := platByKey.items[id]; ok {
			matchedPlat[id] = true
			for _, plat := range plats {
				partials = append(partials, partial[T]{key: key, edi: rec, platform: plat})
			}
			continue
		}
		partials = append(partials, partial[T]{key: key, edi: rec})
	}
	for _, id := range platByKey.order {
		if matchedPlat[id] {
			continue
		}
		for _, plat := range platByKey.items[id] {
			partials = append(partials, partial[T]{key: (*plat).CAKey(), platform: plat})
		}
	}

	reutersByKey := newMultiMap(reutersRecords, baseKey)
	matchedReuters := make(map[string]bool, len(reutersByKey.items))

	rows := make([]Row[T], 0, len(partials)+len(reutersRecords))
	for _, p := range partials {
		id := baseKey(p.key)
		if reut, ok := reutersByKey.items[id]; ok {
			matchedReuters[id] = true
			for _, r := range reut {
				rows = append(rows, Row[T]{Key: p.key, Reuters: r, EDI: p.edi, Platform: p.platform, Flags: Flags{}})
			}
			continue
		}
		rows = append(rows, Row[T]{Key: p.key, EDI: p.edi, Platform: p.platform, Flags: Flags{}})
	}
	for _, id := range reutersByKey.order {
		if matchedReuters[id] {
			continue
		}
		for _, r := range reutersByKey.items[id] {
			rows = append(rows, Row[T]{Key: (*r).CAKey(), Reuters: r, Flags: Flags{}})
		}
	}

	return rows
}

// Sort orders rows by RIC and execution date; ties are ordered by type and
// taxation type. The input is not modified.
func Sort[T corpaction.Record](rows []Row[T]) []Row[T] {
	res := cloneRows(rows)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i].Key, res[j].Key
		if a.RIC != b.RIC {
			return a.RIC < b.RIC
		}
		if !a.ExecutionDate.Equal(b.ExecutionDate) {
			return a.ExecutionDate.Before(b.ExecutionDate)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.TaxationType < b.TaxationType
	})
	return res
}
