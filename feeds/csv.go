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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"

	"github.com/penny-vault/ca-validator/corpaction"
)

// record is one CSV line keyed by column name
type record map[string]string

// loadCSV parses a CSV document with a header line. Empty documents and
// documents with only a header yield no records.
func loadCSV(ctx context.Context, body []byte) ([]record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []record{}, nil
	}

	df, err := imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		TrimLeadingSpace: true,
	})
	if err != nil {
		if errors.Is(err, dataframe.ErrNoRows) {
			return []record{}, nil
		}
		return nil, fmt.Errorf("%w: could not parse csv: %w", corpaction.ErrFetch, err)
	}

	names := df.Names(dataframe.DontLock)
	records := make([]record, 0, df.NRows(dataframe.DontLock))

	iterator := df.ValuesIterator(dataframe.ValuesOptions{InitialRow: 0, Step: 1, DontReadLock: true})
	for {
		row, vals, _ := iterator()
		if row == nil {
			break
		}
		rec := make(record, len(names))
		for _, name := range names {
			rec[name] = cellString(vals[name])
		}
		records = append(records, rec)
	}

	return records, nil
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
