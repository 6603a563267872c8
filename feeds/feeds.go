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

// Package feeds reads the raw corporate action feeds of the vendors and
// the capital events feed. Any feed that cannot be read fails with
// corpaction.ErrFetch.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/corpaction"
)

// httpGet downloads url and returns the body. Status codes of 400 and above
// are errors.
func httpGet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	subLog := log.With().Str("Url", url).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		subLog.Error().Err(err).Msg("http request failed")
		return nil, fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg("invalid response code")
		return nil, fmt.Errorf("%w: HTTP request returned invalid status code: %d", corpaction.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		subLog.Error().Err(err).Msg("could not read body")
		return nil, fmt.Errorf("%w: %w", corpaction.ErrFetch, err)
	}

	subLog.Debug().Int("Bytes", len(body)).Dur("Elapsed", time.Since(start)).Msg("downloaded feed")
	return body, nil
}
