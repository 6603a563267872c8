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

package report

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"

	"github.com/penny-vault/ca-validator/config"
	"github.com/penny-vault/ca-validator/corpaction"
	"github.com/penny-vault/ca-validator/upload"
)

// DigestSuffix is appended to the workbook path to name its digest file
const DigestSuffix = ".b3"

// Write renders the workbook to conf.Output and, when enabled, a blake3
// digest next to it. The output is written only after the whole workbook
// was built.
func Write(ctx context.Context, res upload.Result, window corpaction.Window, conf config.Report) error {
	subLog := log.With().Str("Output", conf.Output).Logger()

	f, err := Build(ctx, res, window)
	if err != nil {
		subLog.Error().Err(err).Msg("could not build workbook")
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			subLog.Warn().Err(err).Msg("could not close workbook")
		}
	}()

	if err := f.SaveAs(conf.Output); err != nil {
		subLog.Error().Err(err).Msg("could not save workbook")
		return fmt.Errorf("save %s: %w", conf.Output, err)
	}

	if conf.Digest {
		digest, err := Digest(conf.Output)
		if err != nil {
			subLog.Error().Err(err).Msg("could not compute workbook digest")
			return err
		}
		line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(conf.Output))
		if err := os.WriteFile(conf.Output+DigestSuffix, []byte(line), 0o644); err != nil {
			subLog.Error().Err(err).Msg("could not write workbook digest")
			return err
		}
		subLog.Debug().Str("Digest", digest).Msg("wrote workbook digest")
	}

	subLog.Info().Msg("file successfully created")
	return nil
}

// Digest returns the hex encoded blake3 hash of the file at fn
func Digest(fn string) (string, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	h := blake3.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
