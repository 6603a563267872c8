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

package corpaction

import (
	"errors"
	"fmt"
)

var (
	ErrFetch           = errors.New("could not fetch data from external source")
	ErrMalformedRecord = errors.New("malformed corporate action record")
	ErrSymbologyFetch  = fmt.Errorf("symbology lookup failed: %w", ErrFetch)
	ErrInvalidWindow   = errors.New("window end is before window start")
	ErrMissingKeyField = errors.New("record is missing a key field")
)
