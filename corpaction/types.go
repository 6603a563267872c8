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
	"fmt"
	"strings"
	"time"
)

// Type is the kind of corporate action
type Type string

const (
	StockDividendType   Type = "STOCK_DIVIDEND"
	StockSplitType      Type = "STOCK_SPLIT"
	RightsIssueType     Type = "RIGHTS_ISSUE"
	CashDividendType    Type = "CASH_DIVIDEND"
	SpecialDividendType Type = "SPECIAL_DIVIDEND"
)

// IsCash returns true for cash and special dividends
func (t Type) IsCash() bool {
	return t == CashDividendType || t == SpecialDividendType
}

// TaxationType classifies the tax treatment of a cash dividend
type TaxationType string

const (
	TaxUnknown           TaxationType = ""
	TaxDefault           TaxationType = "DEFAULT"
	TaxInterestOnCapital TaxationType = "INTEREST_ON_CAPITAL"
	TaxReturnOfCapital   TaxationType = "RETURN_OF_CAPITAL"
	TaxREIT              TaxationType = "REIT"
	TaxPID               TaxationType = "PID"
)

// Vendor identifies the source of a corporate action record
type Vendor string

const (
	Reuters  Vendor = "Reuters"
	EDI      Vendor = "EDI"
	Platform Vendor = "Plat"
)

// Vendors in the order they appear in reports
var Vendors = []Vendor{Reuters, EDI, Platform}

// Pair is an ordered combination of two vendors whose values are compared
type Pair struct {
	A Vendor
	B Vendor
}

func (p Pair) String() string {
	return fmt.Sprintf("%s-%s", p.A, p.B)
}

var (
	ReutersEDI      = Pair{A: Reuters, B: EDI}
	ReutersPlatform = Pair{A: Reuters, B: Platform}
	EDIPlatform     = Pair{A: EDI, B: Platform}

	// Pairs lists every vendor combination that gets an agreement flag
	Pairs = []Pair{ReutersEDI, ReutersPlatform, EDIPlatform}
)

// Column names shared by every vendor table
const (
	ColStockDividend     = "Stock Dividend"
	ColRelation          = "Relation"
	ColTerms             = "Terms"
	ColSubscriptionPrice = "Subscription Price"
	ColCurrency          = "Currency"
	ColGross             = "GROSS"
	ColNet               = "NET"
)

const DateFormat = "2006-01-02"

// NoDate is the sentinel used when a vendor explicitly reports an unknown date
var NoDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// DateOf truncates t to a calendar date in UTC so dates compare with ==
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Exchange returns the RIC suffix after the first '.', e.g. "SA" for PETR4.SA
func Exchange(ric string) string {
	parts := strings.Split(ric, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Key is the business key that vendor records are joined on
type Key struct {
	RIC           string
	Type          Type
	ExecutionDate time.Time
	TaxationType  TaxationType
}

// Base returns the key without the taxation type; Reuters records only
// carry the base key
func (k Key) Base() Key {
	return Key{
		RIC:           k.RIC,
		Type:          k.Type,
		ExecutionDate: DateOf(k.ExecutionDate),
	}
}

// ID is a string form of the key suitable for map lookups
func (k Key) ID() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.RIC, k.Type, DateOf(k.ExecutionDate).Format(DateFormat), k.TaxationType)
}

func (k Key) String() string {
	if k.TaxationType == TaxUnknown {
		return fmt.Sprintf("%s %s %s", k.RIC, k.Type, k.ExecutionDate.Format(DateFormat))
	}
	return fmt.Sprintf("%s %s %s %s", k.RIC, k.Type, k.ExecutionDate.Format(DateFormat), k.TaxationType)
}

// Window is an inclusive range of execution dates
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow creates a window and validates that it is not inverted
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: DateOf(start), End: DateOf(end)}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: %s is before %s", ErrInvalidWindow, w.End.Format(DateFormat), w.Start.Format(DateFormat))
	}
	return w, nil
}

// Contains reports whether the date of t lies inside the window
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(DateFormat), w.End.Format(DateFormat))
}
