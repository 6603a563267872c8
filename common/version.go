// Copyright 2021 JD Fergason
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

package common

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// Program is the name of the command line tool
const Program = "cavalidator"

var (
	// commitHash, buildDate and vendorInfo are set at link time by mage
	commitHash string
	buildDate  string
	vendorInfo string
)

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix != "" {
		sb.WriteString("-" + v.Suffix)
		if commitHash != "" {
			sb.WriteString("+" + strings.ToLower(commitHash))
		}
	}
	return sb.String()
}

// Dependencies lists the modules compiled into the binary as path="version"
func Dependencies() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)
	return deps
}

// BuildVersionString describes the build; it is printed by the version
// command
func BuildVersionString(withDeps bool) string {
	date := buildDate
	if date == "" {
		date = "unknown"
	}

	lines := []string{
		fmt.Sprintf("%s v%s %s/%s", Program, CurrentVersion, runtime.GOOS, runtime.GOARCH),
		"",
		"Build Date: " + date,
		"Commit: " + commitHash,
		"Built with: " + runtime.Version(),
	}
	if vendorInfo != "" {
		lines = append(lines, "Vendor Info: "+vendorInfo)
	}
	if withDeps {
		lines = append(lines, "", "Dependencies:", "")
		lines = append(lines, Dependencies()...)
	}
	return strings.Join(lines, "\n")
}
