/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package variable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Version is a four-part Windows-style version (major.minor.build.revision),
// the form MSI product versions and bundle versions are expressed in
// (original_source/src/burn/engine/variant.cpp VERUTIL_VERSION). It is not a
// semantic version: each part is compared as an unsigned integer and there
// is no prerelease/build-metadata precedence rule.
type Version struct {
	Major, Minor, Build, Revision uint16
}

// ParseVersion parses a "1.2.3.4" style string. Between one and four parts
// are accepted; missing trailing parts default to zero.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 {
		return Version{}, errors.Errorf("invalid version %q: expected 1-4 dot-separated parts", s)
	}
	var v Version
	fields := []*uint16{&v.Major, &v.Minor, &v.Build, &v.Revision}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Version{}, errors.Wrapf(err, "invalid version %q", s)
		}
		*fields[i] = uint16(n)
	}
	return v, nil
}

// String renders the version in dotted form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, comparing major.minor.build.revision in that order.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]uint16{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Build, other.Build},
		{v.Revision, other.Revision},
	} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}
