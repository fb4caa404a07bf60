/*
 *    Copyright 2025 apexrank
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package utils

import (
	"strings"
	"unicode"

	"github.com/apexrank/apexrank/internal/models"
)

// ShortenDisplayName reduces a full driver name to "First L." form, e.g.
// "Jesse Doe" becomes "Jesse D.". Names with fewer than two tokens are
// returned unmodified.
func ShortenDisplayName(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return raw
	}
	last := []rune(fields[len(fields)-1])
	return fields[0] + " " + string(unicode.ToUpper(last[0])) + "."
}

// MatchDriversByName returns the drivers whose provider name contains the
// query, case-insensitively. Used by unlink-by-name, which only acts when
// exactly one driver matches.
func MatchDriversByName(drivers []models.Driver, query string) []models.Driver {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var matches []models.Driver
	for _, d := range drivers {
		if strings.Contains(strings.ToLower(d.ProviderName), q) {
			matches = append(matches, d)
		}
	}
	return matches
}
