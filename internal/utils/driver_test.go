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
	"testing"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestShortenDisplayName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jesse Doe", "Jesse D."},
		{"jesse doe", "jesse D."},
		{"Jan van Doe", "Jan D."},
		{"Madonna", "Madonna"},
		{"", ""},
		{"  Ayrton   Senna  ", "Ayrton S."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShortenDisplayName(tt.raw), "raw=%q", tt.raw)
	}
}

func TestMatchDriversByName(t *testing.T) {
	drivers := []models.Driver{
		{ExternalID: "1", ProviderName: "Jesse D."},
		{ExternalID: "2", ProviderName: "Maria K."},
		{ExternalID: "3", ProviderName: "Jess P."},
	}

	matches := MatchDriversByName(drivers, "maria")
	assert.Len(t, matches, 1)
	assert.Equal(t, "2", matches[0].ExternalID)

	// "jess" is a prefix of two provider names
	assert.Len(t, MatchDriversByName(drivers, "JESS"), 2)

	assert.Empty(t, MatchDriversByName(drivers, "nobody"))
	assert.Empty(t, MatchDriversByName(drivers, "  "))
}
