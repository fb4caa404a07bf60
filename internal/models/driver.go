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

package models

// Driver is the stored link between a Discord user and an iRacing account,
// including the credentials needed to query iRacing on the user's behalf and
// the last leaderboard observations.
type Driver struct {
	// ExternalID is the Discord user id that owns this link. Unique key.
	ExternalID string `firestore:"externalId" json:"externalId"`

	// ProviderName is the display name resolved from the iRacing profile,
	// shortened to "First L." form. "Unknown" when the profile fetch failed.
	ProviderName string `firestore:"providerName" json:"providerName"`

	AccessToken  string `firestore:"accessToken" json:"accessToken"`
	RefreshToken string `firestore:"refreshToken" json:"refreshToken"`

	// ExpiresAt is the epoch-millisecond timestamp after which AccessToken
	// must be refreshed before use.
	ExpiresAt int64 `firestore:"expiresAt" json:"expiresAt"`

	// LastRatingValue is the last observed iRating, absent until the first
	// successful fetch. LastRatingDelta is the signed difference between the
	// two most recent observations. LastRank is the dense 1-based rank from
	// the most recent persisted leaderboard pass.
	LastRatingValue *int `firestore:"lastRatingValue,omitempty" json:"lastRatingValue,omitempty"`
	LastRatingDelta *int `firestore:"lastRatingDelta,omitempty" json:"lastRatingDelta,omitempty"`
	LastRank        *int `firestore:"lastRank,omitempty" json:"lastRank,omitempty"`
}

// Rating returns the last observed rating, treating "never observed" as 0
// for ranking purposes.
func (d *Driver) Rating() int {
	if d.LastRatingValue == nil {
		return 0
	}
	return *d.LastRatingValue
}
