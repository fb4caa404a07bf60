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

package iracing

// TokenResponse is the iRacing OAuth token endpoint response for both the
// authorization_code and refresh_token grants. Error is set instead of the
// token fields when the request was rejected.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// LinkEnvelope is the first hop of the Data API's two-hop response pattern:
// an authenticated request returns a short-lived unauthenticated link to the
// actual payload.
type LinkEnvelope struct {
	Link    string `json:"link"`
	Expires string `json:"expires,omitempty"`
}

// MemberInfo is the subset of /data/member/info we care about.
type MemberInfo struct {
	CustID      int64  `json:"cust_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// ChartPoint is one observation in a rating time series.
type ChartPoint struct {
	When  string `json:"when"`
	Value int    `json:"value"`
}

// ChartData is the /data/member/chart_data payload. Points are ordered
// oldest first; the last point is the current rating.
type ChartData struct {
	Blackout   bool         `json:"blackout"`
	CategoryID int          `json:"category_id"`
	ChartType  int          `json:"chart_type"`
	Points     []ChartPoint `json:"data"`
}
