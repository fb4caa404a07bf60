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
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// MaskClientSecret derives the client secret iRacing actually accepts at its
// token endpoint: base64(sha256(secret + lowercase(trim(clientID)))). The
// raw secret must never be sent as-is; every token request goes through this.
func MaskClientSecret(secret, clientID string) string {
	normalized := strings.ToLower(strings.TrimSpace(clientID))
	sum := sha256.Sum256([]byte(secret + normalized))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SecureCompare reports whether two tokens are equal without leaking timing
// information about the position of the first mismatch.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
