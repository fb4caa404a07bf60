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

package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when no pending link attempt exists for
	// a state value, including replays of an already-consumed callback.
	ErrSessionNotFound = errors.New("oauth session not found")

	// ErrSessionExpired is returned when the link attempt outlived its TTL.
	// The entry is removed regardless; the user must restart linking.
	ErrSessionExpired = errors.New("oauth session expired")
)

// Session is a pending OAuth link attempt, keyed by the opaque state value.
type Session struct {
	// Verifier is the PKCE code verifier whose S256 digest was sent to the
	// authorization endpoint as the code challenge.
	Verifier  string    `firestore:"verifier"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// SessionStore holds pending OAuth link attempts between the authorize
// redirect and the provider callback.
type SessionStore interface {
	// Begin creates a session for state and returns the S256 code challenge
	// to embed in the authorization URL.
	Begin(ctx context.Context, state string) (challenge string, err error)

	// Consume atomically looks up and deletes the session for state,
	// returning its verifier. A session can be consumed at most once.
	Consume(ctx context.Context, state string) (verifier string, err error)

	Close() error
}
