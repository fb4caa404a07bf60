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
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// InMemorySessionStore keeps pending OAuth link attempts in a process-local
// map. Expired entries are evicted opportunistically on every Begin.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewInMemorySessionStore creates a new InMemorySessionStore.
func NewInMemorySessionStore(ttl time.Duration, logger *zap.Logger) *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		logger:   logger.Named("inmemory_session_store"),
		now:      time.Now,
	}
}

func (s *InMemorySessionStore) Begin(ctx context.Context, state string) (string, error) {
	verifier := oauth2.GenerateVerifier()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, key)
			s.logger.Debug("Evicted expired oauth session", zap.String("state", key))
		}
	}

	s.sessions[state] = Session{Verifier: verifier, CreatedAt: now}
	s.logger.Info("Created oauth session", zap.String("state", state))
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}

func (s *InMemorySessionStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found := s.sessions[state]
	if !found {
		s.logger.Warn("Oauth session not found", zap.String("state", state))
		return "", ErrSessionNotFound
	}
	delete(s.sessions, state)

	if s.now().Sub(sess.CreatedAt) > s.ttl {
		s.logger.Warn("Oauth session expired", zap.String("state", state), zap.Time("createdAt", sess.CreatedAt))
		return "", ErrSessionExpired
	}
	return sess.Verifier, nil
}

func (s *InMemorySessionStore) Close() error {
	return nil
}
