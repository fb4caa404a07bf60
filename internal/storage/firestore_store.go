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
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sessionCollection = "oauth_sessions"

// FirestoreSessionStore keeps pending OAuth link attempts in Firestore so a
// callback can land on a different instance than the one that started the
// flow.
type FirestoreSessionStore struct {
	client *firestore.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewFirestoreSessionStore creates a new FirestoreSessionStore.
func NewFirestoreSessionStore(ctx context.Context, projectID string, ttl time.Duration, logger *zap.Logger) (*FirestoreSessionStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("firestore_session_store"),
	}, nil
}

func (s *FirestoreSessionStore) Begin(ctx context.Context, state string) (string, error) {
	verifier := oauth2.GenerateVerifier()
	now := time.Now()

	s.evictExpired(ctx, now)

	_, err := s.client.Collection(sessionCollection).Doc(state).Set(ctx, Session{
		Verifier:  verifier,
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store oauth session: %w", err)
	}
	s.logger.Info("Created oauth session", zap.String("state", state))
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}

func (s *FirestoreSessionStore) Consume(ctx context.Context, state string) (string, error) {
	docRef := s.client.Collection(sessionCollection).Doc(state)
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			s.logger.Warn("Oauth session not found", zap.String("state", state))
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to get oauth session: %w", err)
	}

	var sess Session
	if err := doc.DataTo(&sess); err != nil {
		return "", fmt.Errorf("failed to decode oauth session: %w", err)
	}

	// Single-use: the entry goes away even when the expiry check below fails.
	if _, err := docRef.Delete(ctx); err != nil {
		return "", fmt.Errorf("failed to delete oauth session: %w", err)
	}

	if time.Since(sess.CreatedAt) > s.ttl {
		s.logger.Warn("Oauth session expired", zap.String("state", state), zap.Time("createdAt", sess.CreatedAt))
		return "", ErrSessionExpired
	}
	return sess.Verifier, nil
}

// evictExpired removes sessions older than the TTL. Failures are logged
// only; expired entries are still rejected at Consume time.
func (s *FirestoreSessionStore) evictExpired(ctx context.Context, now time.Time) {
	iter := s.client.Collection(sessionCollection).Where("createdAt", "<", now.Add(-s.ttl)).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err != nil {
			if !errors.Is(err, iterator.Done) {
				s.logger.Warn("Failed to sweep expired oauth sessions", zap.Error(err))
			}
			return
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			s.logger.Warn("Failed to delete expired oauth session", zap.String("state", doc.Ref.ID), zap.Error(err))
		}
	}
}

func (s *FirestoreSessionStore) Close() error {
	return s.client.Close()
}
