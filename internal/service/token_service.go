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

package service

import (
	"context"
	"time"

	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TokenService hands out currently-valid access tokens for stored drivers,
// refreshing and persisting them when they are about to expire.
type TokenService struct {
	repo    repository.DriverRepository
	iracing *IRacingService
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(repo repository.DriverRepository, iracing *IRacingService, tracer trace.Tracer, logger *zap.Logger) *TokenService {
	return &TokenService{
		repo:    repo,
		iracing: iracing,
		tracer:  tracer,
		logger:  logger.Named("token_service"),
	}
}

// GetValidAccessToken returns an access token that is good for at least the
// expiry buffer. When a refresh is needed the driver record is updated in
// place and persisted before the new token is returned.
func (s *TokenService) GetValidAccessToken(ctx context.Context, driver *models.Driver) (string, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.GetValidAccessToken")
	defer span.End()
	span.SetAttributes(attribute.String("driver.external_id", driver.ExternalID))

	now := time.Now().UnixMilli()
	if now < driver.ExpiresAt-config.TokenExpiryBuffer.Milliseconds() {
		return driver.AccessToken, nil
	}

	tokenResp, err := s.iracing.RefreshToken(ctx, driver.RefreshToken)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	driver.AccessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		// iRacing rotates refresh tokens; keep the old one when a new one
		// is omitted.
		driver.RefreshToken = tokenResp.RefreshToken
	}
	driver.ExpiresAt = time.Now().UnixMilli() + tokenResp.ExpiresIn*1000

	if err := s.repo.Upsert(ctx, driver); err != nil {
		span.RecordError(err)
		return "", err
	}

	s.logger.Info("Refreshed access token",
		zap.String("externalId", driver.ExternalID),
		zap.Int64("expiresAt", driver.ExpiresAt),
	)
	return driver.AccessToken, nil
}
