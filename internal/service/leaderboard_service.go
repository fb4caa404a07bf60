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
	"fmt"
	"sort"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RankChange is emitted when a driver moved up the leaderboard since the
// last persisted pass. Downward movement and no-change emit nothing.
type RankChange struct {
	ExternalID   string
	ProviderName string
	From         int
	To           int
	Spots        int
	Rating       int
}

// Message renders the change the way it is announced in Discord.
func (c RankChange) Message() string {
	return fmt.Sprintf("%s moved up %d spots, now rank %d with %d rating", c.ProviderName, c.Spots, c.To, c.Rating)
}

// LeaderboardService fetches current ratings for every linked driver and
// computes the descending, densely ranked leaderboard.
type LeaderboardService struct {
	repo    repository.DriverRepository
	tokens  *TokenService
	iracing *IRacingService
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(repo repository.DriverRepository, tokens *TokenService, iracing *IRacingService, tracer trace.Tracer, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		repo:    repo,
		tokens:  tokens,
		iracing: iracing,
		tracer:  tracer,
		logger:  logger.Named("leaderboard_service"),
	}
}

// Refresh fetches fresh ratings, ranks the full driver list and returns it
// together with the rank-up events. With persist=false the stored baseline
// stays untouched, so intra-week views don't reset the "since last week"
// deltas; the scheduled run passes persist=true and writes the re-sorted
// list back as the new store state.
//
// A fetch failure for one driver never aborts the others: that driver simply
// keeps its last known rating for this pass.
func (s *LeaderboardService) Refresh(ctx context.Context, persist bool) ([]models.Driver, []RankChange, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.Refresh")
	defer span.End()
	span.SetAttributes(attribute.Bool("leaderboard.persist", persist))

	drivers, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	for i := range drivers {
		s.updateRating(ctx, &drivers[i])
	}

	// Stable sort keeps the stored order for ties, so repeated runs with
	// unchanged ratings produce unchanged relative order.
	sort.SliceStable(drivers, func(i, j int) bool {
		return drivers[i].Rating() > drivers[j].Rating()
	})

	var changes []RankChange
	for i := range drivers {
		rank := i + 1
		if prev := drivers[i].LastRank; prev != nil && rank < *prev {
			changes = append(changes, RankChange{
				ExternalID:   drivers[i].ExternalID,
				ProviderName: drivers[i].ProviderName,
				From:         *prev,
				To:           rank,
				Spots:        *prev - rank,
				Rating:       drivers[i].Rating(),
			})
		}
		r := rank
		drivers[i].LastRank = &r
	}

	span.SetAttributes(
		attribute.Int("leaderboard.drivers", len(drivers)),
		attribute.Int("leaderboard.rank_changes", len(changes)),
	)

	if persist {
		if err := s.repo.ReplaceAll(ctx, drivers); err != nil {
			span.RecordError(err)
			return nil, nil, fmt.Errorf("failed to persist leaderboard: %w", err)
		}
		s.logger.Info("Persisted leaderboard", zap.Int("drivers", len(drivers)), zap.Int("rankChanges", len(changes)))
	}

	return drivers, changes, nil
}

// updateRating fetches the driver's current iRating and applies the delta
// bookkeeping. On any failure the driver's previous value is left in place.
func (s *LeaderboardService) updateRating(ctx context.Context, driver *models.Driver) {
	token, err := s.tokens.GetValidAccessToken(ctx, driver)
	if err != nil {
		s.logger.Warn("Skipping driver, token refresh failed",
			zap.String("externalId", driver.ExternalID),
			zap.Error(err),
		)
		return
	}

	chart, err := s.iracing.GetIRatingChart(ctx, token)
	if err != nil {
		s.logger.Warn("Skipping driver, rating fetch failed",
			zap.String("externalId", driver.ExternalID),
			zap.Error(err),
		)
		return
	}
	if len(chart.Points) == 0 {
		s.logger.Warn("Skipping driver, empty rating series", zap.String("externalId", driver.ExternalID))
		return
	}

	fresh := chart.Points[len(chart.Points)-1].Value
	prev := fresh // first observation yields delta 0
	if driver.LastRatingValue != nil {
		prev = *driver.LastRatingValue
	}
	delta := fresh - prev
	driver.LastRatingValue = &fresh
	driver.LastRatingDelta = &delta

	s.logger.Debug("Updated driver rating",
		zap.String("externalId", driver.ExternalID),
		zap.Int("rating", fresh),
		zap.Int("delta", delta),
	)
}
