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

package handler

import (
	"net/http"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// standingEntry is one leaderboard row. Tokens never leave the store.
type standingEntry struct {
	Rank         int    `json:"rank"`
	ExternalID   string `json:"externalId"`
	ProviderName string `json:"providerName"`
	Rating       int    `json:"rating"`
	Delta        int    `json:"delta"`
}

func toStandings(drivers []models.Driver) []standingEntry {
	standings := make([]standingEntry, 0, len(drivers))
	for i, d := range drivers {
		delta := 0
		if d.LastRatingDelta != nil {
			delta = *d.LastRatingDelta
		}
		standings = append(standings, standingEntry{
			Rank:         i + 1,
			ExternalID:   d.ExternalID,
			ProviderName: d.ProviderName,
			Rating:       d.Rating(),
			Delta:        delta,
		})
	}
	return standings
}

// HandleGetLeaderboard computes the current standings without touching the
// persisted baseline, so intra-week views keep the weekly deltas intact.
func (h *HttpHandlers) HandleGetLeaderboard(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleGetLeaderboard")
	defer span.End()

	drivers, _, err := h.leaderboardService.Refresh(ctx, false)
	if err != nil {
		h.logger.Error("Failed to compute leaderboard", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"standings": toStandings(drivers)})
}

// HandleRefreshLeaderboard is the persisting run: it writes the re-ranked
// list back as the new baseline and announces the results in Discord.
func (h *HttpHandlers) HandleRefreshLeaderboard(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleRefreshLeaderboard")
	defer span.End()

	drivers, changes, err := h.leaderboardService.Refresh(ctx, true)
	if err != nil {
		h.logger.Error("Failed to refresh leaderboard", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh leaderboard"})
		return
	}
	span.SetAttributes(attribute.Int("leaderboard.rank_changes", len(changes)))

	if err := h.discordService.PostRankChanges(ctx, changes); err != nil {
		h.logger.Error("Failed to post rank changes to Discord", zap.Error(err))
	}
	if err := h.discordService.PostStandings(ctx, drivers); err != nil {
		h.logger.Error("Failed to post standings to Discord", zap.Error(err))
	}

	messages := make([]string, 0, len(changes))
	for _, change := range changes {
		messages = append(messages, change.Message())
	}
	c.JSON(http.StatusOK, gin.H{
		"standings":   toStandings(drivers),
		"rankChanges": messages,
	})
}
