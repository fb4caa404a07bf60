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

	"github.com/apexrank/apexrank/internal/utils"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HandleGetDriver reports whether a Discord user has a linked iRacing
// account, without exposing the stored tokens.
func (h *HttpHandlers) HandleGetDriver(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleGetDriver")
	defer span.End()

	externalID := c.Param("id")
	driver, err := h.driverRepo.Get(ctx, externalID)
	if err != nil {
		h.logger.Error("Failed to get driver", zap.Error(err), zap.String("externalId", externalID))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve driver"})
		return
	}
	if driver == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No linked account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"externalId":      driver.ExternalID,
		"providerName":    driver.ProviderName,
		"lastRatingValue": driver.LastRatingValue,
		"lastRatingDelta": driver.LastRatingDelta,
		"lastRank":        driver.LastRank,
	})
}

// HandleUnlinkDriver removes a linked account by Discord user id.
func (h *HttpHandlers) HandleUnlinkDriver(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleUnlinkDriver")
	defer span.End()

	externalID := c.Param("id")
	span.SetAttributes(attribute.String("driver.external_id", externalID))

	if err := h.driverRepo.Delete(ctx, externalID); err != nil {
		h.logger.Warn("Failed to unlink driver", zap.Error(err), zap.String("externalId", externalID))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No linked account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unlinked": externalID})
}

// HandleUnlinkDriverByName removes a linked account by fuzzy name match. It
// only acts when the query matches exactly one driver; zero or multiple
// matches remove nothing and report what happened.
func (h *HttpHandlers) HandleUnlinkDriverByName(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleUnlinkDriverByName")
	defer span.End()

	query := c.Query("name")
	if query == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing name parameter"})
		return
	}

	drivers, err := h.driverRepo.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list drivers", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to list drivers"})
		return
	}

	matches := utils.MatchDriversByName(drivers, query)
	switch len(matches) {
	case 0:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No driver matches " + query})
	case 1:
		if err := h.driverRepo.Delete(ctx, matches[0].ExternalID); err != nil {
			h.logger.Error("Failed to unlink driver by name", zap.Error(err), zap.String("externalId", matches[0].ExternalID))
			span.RecordError(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlink driver"})
			return
		}
		h.logger.Info("Unlinked driver by name",
			zap.String("externalId", matches[0].ExternalID),
			zap.String("providerName", matches[0].ProviderName),
		)
		c.JSON(http.StatusOK, gin.H{"unlinked": matches[0].ExternalID, "providerName": matches[0].ProviderName})
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.ProviderName)
		}
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":   "Multiple drivers match " + query,
			"matches": names,
		})
	}
}
