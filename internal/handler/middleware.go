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
	"time"

	"github.com/apexrank/apexrank/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuthMiddleware guards the administrative endpoints (persisting
// refresh, unlink). With no ADMIN_TOKEN configured those endpoints are
// disabled outright.
func (h *HttpHandlers) AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := h.Tracer.Start(c.Request.Context(), "AdminAuthMiddleware")
		defer span.End()

		if h.config.AdminToken == "" {
			h.logger.Warn("Admin endpoint hit but ADMIN_TOKEN is not configured")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin endpoints are disabled"})
			return
		}

		token := c.GetHeader(adminTokenHeader)
		if token == "" || !utils.SecureCompare(token, h.config.AdminToken) {
			h.logger.Warn("Invalid admin token", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}

func (h *HttpHandlers) LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		h.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
