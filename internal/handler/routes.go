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

import "github.com/gin-gonic/gin"

func (h *HttpHandlers) RegisterRoutes(router *gin.Engine) {
	router.Use(h.LoggerMiddleware())

	oauth := router.Group("/oauth")
	{
		oauth.GET("/login", h.HandleOAuthLogin)
		oauth.GET("/callback", h.HandleOAuthCallback)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/leaderboard", h.HandleGetLeaderboard)
		v1.GET("/drivers/:id", h.HandleGetDriver)

		admin := v1.Group("")
		admin.Use(h.AdminAuthMiddleware())
		{
			admin.POST("/leaderboard/refresh", h.HandleRefreshLeaderboard)
			admin.DELETE("/drivers/:id", h.HandleUnlinkDriver)
			admin.DELETE("/drivers", h.HandleUnlinkDriverByName)
		}
	}
}
