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
	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/repository"
	"github.com/apexrank/apexrank/internal/service"
	"github.com/apexrank/apexrank/internal/storage"
	"github.com/apexrank/apexrank/internal/view"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// HttpHandlers holds application-wide state and dependencies.
type HttpHandlers struct {
	logger             *zap.Logger
	driverRepo         repository.DriverRepository
	sessions           storage.SessionStore
	oauth2Config       *oauth2.Config
	config             *config.Config
	iracingService     *service.IRacingService
	leaderboardService *service.LeaderboardService
	discordService     *service.DiscordService
	linkResult         *view.LinkResultRenderer
	Tracer             trace.Tracer
}

// NewHttpHandlers creates a new HttpHandlers instance.
func NewHttpHandlers(
	logger *zap.Logger,
	cfg *config.Config,
	driverRepo repository.DriverRepository,
	sessions storage.SessionStore,
	iracingService *service.IRacingService,
	leaderboardService *service.LeaderboardService,
	discordService *service.DiscordService,
	tracer trace.Tracer,
) *HttpHandlers {
	return &HttpHandlers{
		logger:             logger.Named("http_handler"),
		driverRepo:         driverRepo,
		sessions:           sessions,
		oauth2Config:       cfg.IRacingOAuthConfig,
		config:             cfg,
		iracingService:     iracingService,
		leaderboardService: leaderboardService,
		discordService:     discordService,
		linkResult:         view.NewLinkResultRenderer(logger),
		Tracer:             tracer,
	}
}
