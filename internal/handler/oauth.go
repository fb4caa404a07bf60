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
	"errors"
	"fmt"
	"net/http"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/storage"
	"github.com/apexrank/apexrank/internal/utils"
	"github.com/apexrank/apexrank/internal/view"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// unknownDriverName is stored when the profile fetch after linking fails; a
// missing name must never abort the linking flow.
const unknownDriverName = "Unknown"

// HandleOAuthLogin starts the PKCE link flow. The caller's Discord user id
// arrives as the OAuth state and keys the pending session.
func (h *HttpHandlers) HandleOAuthLogin(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleOAuthLogin")
	defer span.End()

	state := c.Query("state")
	if state == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing state parameter"})
		return
	}
	span.SetAttributes(attribute.String("oauth.state", state))

	challenge, err := h.sessions.Begin(ctx, state)
	if err != nil {
		h.logger.Error("Failed to create oauth session", zap.Error(err))
		span.RecordError(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to start link flow"})
		return
	}

	authURL := h.oauth2Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	c.Redirect(http.StatusFound, authURL)
}

// HandleOAuthCallback finishes the link flow: consume the PKCE session,
// exchange the code, resolve the driver's name and upsert the record.
func (h *HttpHandlers) HandleOAuthCallback(c *gin.Context) {
	ctx, span := h.Tracer.Start(c.Request.Context(), "HandleOAuthCallback")
	defer span.End()

	if errMsg := c.Query("error"); errMsg != "" {
		h.logger.Warn("iRacing OAuth callback returned an error", zap.String("providerError", errMsg))
		h.linkResult.Render(c.Writer, http.StatusBadRequest, view.LinkResultData{Error: "iRacing OAuth error: " + errMsg})
		c.Abort()
		return
	}

	code := c.Query("code")
	if code == "" {
		h.linkResult.Render(c.Writer, http.StatusBadRequest, view.LinkResultData{Error: "Missing authorization code"})
		c.Abort()
		return
	}

	state := c.Query("state")
	verifier, err := h.sessions.Consume(ctx, state)
	if err != nil {
		h.logger.Warn("Failed to consume oauth session", zap.String("state", state), zap.Error(err))
		span.RecordError(err)
		msg := "Invalid link attempt"
		if errors.Is(err, storage.ErrSessionExpired) {
			msg = "Link attempt expired"
		} else if errors.Is(err, storage.ErrSessionNotFound) {
			msg = "No pending link attempt found"
		}
		h.linkResult.Render(c.Writer, http.StatusBadRequest, view.LinkResultData{Error: msg})
		c.Abort()
		return
	}

	token, err := h.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		h.logger.Error("Failed to exchange iRacing code", zap.Error(err))
		span.RecordError(err)
		msg := "Failed to exchange authorization code"
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			msg = fmt.Sprintf("iRacing rejected the exchange: %s: %s", retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		h.linkResult.Render(c.Writer, http.StatusInternalServerError, view.LinkResultData{Error: msg})
		c.Abort()
		return
	}
	span.SetAttributes(attribute.Bool("iracing.token_exchanged", true))

	// Best effort: a failed profile fetch falls back to "Unknown" instead
	// of aborting the link.
	displayName := unknownDriverName
	profile, err := h.iracingService.GetMemberProfile(ctx, token.AccessToken)
	if err != nil {
		h.logger.Warn("Failed to fetch iRacing profile, storing driver as Unknown", zap.Error(err))
		span.RecordError(err)
	} else if profile.DisplayName != "" {
		displayName = utils.ShortenDisplayName(profile.DisplayName)
	}

	driver := models.Driver{
		ExternalID:   state,
		ProviderName: displayName,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UnixMilli(),
	}

	// Relinking replaces identity and tokens but keeps the leaderboard
	// history.
	existing, err := h.driverRepo.Get(ctx, state)
	if err == nil && existing != nil {
		driver.LastRatingValue = existing.LastRatingValue
		driver.LastRatingDelta = existing.LastRatingDelta
		driver.LastRank = existing.LastRank
	}

	if err := h.driverRepo.Upsert(ctx, &driver); err != nil {
		h.logger.Error("Failed to store driver", zap.Error(err))
		span.RecordError(err)
		h.linkResult.Render(c.Writer, http.StatusInternalServerError, view.LinkResultData{Error: "Failed to store linked account"})
		c.Abort()
		return
	}

	h.logger.Info("Linked iRacing account",
		zap.String("externalId", state),
		zap.String("providerName", displayName),
	)
	span.SetAttributes(
		attribute.String("driver.external_id", state),
		attribute.String("driver.provider_name", displayName),
	)

	h.linkResult.Render(c.Writer, http.StatusOK, view.LinkResultData{DisplayName: displayName})
}
