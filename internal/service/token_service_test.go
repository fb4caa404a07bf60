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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/repository"
	"github.com/apexrank/apexrank/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func testConfig(tokenURL, dataAPIURL string) *config.Config {
	cfg := &config.Config{
		IRacingClientID:     "client-id",
		IRacingClientSecret: "secret",
		IRacingTokenURL:     tokenURL,
		IRacingDataAPIURL:   dataAPIURL,
		IRacingCategoryID:   2,
	}
	cfg.IRacingOAuthConfig = &oauth2.Config{
		ClientID:     cfg.IRacingClientID,
		ClientSecret: utils.MaskClientSecret(cfg.IRacingClientSecret, cfg.IRacingClientID),
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return cfg
}

func newTokenService(cfg *config.Config, repo repository.DriverRepository) *TokenService {
	logger := zap.NewNop()
	tracer := otel.Tracer("test")
	return NewTokenService(repo, NewIRacingService(tracer, logger, cfg), tracer, logger)
}

func TestGetValidAccessTokenSkipsRefreshInsideBuffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected for a still-valid token")
	}))
	defer server.Close()

	repo := repository.NewInMemoryDriverRepository(zap.NewNop())
	svc := newTokenService(testConfig(server.URL, server.URL), repo)

	driver := &models.Driver{
		ExternalID:   "discord-1",
		AccessToken:  "still-valid",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().UnixMilli() + 120_000,
	}

	token, err := svc.GetValidAccessToken(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, "still-valid", token)
	assert.Equal(t, "refresh-1", driver.RefreshToken)
}

func TestGetValidAccessTokenRefreshesExpiredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, utils.MaskClientSecret("secret", "client-id"), r.PostForm.Get("client_secret"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","refresh_token":"refresh-2","expires_in":3600}`))
	}))
	defer server.Close()

	repo := repository.NewInMemoryDriverRepository(zap.NewNop())
	svc := newTokenService(testConfig(server.URL, server.URL), repo)

	before := time.Now().UnixMilli()
	driver := &models.Driver{
		ExternalID:   "discord-1",
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    before - 1,
	}

	token, err := svc.GetValidAccessToken(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, "refresh-2", driver.RefreshToken)
	assert.Greater(t, driver.ExpiresAt, before)

	// The refreshed credential is persisted before the token is returned.
	stored, err := repo.Get(context.Background(), "discord-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestGetValidAccessTokenRetainsRefreshTokenWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
	}))
	defer server.Close()

	repo := repository.NewInMemoryDriverRepository(zap.NewNop())
	svc := newTokenService(testConfig(server.URL, server.URL), repo)

	driver := &models.Driver{
		ExternalID:   "discord-1",
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    0,
	}

	_, err := svc.GetValidAccessToken(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", driver.RefreshToken)
}

func TestGetValidAccessTokenSurfacesRefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}))
	defer server.Close()

	repo := repository.NewInMemoryDriverRepository(zap.NewNop())
	svc := newTokenService(testConfig(server.URL, server.URL), repo)

	driver := &models.Driver{
		ExternalID:   "discord-1",
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    0,
	}

	_, err := svc.GetValidAccessToken(context.Background(), driver)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}
