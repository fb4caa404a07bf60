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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/repository"
	"github.com/apexrank/apexrank/internal/service"
	"github.com/apexrank/apexrank/internal/storage"
	"github.com/apexrank/apexrank/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// oauthFixture wires the handlers against a fake iRacing provider serving
// the token endpoint and the two-hop member info endpoint.
type oauthFixture struct {
	router   *gin.Engine
	repo     repository.DriverRepository
	provider *httptest.Server

	lastVerifier string
	profileFails bool
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	fx := &oauthFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, utils.MaskClientSecret("secret", "client-id"), r.PostForm.Get("client_secret"))
		fx.lastVerifier = r.PostForm.Get("code_verifier")

		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"unknown code"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":600}`)
	})
	mux.HandleFunc("/data/member/info", func(w http.ResponseWriter, r *http.Request) {
		if fx.profileFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"link":"%s/member.json"}`, fx.provider.URL)
	})
	mux.HandleFunc("/member.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"cust_id":123,"display_name":"Jesse Doe"}`)
	})
	fx.provider = httptest.NewServer(mux)
	t.Cleanup(fx.provider.Close)

	cfg := &config.Config{
		IRacingClientID:     "client-id",
		IRacingClientSecret: "secret",
		IRacingAuthURL:      fx.provider.URL + "/authorize",
		IRacingTokenURL:     fx.provider.URL + "/token",
		IRacingDataAPIURL:   fx.provider.URL,
		IRacingCategoryID:   2,
		AdminToken:          "admin-token",
	}
	cfg.IRacingOAuthConfig = &oauth2.Config{
		ClientID:     cfg.IRacingClientID,
		ClientSecret: utils.MaskClientSecret(cfg.IRacingClientSecret, cfg.IRacingClientID),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{"iracing.auth", "iracing.profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.IRacingAuthURL,
			TokenURL:  cfg.IRacingTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	logger := zap.NewNop()
	tracer := otel.Tracer("test")
	fx.repo = repository.NewInMemoryDriverRepository(logger)
	sessions := storage.NewInMemorySessionStore(config.SessionTTL, logger)
	iracingService := service.NewIRacingService(tracer, logger, cfg)
	tokenService := service.NewTokenService(fx.repo, iracingService, tracer, logger)
	leaderboardService := service.NewLeaderboardService(fx.repo, tokenService, iracingService, tracer, logger)
	discordService := service.NewDiscordService("", tracer, logger)

	handlers := NewHttpHandlers(logger, cfg, fx.repo, sessions, iracingService, leaderboardService, discordService, tracer)
	fx.router = gin.New()
	handlers.RegisterRoutes(fx.router)
	return fx
}

func (fx *oauthFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	fx.router.ServeHTTP(w, req)
	return w
}

// beginLogin runs the login redirect and returns the code_challenge it
// carried.
func (fx *oauthFixture) beginLogin(t *testing.T, state string) string {
	t.Helper()
	w := fx.get("/oauth/login?state=" + state)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	challenge := location.Query().Get("code_challenge")
	require.NotEmpty(t, challenge)
	return challenge
}

func TestLoginRedirectsWithPKCEChallenge(t *testing.T) {
	fx := newOAuthFixture(t)

	w := fx.get("/oauth/login?state=discord-1")
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", location.Path)

	query := location.Query()
	assert.Equal(t, "discord-1", query.Get("state"))
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
}

func TestLoginRequiresState(t *testing.T) {
	fx := newOAuthFixture(t)

	w := fx.get("/oauth/login")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackRequiresCode(t *testing.T) {
	fx := newOAuthFixture(t)

	w := fx.get("/oauth/callback?state=discord-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing authorization code")
}

func TestCallbackSurfacesProviderError(t *testing.T) {
	fx := newOAuthFixture(t)

	w := fx.get("/oauth/callback?error=access_denied&state=discord-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "access_denied")
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	fx := newOAuthFixture(t)

	w := fx.get("/oauth/callback?code=good-code&state=never-began")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No pending link attempt")
}

func TestCallbackLinksAccount(t *testing.T) {
	fx := newOAuthFixture(t)
	challenge := fx.beginLogin(t, "discord-1")

	w := fx.get("/oauth/callback?code=good-code&state=discord-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Jesse D.")

	// The exchange carried the verifier that matches the login challenge.
	assert.Equal(t, challenge, oauth2.S256ChallengeFromVerifier(fx.lastVerifier))

	driver, err := fx.repo.Get(context.Background(), "discord-1")
	require.NoError(t, err)
	require.NotNil(t, driver)
	assert.Equal(t, "Jesse D.", driver.ProviderName)
	assert.Equal(t, "access-1", driver.AccessToken)
	assert.Equal(t, "refresh-1", driver.RefreshToken)
	assert.Positive(t, driver.ExpiresAt)
}

func TestCallbackIsSingleUse(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.beginLogin(t, "discord-1")

	w := fx.get("/oauth/callback?code=good-code&state=discord-1")
	require.Equal(t, http.StatusOK, w.Code)

	// Replaying the callback finds no pending session.
	w = fx.get("/oauth/callback?code=good-code&state=discord-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No pending link attempt")
}

func TestCallbackFallsBackToUnknownName(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.profileFails = true
	fx.beginLogin(t, "discord-1")

	w := fx.get("/oauth/callback?code=good-code&state=discord-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown")

	driver, err := fx.repo.Get(context.Background(), "discord-1")
	require.NoError(t, err)
	require.NotNil(t, driver)
	assert.Equal(t, "Unknown", driver.ProviderName)
	assert.Equal(t, "access-1", driver.AccessToken)
}

func TestCallbackRelinkKeepsLeaderboardHistory(t *testing.T) {
	fx := newOAuthFixture(t)

	rating, delta, rank := 1500, 25, 2
	require.NoError(t, fx.repo.Upsert(context.Background(), &models.Driver{
		ExternalID:      "discord-1",
		ProviderName:    "Old N.",
		AccessToken:     "old-access",
		RefreshToken:    "old-refresh",
		LastRatingValue: &rating,
		LastRatingDelta: &delta,
		LastRank:        &rank,
	}))

	fx.beginLogin(t, "discord-1")
	w := fx.get("/oauth/callback?code=good-code&state=discord-1")
	require.Equal(t, http.StatusOK, w.Code)

	driver, err := fx.repo.Get(context.Background(), "discord-1")
	require.NoError(t, err)
	require.NotNil(t, driver)
	assert.Equal(t, "Jesse D.", driver.ProviderName)
	assert.Equal(t, "access-1", driver.AccessToken)
	require.NotNil(t, driver.LastRatingValue)
	assert.Equal(t, 1500, *driver.LastRatingValue)
	assert.Equal(t, 25, *driver.LastRatingDelta)
	assert.Equal(t, 2, *driver.LastRank)
}

func TestCallbackRejectedExchange(t *testing.T) {
	fx := newOAuthFixture(t)
	fx.beginLogin(t, "discord-1")

	w := fx.get("/oauth/callback?code=bad-code&state=discord-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_grant")
}
