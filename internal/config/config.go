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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/apexrank/apexrank/internal/utils"
	"golang.org/x/oauth2"
)

const (
	// SessionTTL is how long a pending OAuth link attempt stays valid.
	SessionTTL = 10 * time.Minute

	// TokenExpiryBuffer is subtracted from a stored token's expiry so we
	// refresh slightly before the provider would reject it.
	TokenExpiryBuffer = time.Minute
)

// Config holds the application configuration values.
type Config struct {
	Port                 string
	IRacingClientID      string
	IRacingClientSecret  string
	IRacingAuthURL       string
	IRacingTokenURL      string
	IRacingDataAPIURL    string
	IRacingScopes        []string
	IRacingCategoryID    int
	AppBaseURL           string
	SecretKey            string
	StorageType          string
	StorePath            string
	GCPProjectID         string
	DiscordWebhookURL    string
	AdminToken           string
	RefreshInterval      time.Duration
	OtelExporterEndpoint string
	IRacingOAuthConfig   *oauth2.Config
	Version              string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		IRacingClientID:      getEnv("IRACING_CLIENT_ID", ""),
		IRacingClientSecret:  getEnv("IRACING_CLIENT_SECRET", ""),
		IRacingAuthURL:       getEnv("IRACING_AUTH_URL", "https://oauth.iracing.com/oauth2/authorize"),
		IRacingTokenURL:      getEnv("IRACING_TOKEN_URL", "https://oauth.iracing.com/oauth2/token"),
		IRacingDataAPIURL:    getEnv("IRACING_DATA_API_URL", "https://members-ng.iracing.com"),
		IRacingScopes:        utils.SplitAndTrim(getEnv("IRACING_SCOPES", "iracing.auth,iracing.profile"), ","),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:8080"),
		SecretKey:            getEnv("SECRET_KEY", ""),
		StorageType:          getEnv("STORAGE_TYPE", "file"),
		StorePath:            getEnv("STORE_PATH", "data/drivers.json"),
		GCPProjectID:         getEnv("GCP_PROJECT_ID", ""),
		DiscordWebhookURL:    getEnv("DISCORD_WEBHOOK_URL", ""),
		AdminToken:           getEnv("ADMIN_TOKEN", ""),
		OtelExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", ""),
		Version:              getEnv("VERSION", "dev"),
	}

	if cfg.IRacingClientID == "" || cfg.IRacingClientSecret == "" {
		return nil, fmt.Errorf("IRACING_CLIENT_ID or IRACING_CLIENT_SECRET is not set")
	}

	if cfg.StorageType == "firestore" && cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("STORAGE_TYPE is 'firestore' but GCP_PROJECT_ID is not set")
	}

	categoryID, err := strconv.Atoi(getEnv("IRACING_CATEGORY_ID", "2"))
	if err != nil {
		return nil, fmt.Errorf("IRACING_CATEGORY_ID is not a number: %w", err)
	}
	cfg.IRacingCategoryID = categoryID

	interval := getEnv("LEADERBOARD_REFRESH_INTERVAL", "168h")
	cfg.RefreshInterval, err = time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_REFRESH_INTERVAL %q: %w", interval, err)
	}

	// iRacing requires the client secret to be masked with the client id
	// before it ever crosses the wire. AuthStyleInParams keeps the masked
	// secret in the form body instead of a basic-auth header.
	cfg.IRacingOAuthConfig = &oauth2.Config{
		ClientID:     cfg.IRacingClientID,
		ClientSecret: utils.MaskClientSecret(cfg.IRacingClientSecret, cfg.IRacingClientID),
		RedirectURL:  cfg.AppBaseURL + "/oauth/callback",
		Scopes:       cfg.IRacingScopes,

		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.IRacingAuthURL,
			TokenURL:  cfg.IRacingTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
