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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/types/iracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrRefreshFailed marks a rejected refresh_token grant. Callers must treat
// the stored credential as invalid rather than retry with the stale token.
var ErrRefreshFailed = errors.New("token refresh failed")

// iRating chart type on the member chart_data endpoint.
const chartTypeIRating = 1

// IRacingService is responsible for interacting with the iRacing OAuth and
// Data APIs.
type IRacingService struct {
	client     *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
	config     *config.Config
	apiTimeout time.Duration
}

// NewIRacingService creates a new IRacingService.
func NewIRacingService(tracer trace.Tracer, logger *zap.Logger, cfg *config.Config) *IRacingService {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		),
		Timeout: 15 * time.Second,
	}
	return &IRacingService{
		client:     client,
		tracer:     tracer,
		logger:     logger.Named("iracing_service"),
		config:     cfg,
		apiTimeout: 15 * time.Second,
	}
}

// RefreshToken exchanges a refresh token for a fresh access token. The
// client secret is sent in its masked form, like every other token request.
func (s *IRacingService) RefreshToken(ctx context.Context, refreshToken string) (*iracing.TokenResponse, error) {
	ctx, span := s.tracer.Start(ctx, "IRacingService.RefreshToken")
	defer span.End()

	formData := url.Values{}
	formData.Set("grant_type", "refresh_token")
	formData.Set("client_id", s.config.IRacingClientID)
	formData.Set("client_secret", s.config.IRacingOAuthConfig.ClientSecret)
	formData.Set("refresh_token", refreshToken)

	reqCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.config.IRacingTokenURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Refresh request to iRacing failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response body: %w", err)
	}

	var tokenResp iracing.TokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		s.logger.Error("Failed to unmarshal refresh response", zap.Error(err), zap.ByteString("responseBody", bodyBytes))
		return nil, fmt.Errorf("%w: malformed response: %v", ErrRefreshFailed, err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" {
		s.logger.Error("iRacing rejected token refresh",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("providerError", tokenResp.Error),
			zap.String("providerErrorDescription", tokenResp.ErrorDescription),
		)
		if tokenResp.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrRefreshFailed, tokenResp.Error, tokenResp.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", ErrRefreshFailed)
	}
	return &tokenResp, nil
}

// GetMemberProfile fetches the authenticated member's profile.
func (s *IRacingService) GetMemberProfile(ctx context.Context, accessToken string) (*iracing.MemberInfo, error) {
	ctx, span := s.tracer.Start(ctx, "IRacingService.GetMemberProfile")
	defer span.End()

	var info iracing.MemberInfo
	if err := s.getData(ctx, accessToken, s.config.IRacingDataAPIURL+"/data/member/info", &info); err != nil {
		return nil, fmt.Errorf("failed to fetch member profile: %w", err)
	}
	return &info, nil
}

// GetIRatingChart fetches the authenticated member's iRating time series for
// the configured license category.
func (s *IRacingService) GetIRatingChart(ctx context.Context, accessToken string) (*iracing.ChartData, error) {
	ctx, span := s.tracer.Start(ctx, "IRacingService.GetIRatingChart")
	defer span.End()
	span.SetAttributes(attribute.Int("iracing.category_id", s.config.IRacingCategoryID))

	endpoint := fmt.Sprintf("%s/data/member/chart_data?category_id=%s&chart_type=%d",
		s.config.IRacingDataAPIURL, strconv.Itoa(s.config.IRacingCategoryID), chartTypeIRating)

	var chart iracing.ChartData
	if err := s.getData(ctx, accessToken, endpoint, &chart); err != nil {
		return nil, fmt.Errorf("failed to fetch iRating chart: %w", err)
	}
	return &chart, nil
}

// getData performs a bearer-authenticated GET against the Data API and
// follows the two-hop indirection: when the response is a {"link": ...}
// envelope, the actual payload lives behind a second, unauthenticated GET.
func (s *IRacingService) getData(ctx context.Context, accessToken, endpoint string, out any) error {
	body, err := s.get(ctx, endpoint, accessToken)
	if err != nil {
		return err
	}

	var envelope iracing.LinkEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Link != "" {
		body, err = s.get(ctx, envelope.Link, "")
		if err != nil {
			return fmt.Errorf("failed to follow data link: %w", err)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal data payload: %w", err)
	}
	return nil
}

func (s *IRacingService) get(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to iRacing API failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("iRacing API returned non-success status",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("url", endpoint),
			zap.ByteString("responseBody", bodyBytes),
		)
		return nil, fmt.Errorf("iRacing API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return bodyBytes, nil
}
