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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/types/discord"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const leaderboardEmbedColor = 0x2ecc71

// DiscordService posts leaderboard updates to a Discord channel webhook.
// With no webhook URL configured every post is a no-op.
type DiscordService struct {
	webhookURL string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewDiscordService creates a new DiscordService.
func NewDiscordService(webhookURL string, tracer trace.Tracer, logger *zap.Logger) *DiscordService {
	return &DiscordService{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			),
			Timeout: 10 * time.Second,
		},
		tracer: tracer,
		logger: logger.Named("discord_service"),
	}
}

// PostMessage sends a webhook message to the configured channel.
func (s *DiscordService) PostMessage(ctx context.Context, msg discord.WebhookMessage) error {
	ctx, span := s.tracer.Start(ctx, "DiscordService.PostMessage")
	defer span.End()

	if s.webhookURL == "" {
		s.logger.Debug("No Discord webhook configured, dropping message")
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "HTTP request failed")
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("Discord webhook returned non-success status %d: %s", resp.StatusCode, string(bodyBytes))
		s.logger.Error("Discord webhook error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("responseBody", string(bodyBytes)),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "API returned non-success")
		return err
	}

	s.logger.Info("Posted Discord webhook message", zap.Int("statusCode", resp.StatusCode))
	return nil
}

// PostRankChanges announces every rank-up as a single message.
func (s *DiscordService) PostRankChanges(ctx context.Context, changes []RankChange) error {
	if len(changes) == 0 {
		return nil
	}
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		lines = append(lines, ":checkered_flag: "+c.Message())
	}
	return s.PostMessage(ctx, discord.WebhookMessage{Content: strings.Join(lines, "\n")})
}

// PostStandings posts the full leaderboard as an embed.
func (s *DiscordService) PostStandings(ctx context.Context, drivers []models.Driver) error {
	if len(drivers) == 0 {
		return nil
	}
	var b strings.Builder
	for i, d := range drivers {
		delta := 0
		if d.LastRatingDelta != nil {
			delta = *d.LastRatingDelta
		}
		fmt.Fprintf(&b, "**%d.** %s — %d (%+d)\n", i+1, d.ProviderName, d.Rating(), delta)
	}
	return s.PostMessage(ctx, discord.WebhookMessage{
		Embeds: []discord.Embed{{
			Title:       "iRating Leaderboard",
			Description: b.String(),
			Color:       leaderboardEmbedColor,
		}},
	})
}
