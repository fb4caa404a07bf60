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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/types/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func TestPostRankChangesSendsOneMessage(t *testing.T) {
	var received discord.WebhookMessage
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewDiscordService(server.URL, otel.Tracer("test"), zap.NewNop())
	changes := []RankChange{
		{ExternalID: "discord-1", ProviderName: "Jesse D.", From: 3, To: 2, Spots: 1, Rating: 1800},
		{ExternalID: "discord-2", ProviderName: "Maria K.", From: 4, To: 1, Spots: 3, Rating: 2100},
	}

	require.NoError(t, svc.PostRankChanges(context.Background(), changes))
	assert.Equal(t, 1, calls)
	assert.Contains(t, received.Content, "Jesse D. moved up 1 spots, now rank 2 with 1800 rating")
	assert.Contains(t, received.Content, "Maria K. moved up 3 spots, now rank 1 with 2100 rating")
}

func TestPostRankChangesSkipsEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no webhook call expected for an empty change list")
	}))
	defer server.Close()

	svc := NewDiscordService(server.URL, otel.Tracer("test"), zap.NewNop())
	require.NoError(t, svc.PostRankChanges(context.Background(), nil))
}

func TestPostStandingsBuildsEmbed(t *testing.T) {
	var received discord.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	svc := NewDiscordService(server.URL, otel.Tracer("test"), zap.NewNop())
	rating, delta := 1800, 50
	drivers := []models.Driver{
		{ExternalID: "discord-1", ProviderName: "Jesse D.", LastRatingValue: &rating, LastRatingDelta: &delta},
	}

	require.NoError(t, svc.PostStandings(context.Background(), drivers))
	require.Len(t, received.Embeds, 1)
	assert.Equal(t, "iRating Leaderboard", received.Embeds[0].Title)
	assert.Contains(t, received.Embeds[0].Description, "Jesse D.")
	assert.Contains(t, received.Embeds[0].Description, "1800")
	assert.Contains(t, received.Embeds[0].Description, "+50")
}

func TestPostMessageNoWebhookConfigured(t *testing.T) {
	svc := NewDiscordService("", otel.Tracer("test"), zap.NewNop())
	assert.NoError(t, svc.PostMessage(context.Background(), discord.WebhookMessage{Content: "dropped"}))
}

func TestPostMessageSurfacesWebhookRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewDiscordService(server.URL, otel.Tracer("test"), zap.NewNop())
	err := svc.PostMessage(context.Background(), discord.WebhookMessage{Content: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
