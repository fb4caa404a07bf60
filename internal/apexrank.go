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

package apexrank

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/handler"
	"github.com/apexrank/apexrank/internal/repository"
	"github.com/apexrank/apexrank/internal/service"
	"github.com/apexrank/apexrank/internal/storage"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.uber.org/zap"
)

type App struct {
	logger *zap.Logger
	cfg    *config.Config
	server *http.Server
}

func NewApp() *App {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	return &App{
		logger: logger,
		cfg:    cfg,
	}
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tp *sdktrace.TracerProvider
	if a.cfg.OtelExporterEndpoint != "" {
		tp = a.initTracerProvider(ctx)
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				a.logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	}

	driverRepo, err := a.initDriverRepository(ctx)
	if err != nil {
		a.logger.Fatal("Failed to initialize driver repository", zap.Error(err))
	}
	defer driverRepo.Close()

	sessions, err := a.initSessionStore(ctx)
	if err != nil {
		a.logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer sessions.Close()

	tracer := otel.Tracer("apexrank")

	iracingService := service.NewIRacingService(tracer, a.logger, a.cfg)
	tokenService := service.NewTokenService(driverRepo, iracingService, tracer, a.logger)
	leaderboardService := service.NewLeaderboardService(driverRepo, tokenService, iracingService, tracer, a.logger)
	discordService := service.NewDiscordService(a.cfg.DiscordWebhookURL, tracer, a.logger)

	handlers := handler.NewHttpHandlers(a.logger, a.cfg, driverRepo, sessions, iracingService, leaderboardService, discordService, tracer)

	router := a.setupRouter(handlers, tp)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if a.cfg.RefreshInterval > 0 {
		go a.runScheduledRefresh(ctx, leaderboardService, discordService)
	}

	go func() {
		a.logger.Info("Server starting", zap.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("Could not listen on address", zap.String("address", a.server.Addr), zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.logger.Info("Server shutting down...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := a.server.Shutdown(ctxShutdown); err != nil {
		a.logger.Fatal("Server shutdown failed", zap.Error(err))
	}
	a.logger.Info("Server exited properly")
}

// runScheduledRefresh is the only invocation allowed to persist the
// leaderboard baseline; everything it finds is announced in Discord.
func (a *App) runScheduledRefresh(ctx context.Context, leaderboard *service.LeaderboardService, discord *service.DiscordService) {
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	a.logger.Info("Scheduled leaderboard refresh enabled", zap.Duration("interval", a.cfg.RefreshInterval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drivers, changes, err := leaderboard.Refresh(ctx, true)
			if err != nil {
				a.logger.Error("Scheduled leaderboard refresh failed", zap.Error(err))
				continue
			}
			if err := discord.PostRankChanges(ctx, changes); err != nil {
				a.logger.Error("Failed to post rank changes to Discord", zap.Error(err))
			}
			if err := discord.PostStandings(ctx, drivers); err != nil {
				a.logger.Error("Failed to post standings to Discord", zap.Error(err))
			}
		}
	}
}

func (a *App) initTracerProvider(ctx context.Context) *sdktrace.TracerProvider {
	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(a.cfg.OtelExporterEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		a.logger.Fatal("Failed to create OTLP HTTP trace exporter", zap.Error(err))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("apexrank"),
			semconv.ServiceVersionKey.String(a.cfg.Version),
		),
	)
	if err != nil {
		a.logger.Fatal("Failed to create OpenTelemetry resource", zap.Error(err))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	a.logger.Info("OTLP HTTP trace exporter initialized", zap.String("endpoint", a.cfg.OtelExporterEndpoint))
	return tp
}

func (a *App) initDriverRepository(ctx context.Context) (repository.DriverRepository, error) {
	switch a.cfg.StorageType {
	case "file":
		return repository.NewFileDriverRepository(a.cfg.StorePath, a.logger)
	case "firestore":
		if a.cfg.GCPProjectID == "" {
			return nil, fmt.Errorf("firestore storage selected but GCP_PROJECT_ID is not set")
		}
		return repository.NewFirestoreDriverRepository(ctx, a.cfg.GCPProjectID, a.logger, a.cfg)
	case "inmemory":
		a.logger.Warn("using inmemory driver repository. Did you mean to do this?")
		return repository.NewInMemoryDriverRepository(a.logger), nil
	default:
		return nil, fmt.Errorf("invalid storage type: %s", a.cfg.StorageType)
	}
}

func (a *App) initSessionStore(ctx context.Context) (storage.SessionStore, error) {
	if a.cfg.StorageType == "firestore" {
		return storage.NewFirestoreSessionStore(ctx, a.cfg.GCPProjectID, config.SessionTTL, a.logger)
	}
	return storage.NewInMemorySessionStore(config.SessionTTL, a.logger), nil
}

func (a *App) setupRouter(handlers *handler.HttpHandlers, tp *sdktrace.TracerProvider) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if tp != nil {
		router.Use(otelgin.Middleware("apexrank-http", otelgin.WithTracerProvider(tp)))
	}

	handlers.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/robots.txt", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
	})

	return router
}
