package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"sitelens/api/analytics"
	"sitelens/api/config"
	"sitelens/api/database"
	"sitelens/api/handlers"
	"sitelens/api/logger"
	"sitelens/api/store"
	"sitelens/api/tracking"
	"sitelens/api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	baseLogger := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// --- PostgreSQL (users, websites, and page views unless another store is selected) ---
	dbClient, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL")
	}
	defer dbClient.Close()
	if err := dbClient.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure PostgreSQL schema")
	}

	pageViews, closeStore := openPageViewStore(ctx, cfg, dbClient)
	defer closeStore()

	// --- Geolocation, cached in Redis when configured ---
	var geo tracking.Geolocator = tracking.NewIPAPIClient(cfg.GeoEndpoint, cfg.GeoTimeout)
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, geolocation results will not be cached")
		} else {
			defer rdb.Close()
			geo = tracking.NewCachedGeolocator(geo, rdb, cfg.GeoCacheTTL)
		}
	}

	// --- Stores and services ---
	userStore := store.NewUserStore(dbClient.DB)
	websiteStore := store.NewWebsiteStore(dbClient.DB)

	tracker := tracking.NewService(
		tracking.NewNormalizer(geo, cfg.GeoTimeout),
		tracking.NewCorrelator(pageViews),
	)
	analyticsService := analytics.NewService(websiteStore, pageViews, analytics.NewEngine(time.Now))
	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	router := newRouter(routerDeps{
		Logger:         baseLogger,
		FrontendOrigin: cfg.FrontendOrigin,
		JWTManager:     jwtManager,
		Track:          handlers.NewTrackHandlers(tracker),
		Auth:           handlers.NewAuthHandlers(userStore, jwtManager, cfg.AppEnv != "dev"),
		Websites:       handlers.NewWebsiteHandlers(websiteStore, analyticsService),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("event_store", cfg.EventStore).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}

func openPageViewStore(ctx context.Context, cfg *config.Config, pg *database.DBClient) (store.PageViewStore, func()) {
	switch cfg.EventStore {
	case config.StoreClickHouse:
		chClient, err := database.NewClickHouseDB(ctx, database.ClickHouseConfig{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ClickHouse")
		}
		if err := chClient.EnsureTable(ctx); err != nil {
			chClient.Close()
			log.Fatal().Err(err).Msg("failed to ensure ClickHouse table")
		}
		return store.NewClickHouseStore(chClient), chClient.Close
	case config.StoreMemory:
		log.Warn().Msg("EVENT_STORE=memory: page views are lost on restart")
		return store.NewMemoryPageViewStore(), func() {}
	default:
		return store.NewPostgresPageViewStore(pg.DB), func() {}
	}
}
