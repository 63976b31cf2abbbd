package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"buildwise/api/internal/aiassist"
	"buildwise/api/internal/app"
	"buildwise/api/internal/config"
	"buildwise/api/internal/email"
	"buildwise/api/internal/export"
	"buildwise/api/internal/jobs"
	"buildwise/api/internal/logging"
	"buildwise/api/internal/ratelimit"
	"buildwise/api/internal/search"
	"buildwise/api/internal/session"
	"buildwise/api/internal/storage"
	"buildwise/api/internal/store"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{
		Store:   dataStore,
		Exports: export.NewService(),
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	deps.Search = searchService

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using PostgreSQL for sessions")
		} else {
			log.Info().Msg("using Redis for session storage")
			defer redisStore.Close()
			deps.Sessions = redisStore
			deps.Redis = redisStore
		}
	}

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	deps.Mail = mailer
	if !mailer.IsConfigured() {
		log.Warn().Msg("SMTP not configured, confirmation tokens are returned in responses")
	}

	files, err := storage.New(storage.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.S3PublicURL,
	})
	switch {
	case err == nil:
		deps.Files = files
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn().Msg("object storage not configured, uploads disabled")
	default:
		log.Error().Err(err).Msg("object storage init failed, uploads disabled")
	}

	sink := aiassist.NewLogSink(dataStore, 256)
	var completer aiassist.Completer
	if client := aiassist.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL); client != nil {
		completer = client
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, AI endpoints will fail")
	}
	deps.AI = aiassist.NewService(completer, aiassist.NewFetcher(nil), sink)

	limiter := ratelimit.New(cfg.AIRatePerMin, cfg.AIRateBurst)

	scheduler := jobs.New(jobs.Deps{
		ConfirmTokens: dataStore,
		AILogs:        dataStore,
		AILogRetain:   cfg.AILogRetain,
		Sessions:      dataStore,
		Limiter:       limiter,
		Search:        searchService,
	})
	if n, err := scheduler.Register(); err != nil {
		log.Error().Err(err).Msg("maintenance jobs not scheduled")
	} else {
		scheduler.Start()
		log.Info().Int("jobs", n).Msg("maintenance jobs scheduled")
	}

	service := app.New(cfg, deps)
	go func() {
		if err := searchService.ReindexAllFromPG(context.Background()); err != nil {
			log.Warn().Err(err).Msg("initial search reindex failed")
		}
	}()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigins, limiter)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// AI analysis fetches documents and waits on the completion API.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Buildwise API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	scheduler.Stop(shutdownCtx)
	if err := sink.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ai log sink did not drain")
	}
}
