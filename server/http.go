package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"video-library/config"
	"video-library/pkg/identity"
	"video-library/pkg/rabbitmq"
	"video-library/pkg/transcription"
	"video-library/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.IsProduction()).Send()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := bootstrap(ctx, cfg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to start")
		os.Exit(1)
	}

	provider, err := identity.NewProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("identity provider")
		os.Exit(1)
	}

	publisher := rabbitmq.NewNoopPublisher()
	if a.conn != nil {
		publisher = rabbitmq.NewPublisher(a.conn, cfg.Queue)
		// The server also runs the thumbnail consumer when a broker is configured.
		go runConsumer(ctx, cfg, a)
	}

	transcriber := transcription.NewClient(transcription.Config{
		APIKey:         cfg.Transcription.APIKey,
		BaseURL:        cfg.Transcription.BaseURL,
		Model:          cfg.Transcription.Model,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	})

	r := NewRouter(*zerolog.Ctx(ctx), Dependencies{
		Uploads: service.NewUploadService(a.repo, a.host, a.recorder, service.UploadOptions{
			MaxBytes:        cfg.Upload.MaxBytes,
			TicketTTL:       cfg.Upload.TicketTTL,
			DirectTicketTTL: cfg.Upload.DirectTicketTTL,
		}),
		Subtitles:      service.NewSubtitleService(a.repo, a.host, transcriber, &http.Client{}, a.recorder),
		Deletions:      service.NewDeletionService(a.repo, a.host, a.recorder),
		Catalog:        service.NewCatalogService(a.repo, a.host),
		Identity:       provider,
		Events:         publisher,
		Gatherer:       a.registry,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Str("addr", handler.Addr).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer shutdownCancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}
