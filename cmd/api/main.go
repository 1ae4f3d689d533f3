package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pasinduf/blog-platform/internal/advisor"
	"github.com/pasinduf/blog-platform/internal/app"
	"github.com/pasinduf/blog-platform/internal/config"
	"github.com/pasinduf/blog-platform/internal/email"
	"github.com/pasinduf/blog-platform/internal/export"
	"github.com/pasinduf/blog-platform/internal/media"
	"github.com/pasinduf/blog-platform/internal/search"
	"github.com/pasinduf/blog-platform/internal/session"
	"github.com/pasinduf/blog-platform/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logrus.WithError(err).Fatal("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("redis connection failed")
	}
	defer sessions.Close()

	pglike := search.NewPgLike(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pglike)
	go searchService.ReindexAllFromPG(ctx)

	mailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		AppURL:   cfg.AppURL,
	})
	if !mailService.IsConfigured() {
		logrus.Warn("SMTP not configured, emails disabled")
	}

	deps := app.Deps{
		Sessions: sessions,
		Advisor:  advisor.NewClient(cfg.AdvisorURL, cfg.AdvisorModel, dataStore),
		Search:   searchService,
		Mail:     mailService,
		Exporter: export.NewService(),
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		mediaStore, err := media.NewStore(media.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MediaPublicURL,
		})
		if err != nil {
			logrus.WithError(err).Fatal("minio connection failed")
		}
		if err := mediaStore.EnsureBucket(ctx); err != nil {
			logrus.WithError(err).Fatal("minio bucket setup failed")
		}
		deps.Media = mediaStore
	} else {
		logrus.Warn("MinIO not configured, media uploads disabled")
	}

	service := app.New(cfg, dataStore, deps)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.Env == "production")

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.Addr).Info("Inkwell API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
}
