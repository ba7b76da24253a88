package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"folio/api/internal/app"
	"folio/api/internal/assets"
	"folio/api/internal/authpw"
	"folio/api/internal/config"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/i18n"
	"folio/api/internal/journal"
	"folio/api/internal/projectcache"
	"folio/api/internal/search"
	"folio/api/internal/session"
	"folio/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	db, dialect, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, dialect); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	dataStore := store.NewSQLStore(db, dialect)

	owner, err := authpw.NewService(cfg.AdminEmail, cfg.AdminName, cfg.AdminPasswordHash, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("owner account: %v", err)
	}

	deps := app.Deps{
		Store:      dataStore,
		Sessions:   dataStore,
		Owner:      owner,
		Translator: i18n.MustLoad(),
		Exporter:   export.NewService(),
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			To:       cfg.ContactTo,
		}),
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh sessions and the project cache")
		client, err := session.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer client.Close()
		deps.Sessions = session.NewRedisStoreWithClient(client)
		deps.Cache = projectcache.New(projectcache.NewRedis(client))
	} else {
		log.Printf("Using %s for refresh sessions", dialect)
		deps.Cache = projectcache.New(projectcache.NewMemory())
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	deps.Search = search.NewService(meiliClient, search.NewSQL(db, dialect))
	defer deps.Search.Flush()

	if cfg.JournalDir != "" {
		history, err := journal.Open(cfg.JournalDir)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		deps.Journal = history
	}

	storageCfg := assets.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.S3PublicURL,
	}
	if storageCfg.Enabled() {
		objects, err := assets.New(storageCfg)
		if err != nil {
			log.Fatalf("object storage: %v", err)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: object storage bucket check failed: %v", err)
		}
		deps.Assets = objects
	}

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.CookieSecure)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Folio API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
