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

	"quarterdeck/api/internal/app"
	"quarterdeck/api/internal/archive"
	"quarterdeck/api/internal/config"
	"quarterdeck/api/internal/export"
	"quarterdeck/api/internal/idempotency"
	"quarterdeck/api/internal/planrepo"
	"quarterdeck/api/internal/search"
	"quarterdeck/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.PlansDir, 0o755); err != nil {
		log.Fatalf("failed to create plans dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	planService := planrepo.New(cfg.PlansDir)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	// Redis holds idempotency keys for publish and assignment deletes.
	// Without it those endpoints still work, just without replay protection.
	var idemStore *idempotency.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		idemStore, err = idempotency.NewStore(cfg.RedisURL, cfg.IdempotencyTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, idempotency keys disabled: %v", err)
			idemStore = nil
		} else {
			defer idemStore.Close()
		}
	}

	var archiveService *archive.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiveService, err = archive.NewService(archive.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("WARNING: object storage unavailable, snapshots disabled: %v", err)
			archiveService = nil
		} else if err := archiveService.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: snapshot bucket unavailable, snapshots disabled: %v", err)
			archiveService = nil
		}
	}

	service := app.New(cfg, dataStore, idemStore, planService, archiveService, searchService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	exporter := export.NewService(app.ExportStore{Service: service})

	httpServer := app.NewHTTPServer(service, exporter, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Quarterdeck API listening on %s", cfg.Addr)
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
