// Package main is the entry point for the media resolution API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emanuelef/yt-resolve-go/internal/config"
	"github.com/emanuelef/yt-resolve-go/internal/infra/cache"
	"github.com/emanuelef/yt-resolve-go/internal/infra/cookies"
	"github.com/emanuelef/yt-resolve-go/internal/infra/fs"
	"github.com/emanuelef/yt-resolve-go/internal/infra/r2"
	"github.com/emanuelef/yt-resolve-go/internal/infra/remote"
	"github.com/emanuelef/yt-resolve-go/internal/infra/sqlite"
	"github.com/emanuelef/yt-resolve-go/internal/service/acquirer"
	"github.com/emanuelef/yt-resolve-go/internal/service/catalog"
	"github.com/emanuelef/yt-resolve-go/internal/service/extractor"
	"github.com/emanuelef/yt-resolve-go/internal/service/queue"
	"github.com/emanuelef/yt-resolve-go/internal/service/resolver"
	transport "github.com/emanuelef/yt-resolve-go/internal/transport/http"
	"github.com/emanuelef/yt-resolve-go/pkg/logger"
	"github.com/emanuelef/yt-resolve-go/pkg/safeclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.IsDevelopment() {
		slog.Debug("Development mode", "download_dir", cfg.DownloadDir, "data_dir", cfg.DataDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := sqlite.NewRepository(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open job database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	artifacts := fs.NewArtifactCache(cfg.DownloadDir, fs.DefaultExtensions)
	if err := artifacts.EnsureDir(); err != nil {
		slog.Error("Failed to prepare download directory", "error", err)
		os.Exit(1)
	}

	cookieProvider := cookies.FromDir(cfg.CookiesDir)
	if cfg.CookiesFile != "" {
		cookieProvider = cookies.Static(cfg.CookiesFile)
	}

	ex := extractor.New(&extractor.Config{
		YtDlpPath: cfg.YtDlpPath,
		OutputDir: cfg.DownloadDir,
		Cookies:   cookieProvider,
	})
	if err := ex.CheckYtDlp(ctx); err != nil {
		slog.Warn("yt-dlp check failed, local extraction will not work", "error", err)
	}

	httpClient := safeclient.New()
	remoteClient := remote.NewClient(cfg.RemoteAPIURL, httpClient)

	// Jobs and local downloads use separate pools so a job waiting on its
	// download never holds the worker that download needs.
	downloads := queue.NewDispatcher("downloads", cfg.MaxWorkers, cfg.MaxQueueSize)
	downloads.Start(ctx)
	jobs := queue.NewDispatcher("jobs", cfg.MaxWorkers, cfg.MaxQueueSize)
	jobs.Start(ctx)

	acq := acquirer.New(acquirer.Config{
		Store:        artifacts,
		Remote:       remoteClient,
		Extractor:    ex,
		Pool:         downloads,
		HTTPClient:   httpClient,
		MaxVideoSize: cfg.MaxVideoSize,
		Coalesce:     cfg.CoalesceDownloads,
	})

	deps := transport.Deps{
		Resolver:      resolver.New(remoteClient, ex),
		Acquirer:      acq,
		Catalog:       catalog.New(ex),
		Jobs:          repo,
		Queue:         jobs,
		Artifacts:     artifacts,
		Metadata:      cache.NewMetadataCache(cfg.MetadataCacheTTL, 10*time.Minute),
		PresignExpiry: cfg.PresignedURLExpiry,
	}

	if cfg.MirrorEnabled() {
		mirror, err := r2.NewMirror(ctx, &r2.Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
		})
		if err != nil {
			slog.Warn("R2 mirror disabled", "error", err)
		} else {
			deps.Mirror = mirror
		}
	}

	handlers := transport.NewHandlers(deps)

	if n, err := handlers.RequeueUnfinished(ctx); err != nil {
		slog.Warn("Failed to requeue unfinished jobs", "error", err)
	} else if n > 0 {
		slog.Info("Requeued unfinished jobs", "count", n)
	}

	go pruneJobs(ctx, repo, cfg.JobRetention)
	go fs.NewSweeper(cfg.DownloadDir, cfg.PartialMaxAge, 15*time.Minute).Run(ctx)

	limiters := transport.NewRateLimiters(cfg)
	defer limiters.Stop()

	server := transport.NewServer(":"+cfg.Port, transport.NewRouter(cfg, handlers, limiters))

	go func() {
		slog.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"remote", cfg.RemoteAPIURL,
			"mirror", deps.Mirror != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Interrupted jobs stay "processing" and are requeued on the next start.
	cancel()
	jobs.Stop()
	downloads.Stop()
}

// pruneJobs deletes old job rows once an hour.
func pruneJobs(ctx context.Context, repo *sqlite.Repository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := repo.DeleteOlderThan(ctx, retention)
			if err != nil {
				slog.Warn("Job pruning failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Pruned old jobs", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
