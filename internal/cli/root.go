// Package cli implements the mediactl commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-resolve-go/internal/config"
	"github.com/emanuelef/yt-resolve-go/internal/infra/cookies"
	"github.com/emanuelef/yt-resolve-go/internal/infra/fs"
	"github.com/emanuelef/yt-resolve-go/internal/infra/remote"
	"github.com/emanuelef/yt-resolve-go/internal/service/acquirer"
	"github.com/emanuelef/yt-resolve-go/internal/service/catalog"
	"github.com/emanuelef/yt-resolve-go/internal/service/extractor"
	"github.com/emanuelef/yt-resolve-go/internal/service/queue"
	"github.com/emanuelef/yt-resolve-go/internal/service/resolver"
	"github.com/emanuelef/yt-resolve-go/pkg/logger"
	"github.com/emanuelef/yt-resolve-go/pkg/safeclient"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "mediactl",
	Short:         "Resolve metadata and acquire media for video references",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// Execute runs the root command, canceling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// services is the object graph shared by every command.
type services struct {
	cfg       *config.Config
	artifacts *fs.ArtifactCache
	resolver  *resolver.Resolver
	acquirer  *acquirer.Acquirer
	catalog   *catalog.Catalog
	pool      *queue.Dispatcher
}

// newServices wires the same components as the API server, minus the job
// ledger and the HTTP surface. Call close when done.
func newServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger.Setup(&logger.Config{Level: level, Format: cfg.LogFormat, Output: os.Stderr})

	artifacts := fs.NewArtifactCache(cfg.DownloadDir, fs.DefaultExtensions)

	cookieProvider := cookies.FromDir(cfg.CookiesDir)
	if cfg.CookiesFile != "" {
		cookieProvider = cookies.Static(cfg.CookiesFile)
	}
	ex := extractor.New(&extractor.Config{
		YtDlpPath: cfg.YtDlpPath,
		OutputDir: cfg.DownloadDir,
		Cookies:   cookieProvider,
	})

	httpClient := safeclient.New()
	remoteClient := remote.NewClient(cfg.RemoteAPIURL, httpClient)

	pool := queue.NewDispatcher("downloads", cfg.MaxWorkers, cfg.MaxQueueSize)
	pool.Start(ctx)

	return &services{
		cfg:       cfg,
		artifacts: artifacts,
		resolver:  resolver.New(remoteClient, ex),
		acquirer: acquirer.New(acquirer.Config{
			Store:        artifacts,
			Remote:       remoteClient,
			Extractor:    ex,
			Pool:         pool,
			HTTPClient:   httpClient,
			MaxVideoSize: cfg.MaxVideoSize,
		}),
		catalog: catalog.New(ex),
		pool:    pool,
	}, nil
}

func (s *services) close() {
	s.pool.Stop()
}

// withServices builds the services for one command invocation.
func withServices(fn func(cmd *cobra.Command, args []string, s *services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, args, s)
	}
}

// printResult writes v as indented JSON when --json is set, else calls text.
func printResult(w io.Writer, v any, text func(w io.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
