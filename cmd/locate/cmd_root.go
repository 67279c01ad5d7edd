package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/city-locator/internal/app"
	"github.com/couchcryptid/city-locator/internal/config"
	"github.com/couchcryptid/city-locator/internal/locator"
	"github.com/couchcryptid/city-locator/internal/observability"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "locate",
	Short: "find the current city",
	Long: `
locate acquires one position fix from the configured provider, resolves it to
a city and prints it. Settings come from the same environment variables as
locatord (GEOCODER, PROVIDER, FIXES_FILE, DESIRED_ACCURACY, ...).
`,
	SilenceUsage: true,
}

var jsonOutput bool

// metrics registers on the default registry, which allows one registration
// per process.
var metrics = sync.OnceValue(observability.NewMetrics)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// session holds the collaborators for one command invocation.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider app.Provider
	locator  *locator.Locator
	client   *locator.Client
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewStderrLogger(cfg)

	geocoder, err := app.NewGeocoder(cfg, metrics(), logger)
	if err != nil {
		return nil, err
	}
	provider, err := app.NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	l := app.NewLocator(cfg, provider, geocoder, metrics(), logger)
	return &session{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		locator:  l,
		client:   locator.NewClient(l, nil),
	}, nil
}

func (s *session) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.LocateTimeout)
}

func (s *session) close() {
	s.locator.Stop()
	s.locator.Wait()
	if err := s.provider.Close(); err != nil {
		s.logger.Error("provider close error", "error", err)
	}
}

func printResult(w io.Writer, v any, text string) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
