package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tradeviz/internal/backend"
	"tradeviz/internal/cli"
	"tradeviz/internal/config"
	"tradeviz/internal/dashboard"
	applog "tradeviz/internal/log"
	"tradeviz/internal/services"
)

var (
	serverURL  string
	jsonOutput bool
	verbose    bool

	page    *dashboard.Page
	cleanup backend.CleanupFunc
)

func defaultServer() string {
	return os.Getenv("TRADEVIZ_SERVER")
}

var rootCmd = &cobra.Command{
	Use:   "tradechart",
	Short: "Render trade donut charts from the command line",
	Long: "tradechart drives the trade dashboard headlessly. With --server it talks to a\n" +
		"running tradeviz server; otherwise it reads the data backend configured in the environment.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := applog.NewText(os.Stderr, level, applog.ComponentDashboard)
		applog.SetDefault(logger)

		api, err := newAPI(cmd.Context(), logger)
		if err != nil {
			return err
		}
		page = dashboard.NewPage(api, dashboard.NewMemorySession(), logger.Logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanup != nil {
			if err := cleanup(); err != nil {
				fmt.Fprintln(os.Stderr, "Warning: cleanup:", err)
			}
		}
	},
}

// newAPI returns the HTTP client for --server, or an in-process service
// over the configured backend.
func newAPI(ctx context.Context, logger *applog.Logger) (dashboard.API, error) {
	if serverURL != "" {
		return dashboard.NewHTTPClient(serverURL, nil), nil
	}

	cfg := config.Load()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.DataBackend, err)
	}
	cleanup = result.Cleanup
	return services.NewChartService(result.Source, services.WithLogger(logger)), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "tradeviz server URL (e.g. http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
