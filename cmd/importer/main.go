package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog/backend/internal/importer"
	"catalog/backend/internal/logging"
)

const defaultAPIURL = "http://localhost:8000/products"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "importer",
		Short:        "Import products from a CSV file into the catalog API",
		SilenceUsage: true,
		RunE:         runImport,
	}
	cmd.Flags().String("file", "", "path to the products CSV (env: IMPORT_FILE, default products.csv)")
	cmd.Flags().String("api-url", "", "products endpoint (env: API_URL)")
	cmd.Flags().String("token", "", "admin bearer token (env: API_TOKEN)")
	cmd.Flags().String("rate", "", "maximum requests per second (env: IMPORT_RATE, default 20)")
	cmd.Flags().String("log-level", "", "log level (env: LOG_LEVEL, default info)")
	return cmd
}

// flagOrEnv returns the flag value when set, then the environment variable, then fallback.
func flagOrEnv(cmd *cobra.Command, flagName, envName, fallback string) string {
	if v, _ := cmd.Flags().GetString(flagName); v != "" {
		return v
	}
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		return v
	}
	return fallback
}

func runImport(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(flagOrEnv(cmd, "log-level", "LOG_LEVEL", "info"))
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ratePerSec, err := strconv.ParseFloat(flagOrEnv(cmd, "rate", "IMPORT_RATE", "20"), 64)
	if err != nil {
		return fmt.Errorf("invalid rate: %w", err)
	}

	path := flagOrEnv(cmd, "file", "IMPORT_FILE", "products.csv")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiURL := flagOrEnv(cmd, "api-url", "API_URL", defaultAPIURL)
	client := importer.NewClient(apiURL,
		importer.WithToken(flagOrEnv(cmd, "token", "API_TOKEN", "")),
		importer.WithRate(ratePerSec),
		importer.WithClientLogger(logger),
	)
	logger.Info("importing products", zap.String("file", path), zap.String("api_url", apiURL))

	summary, err := importer.New(client, logger).Run(ctx, f)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Import summary:")
	fmt.Fprintf(out, "  total processed: %d\n", summary.Total)
	fmt.Fprintf(out, "  added:           %d\n", summary.Added)
	fmt.Fprintf(out, "  skipped:         %d\n", summary.Skipped)
	fmt.Fprintf(out, "  failed:          %d\n", summary.Failed)
	return err
}
