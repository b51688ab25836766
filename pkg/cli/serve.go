package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apimocker/apimocker/pkg/auth"
	"github.com/apimocker/apimocker/pkg/config"
	"github.com/apimocker/apimocker/pkg/engine"
	"github.com/apimocker/apimocker/pkg/logging"
	"github.com/apimocker/apimocker/pkg/openapi"
	"github.com/apimocker/apimocker/pkg/responses"
	"github.com/apimocker/apimocker/pkg/store"
	"github.com/apimocker/apimocker/pkg/webhook"
)

// shutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 15 * time.Second

type serveFlags struct {
	specFile   string
	configFile string

	host string
	port int

	cors      bool
	verbose   bool
	seedCount int

	delayMs    int
	delayMinMs int
	delayMaxMs int
	errorRate  float64
	errorCodes []int

	dataDir       string
	seedFile      string
	responsesFile string
	webhooksFile  string

	authMode string
	authKey  string

	logLevel  string
	logFormat string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server from an API document",
	Example: `  # Serve an OpenAPI document with defaults
  apimocker serve --spec petstore.yaml

  # Custom port with CORS and request logging
  apimocker serve --spec api.json --port 3000 --cors --verbose

  # Persist collections to disk and seed from a file
  apimocker serve --spec api.yaml --data-dir ./data --seed-file seed.json

  # Simulate latency and failures
  apimocker serve --spec api.yaml --delay-min 100 --delay-max 500 --error-rate 0.1

  # Require bearer auth
  apimocker serve --spec api.yaml --auth-mode bearer --auth-key secret`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd, &serveFlagVals)
	},
}

func initServeCmd() {
	rootCmd.AddCommand(serveCmd)
	f := &serveFlagVals
	defaults := config.Default()

	serveCmd.Flags().StringVarP(&f.specFile, "spec", "s", "", "Path to the OpenAPI document (required)")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to a JSON/YAML options file")

	serveCmd.Flags().StringVar(&f.host, "host", defaults.Host, "Listen host")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", defaults.Port, "Listen port")

	serveCmd.Flags().BoolVar(&f.cors, "cors", false, "Enable permissive CORS handling")
	serveCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log every request")
	serveCmd.Flags().IntVar(&f.seedCount, "seed-count", defaults.InitialDataCount, "Records generated when an empty collection is first read")

	serveCmd.Flags().IntVar(&f.delayMs, "delay", 0, "Fixed delay per request in milliseconds")
	serveCmd.Flags().IntVar(&f.delayMinMs, "delay-min", 0, "Minimum random delay in milliseconds")
	serveCmd.Flags().IntVar(&f.delayMaxMs, "delay-max", 0, "Maximum random delay in milliseconds")
	serveCmd.Flags().Float64Var(&f.errorRate, "error-rate", 0, "Probability [0..1] of responding with a simulated error")
	serveCmd.Flags().IntSliceVar(&f.errorCodes, "error-codes", nil, "Status codes used for simulated errors (default 500)")

	serveCmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory for file-backed persistence (empty = in-memory only)")
	serveCmd.Flags().StringVar(&f.seedFile, "seed-file", "", "JSON file with initial records per collection")
	serveCmd.Flags().StringVar(&f.responsesFile, "responses-file", "", "JSON file with custom response overrides")
	serveCmd.Flags().StringVar(&f.webhooksFile, "webhooks-file", "", "JSON file with webhook registrations")

	serveCmd.Flags().StringVar(&f.authMode, "auth-mode", defaults.AuthMode, "Auth mode: none, bearer, apikey, basic, jwt")
	serveCmd.Flags().StringVar(&f.authKey, "auth-key", "", "Expected credential for the chosen auth mode")

	serveCmd.Flags().StringVar(&f.logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", defaults.LogFormat, "Log format: text or json")

	_ = serveCmd.MarkFlagRequired("spec")
}

// resolveOptions layers CLI flags over the config file over defaults.
// Only flags the user actually set override file values.
func resolveOptions(cmd *cobra.Command, f *serveFlags) (config.Options, error) {
	opts := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	set := cmd.Flags().Changed
	if set("host") {
		opts.Host = f.host
	}
	if set("port") {
		opts.Port = f.port
	}
	if set("cors") {
		opts.EnableCORS = f.cors
	}
	if set("verbose") {
		opts.Verbose = f.verbose
	}
	if set("seed-count") {
		opts.InitialDataCount = f.seedCount
	}
	if set("delay") {
		opts.DelayMs = f.delayMs
	}
	if set("delay-min") {
		opts.DelayMinMs = f.delayMinMs
	}
	if set("delay-max") {
		opts.DelayMaxMs = f.delayMaxMs
	}
	if set("error-rate") {
		opts.ErrorRate = f.errorRate
	}
	if set("error-codes") {
		opts.ErrorCodes = f.errorCodes
	}
	if set("data-dir") {
		opts.DataDir = f.dataDir
	}
	if set("seed-file") {
		opts.SeedFile = f.seedFile
	}
	if set("responses-file") {
		opts.ResponsesFile = f.responsesFile
	}
	if set("webhooks-file") {
		opts.WebhooksFile = f.webhooksFile
	}
	if set("auth-mode") {
		opts.AuthMode = f.authMode
	}
	if set("auth-key") {
		opts.AuthKey = f.authKey
	}
	if set("log-level") {
		opts.LogLevel = f.logLevel
	}
	if set("log-format") {
		opts.LogFormat = f.logFormat
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	opts, err := resolveOptions(cmd, f)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(opts.LogLevel),
		Format: logging.ParseFormat(opts.LogFormat),
		Output: os.Stderr,
	})

	doc, err := openapi.Load(f.specFile)
	if err != nil {
		return fmt.Errorf("failed to load API document: %w", err)
	}

	var ds store.DataStore
	if opts.DataDir != "" {
		fs, err := store.NewFileStore(opts.DataDir, log)
		if err != nil {
			return fmt.Errorf("failed to open data directory: %w", err)
		}
		ds = fs
	} else {
		ds = store.NewMemoryStore()
	}

	if opts.SeedFile != "" {
		if err := store.LoadSeedFile(ds, opts.SeedFile); err != nil {
			return fmt.Errorf("failed to load seed file: %w", err)
		}
		log.Info("seed file loaded", "path", opts.SeedFile)
	}

	provider := responses.NewProvider()
	if opts.ResponsesFile != "" {
		if err := provider.LoadFromFile(opts.ResponsesFile); err != nil {
			return fmt.Errorf("failed to load custom responses: %w", err)
		}
		log.Info("custom responses loaded", "path", opts.ResponsesFile, "count", provider.Count())
	}

	dispatcher := webhook.NewDispatcher(time.Duration(opts.WebhookTimeoutSec)*time.Second, log)
	if opts.WebhooksFile != "" {
		if err := dispatcher.LoadFromFile(opts.WebhooksFile); err != nil {
			return fmt.Errorf("failed to load webhooks: %w", err)
		}
		log.Info("webhooks loaded", "path", opts.WebhooksFile, "count", dispatcher.Count())
	}

	gate, err := auth.New(opts.AuthMode, opts.AuthKey)
	if err != nil {
		return err
	}

	srv := engine.NewServer(doc, opts,
		engine.WithLogger(log),
		engine.WithStore(ds),
		engine.WithResponses(provider),
		engine.WithWebhooks(dispatcher),
		engine.WithAuth(gate),
	)

	printBanner(doc, opts)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(ctx)
	}
}

func printBanner(doc *openapi.Document, opts config.Options) {
	fmt.Printf("\n%s %s\n", doc.Title, doc.Version)
	fmt.Printf("Listening on http://%s\n\n", opts.Addr())
	for _, ep := range doc.Endpoints {
		fmt.Printf("  %-7s %s\n", strings.ToUpper(ep.Method), ep.Path)
	}
	fmt.Println()
}
