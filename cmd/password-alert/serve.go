package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adomitis8/password-alert/internal/alert"
	"github.com/adomitis8/password-alert/internal/config"
	"github.com/adomitis8/password-alert/internal/engine"
	"github.com/adomitis8/password-alert/internal/fingerprint"
	"github.com/adomitis8/password-alert/internal/gateway"
	"github.com/adomitis8/password-alert/internal/log"
	"github.com/adomitis8/password-alert/internal/store"
	"github.com/adomitis8/password-alert/internal/token"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// storeResyncInterval is how often serve re-reads watched lengths from a
// shared store. Only the redis backend needs this: another machine in the
// fleet may save a password at any time, and its length must start
// matching here without a restart. The SQLite store has a single writer,
// so no re-sync loop runs for it.
const storeResyncInterval = 5 * time.Minute

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the password reuse detection daemon",
		Long: `Serve starts the detection daemon. In-page scripts connect to it over
a local websocket and report typed input; the daemon answers with match
results and pushes watched-length state to every connected tab.

The daemon keeps salted, truncated fingerprints of confirmed passwords
in a local SQLite store by default. Fleets that share one credential
store across machines can switch to Redis.

Examples:
  # Run with defaults (SQLite store, loopback gateway)
  password-alert serve

  # Run with a managed policy file
  password-alert serve -c /etc/password-alert/.password-alert.yml

  # Report matches to a fleet alert backend
  password-alert serve --enterprise --report-url https://alerts.corp.example.com

  # Share the credential store across a fleet
  password-alert serve --store redis --redis 10.0.0.5:6379

Policy file (.password-alert.yml) example:
  report_url: https://alerts.corp.example.com
  enterprise: true
  token:
    url: https://oauth2.example.com/token
    issuer: alerts@fleet.example.com
    key_file: /etc/password-alert/alert-key.pem`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	// Gateway flags
	cmd.Flags().StringP("bind", "b", config.DefaultBindAddress,
		"Address the tab gateway listens on")

	// Detection flags
	cmd.Flags().Int("min-password-length", config.DefaultMinPasswordLength,
		"Minimum password length worth tracking")
	cmd.Flags().Int("max-checks-per-hour", config.DefaultMaxChecksPerHour,
		"Hourly budget of fingerprint checks")

	// Store flags
	cmd.Flags().StringP("store", "s", config.DefaultStoreDriver,
		"Store backend: sqlite or redis")
	cmd.Flags().String("data-dir", "",
		"Directory for the SQLite store (default: XDG data directory)")
	cmd.Flags().String("redis", "",
		"Redis address for the redis store (e.g., 127.0.0.1:6379)")

	// Alerting flags
	cmd.Flags().BoolP("enterprise", "e", false,
		"Report matches to the fleet alert backend")
	cmd.Flags().StringP("report-url", "r", "",
		"Base URL of the alert backend")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for outbound alert traffic (e.g., 127.0.0.1:1080)")

	// Configuration file
	cmd.Flags().StringP("policy", "c", "",
		"Policy file path (default: .password-alert.yml in current or config directory)")

	// Logging flags
	cmd.Flags().BoolP("json-log", "j", false,
		"Write logs as JSON instead of text")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	// Build config from the policy file and flags
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential scrubbing
	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig creates a Config from the policy file and cobra flags.
// The policy file is applied first so explicit flags always win over it.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	policyPath, err := cmd.Flags().GetString("policy")
	if err != nil {
		return nil, err
	}
	cfg.PolicyFilePath = policyPath

	// Load the managed policy.
	// If the user explicitly specified a policy file path, error if not found.
	// If no path was specified, silently run on defaults when no file is found.
	explicitPolicyPath := policyPath != ""
	foundPath := config.FindPolicyFile(policyPath)

	if foundPath != "" {
		policy, err := config.LoadPolicyFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy file %s: %w", foundPath, err)
		}
		cfg.ApplyPolicy(policy)
	} else if explicitPolicyPath {
		// User explicitly specified a policy file that doesn't exist
		return nil, fmt.Errorf("policy file not found: %s", policyPath)
	}

	// Flags override the policy, but only flags the user actually set:
	// an untouched flag holds its default value and must not squash a
	// policy key.
	if cmd.Flags().Changed("bind") {
		cfg.BindAddress, err = cmd.Flags().GetString("bind")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("min-password-length") {
		cfg.MinPasswordLength, err = cmd.Flags().GetInt("min-password-length")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-checks-per-hour") {
		cfg.MaxChecksPerHour, err = cmd.Flags().GetInt("max-checks-per-hour")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("store") {
		cfg.StoreDriver, err = cmd.Flags().GetString("store")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, err = cmd.Flags().GetString("data-dir")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("redis") {
		cfg.RedisAddress, err = cmd.Flags().GetString("redis")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("enterprise") {
		cfg.EnterpriseMode, err = cmd.Flags().GetBool("enterprise")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("report-url") {
		cfg.ReportURL, err = cmd.Flags().GetString("report-url")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("proxy") {
		cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
		if err != nil {
			return nil, err
		}
	}

	cfg.JSONLog, err = cmd.Flags().GetBool("json-log")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a credential-scrubbing structured logger.
// Everything this daemon logs is one misplaced attribute away from being
// a password, so the plain slog handlers are never used directly.
func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.JSONLog {
		return log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	}
	return log.NewSecureLogger(os.Stderr, cfg.Verbose)
}

// runServe wires the store, engine, alerting, and gateway together and
// serves until the context is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting password-alert",
		"bind", cfg.BindAddress,
		"store", cfg.StoreDriver,
		"enterprise", cfg.EnterpriseMode,
	)

	// Open the persistent credential store
	st, err := openStore(cfg, logger, true)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	// Load or create the per-install salt
	salt, err := fingerprint.GetOrCreateSalt(ctx, st)
	if err != nil {
		return fmt.Errorf("failed to initialize salt: %w", err)
	}
	hasher := fingerprint.NewHasher(salt)

	// Set up alerting in enterprise mode. A consumer install has no
	// reporter: detection still runs but nothing leaves the machine.
	var reporter engine.Reporter
	if cfg.EnterpriseMode {
		tokens, err := newTokenSource(cfg)
		if err != nil {
			return fmt.Errorf("failed to configure token source: %w", err)
		}

		dispatcher, err := alert.NewDispatcher(alert.Options{
			ClientOptions: alert.ClientOptions{
				ReportURL:    cfg.ReportURL,
				Tokens:       tokens,
				Version:      getVersion(),
				ProxyAddress: cfg.ProxyAddress,
				Logger:       logger,
			},
			Timeout:   cfg.AlertTimeout,
			QueueSize: cfg.AlertQueueSize,
		})
		if err != nil {
			return fmt.Errorf("failed to start alert dispatcher: %w", err)
		}
		defer dispatcher.Close()
		reporter = dispatcher

		logger.Info("alerting enabled", "report_url", cfg.ReportURL)
	}

	// Build the detection engine and prime the watched lengths
	eng := engine.New(engine.Options{
		Store:             st,
		Hasher:            hasher,
		Reporter:          reporter,
		Logger:            logger,
		MinPasswordLength: cfg.MinPasswordLength,
		MaxChecksPerHour:  cfg.MaxChecksPerHour,
	})
	if err := eng.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load watched lengths: %w", err)
	}

	// The gateway pushes state to tabs, so it is both the server and
	// the engine's notifier
	gw := gateway.New(gateway.Options{
		Engine:      eng,
		BindAddress: cfg.BindAddress,
		Logger:      logger,
	})
	eng.SetNotifier(gw)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gw.Run(ctx)
	})
	if cfg.StoreDriver == config.StoreDriverRedis {
		g.Go(func() error {
			resyncLoop(ctx, eng, logger)
			return nil
		})
	}

	return g.Wait()
}

// resyncLoop periodically re-reads watched lengths from the shared store
// until the context is cancelled.
func resyncLoop(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	ticker := time.NewTicker(storeResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := eng.Refresh(ctx); err != nil {
				logger.Warn("failed to re-sync watched lengths", "error", err)
			}
		}
	}
}

// openStore opens the configured store backend. When create is false the
// SQLite backend refuses to create a missing database, which keeps the
// status command from leaving empty stores behind.
func openStore(cfg *config.Config, logger *slog.Logger, create bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
		})
		return store.NewRedisStore(client, logger), nil

	case config.StoreDriverSQLite:
		opts := store.DefaultOptions()
		opts.CreateIfNotExists = create
		opts.Logger = logger
		return store.Open(cfg.DataDir, opts)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newTokenSource builds the OAuth token source for password alerts.
// A static token wins over the JWT-bearer grant; with neither configured,
// alerts go out without a bearer token.
func newTokenSource(cfg *config.Config) (token.Source, error) {
	if cfg.StaticToken != "" {
		return token.NewStaticSource(cfg.StaticToken), nil
	}

	if cfg.TokenURL == "" {
		return nil, nil
	}

	key, err := token.LoadRSAPrivateKey(cfg.TokenKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	return token.NewJWTBearerSource(token.JWTBearerOptions{
		TokenURL: cfg.TokenURL,
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		Key:      key,
	})
}
