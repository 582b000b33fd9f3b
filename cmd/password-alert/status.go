package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adomitis8/password-alert/internal/config"
	"github.com/adomitis8/password-alert/internal/report"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the credential store is tracking",
		Long: `Status reads the credential store and summarizes it: how many
fingerprints are tracked, which accounts they protect, which password
lengths are being watched, and how many records await cleanup.

Account emails are masked in every output format, so a status summary
can be shared with support without exposing which accounts an install
protects. Passwords are never stored, so there is nothing else to leak.

Examples:
  # Human-readable summary of the local store
  password-alert status

  # Include the per-fingerprint listing
  password-alert status -v

  # JSON output for tooling
  password-alert status --json

  # Markdown summary written to a file
  password-alert status --markdown -o status.md

  # Summarize a fleet's shared Redis store
  password-alert status --store redis --redis 10.0.0.5:6379`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	// Store flags
	cmd.Flags().StringP("store", "s", config.DefaultStoreDriver,
		"Store backend: sqlite or redis")
	cmd.Flags().String("data-dir", "",
		"Directory of the SQLite store (default: XDG data directory)")
	cmd.Flags().String("redis", "",
		"Redis address for the redis store (e.g., 127.0.0.1:6379)")

	// Configuration file
	cmd.Flags().StringP("policy", "c", "",
		"Policy file path (default: .password-alert.yml in current or config directory)")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summary to specified file path (creates directories if needed)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatusConfig(cmd)
	if err != nil {
		return err
	}

	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)

	// Open the store read-only in spirit: a missing SQLite database is
	// an error rather than something to silently create.
	st, err := openStore(cfg, logger, false)
	if err != nil {
		return fmt.Errorf("failed to open store (has the daemon ever run?): %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	ctx := cmd.Context()

	records, err := st.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	salt, err := st.Salt(ctx)
	if err != nil {
		return fmt.Errorf("failed to read salt: %w", err)
	}

	summary := report.BuildSummary(cfg.StoreDriver, salt != "", records)
	summary.Version = getVersion()

	return writeSummary(cmd, summary, outputPath, jsonOut, markdownOut, cfg.Verbose)
}

// buildStatusConfig creates a Config from the policy file and the status
// command's store flags. The policy file is applied first so explicit
// flags win, same as serve.
func buildStatusConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	policyPath, err := cmd.Flags().GetString("policy")
	if err != nil {
		return nil, err
	}
	cfg.PolicyFilePath = policyPath

	explicitPolicyPath := policyPath != ""
	foundPath := config.FindPolicyFile(policyPath)

	if foundPath != "" {
		policy, err := config.LoadPolicyFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy file %s: %w", foundPath, err)
		}
		cfg.ApplyPolicy(policy)
	} else if explicitPolicyPath {
		return nil, fmt.Errorf("policy file not found: %s", policyPath)
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

	return cfg, nil
}

// writeSummary writes the summary in the requested format.
func writeSummary(cmd *cobra.Command, summary *report.Summary, outputPath string, jsonOut, markdownOut, verbose bool) error {
	// Determine output destination
	var output io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions.
		// The summary is masked, but which accounts an install tracks is
		// still nobody else's business.
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // The path comes from the operator's own flag
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Close errors after a full write are not actionable
		output = f
	}

	var w report.Writer
	switch {
	case jsonOut:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOut:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(verbose))
	}

	if _, err := w.Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
