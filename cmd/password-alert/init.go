package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/password-alert.yml
var policyTemplate embed.FS

// policyFileName is the default policy file name.
const policyFileName = ".password-alert.yml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new password-alert policy file",
		Long: `Initialize creates a new .password-alert.yml policy file in the current
directory.

The generated file includes:
- Default settings for the store, gateway, and check budget
- Commented examples for enterprise alerting and OAuth tokens
- Documentation for all available options

Examples:
  # Create .password-alert.yml in current directory
  password-alert init

  # Create policy file at a specific path
  password-alert init -o /etc/password-alert/.password-alert.yml

  # Force overwrite existing file
  password-alert init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", policyFileName,
		"Output file path for the policy")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing policy file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("policy file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := policyTemplate.ReadFile("templates/password-alert.yml")
	if err != nil {
		return fmt.Errorf("failed to read policy template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write policy file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}

	fmt.Printf("Created policy file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure managed settings such as:")
	fmt.Println("  - The fleet alert backend and enterprise mode")
	fmt.Println("  - The shared Redis store for fleet installs")
	fmt.Println("  - The OAuth token source for password alerts")

	return nil
}
