package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPolicyFile is the default policy file name.
const DefaultPolicyFile = ".password-alert.yml"

// ErrPolicyNotFound is returned when the policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// LoadPolicyFile loads the managed policy from a YAML file.
// If the file does not exist, it returns ErrPolicyNotFound.
// Callers should handle this error appropriately based on whether
// the policy file path was explicitly specified by the user.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided policy path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// FindPolicyFile searches for the policy file in the following order:
// 1. If policyPath is specified, use it directly
// 2. Look for .password-alert.yml in the current directory
// 3. Look for .password-alert.yml in the XDG config directory
//
// Returns the path to the policy file if found, or empty string if not found.
func FindPolicyFile(policyPath string) string {
	// If explicit path is provided, use it
	if policyPath != "" {
		if _, err := os.Stat(policyPath); err == nil {
			return policyPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdPolicy := filepath.Join(cwd, DefaultPolicyFile)
		if _, err := os.Stat(cwdPolicy); err == nil {
			return cwdPolicy
		}
	}

	// Check XDG config directory
	xdgPolicy := filepath.Join(XDGConfigDir(), DefaultPolicyFile)
	if _, err := os.Stat(xdgPolicy); err == nil {
		return xdgPolicy
	}

	return ""
}
