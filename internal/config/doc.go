// Package config provides configuration structures and utilities for the
// password-alert service. It defines detection thresholds, store backend
// selection, alert backend settings, and the managed policy file loaded on
// enterprise installs.
package config
