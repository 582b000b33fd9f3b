package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to match the behavior end users and fleet
// administrators expect from a password-reuse detector.
const (
	// DefaultMinPasswordLength is the minimum password length worth tracking.
	// Identity providers reject passwords shorter than 8 characters at
	// account creation, so a shorter candidate is either a partially typed
	// password or not the real password at all. Tracking shorter strings
	// would only inflate the staging table with typing noise.
	DefaultMinPasswordLength = 8

	// DefaultMaxChecksPerHour caps how many fingerprint checks may run in
	// one clock hour. 18000 corresponds to 60 words/minute at 5 characters
	// per word for a full hour of continuous typing, which no human reaches
	// in practice. The cap is therefore invisible to legitimate users while
	// starving a scripted caller that probes the check endpoint.
	DefaultMaxChecksPerHour = 18000

	// DefaultBindAddress is where the tab gateway listens for websocket
	// connections from in-page scripts. We bind to loopback because the
	// gateway trusts its callers with staging and check traffic; exposing
	// it beyond the local machine requires an explicit override.
	DefaultBindAddress = "127.0.0.1:8750"

	// DefaultAlertTimeout bounds a single alert delivery attempt, including
	// the OAuth token fetch that may precede it. Alerts are fire-and-forget
	// and never retried, so a generous timeout costs nothing on the hot
	// path; 30 seconds covers slow corporate proxies.
	DefaultAlertTimeout = 30 * time.Second

	// DefaultStoreDriver selects the persistent store backend.
	// SQLite needs no external service and survives restarts, which is the
	// right default for a single-machine install. Fleets that centralize
	// state can switch to "redis".
	DefaultStoreDriver = "sqlite"

	// DefaultAlertQueueSize is the alert dispatcher's buffer. Alerts are
	// rare (one per detected reuse event), so a small buffer absorbs any
	// realistic burst; overflow drops the alert rather than blocking
	// detection.
	DefaultAlertQueueSize = 64

	// AppName is the application name used for XDG directory paths.
	AppName = "password-alert"
)

// Store driver names accepted by Config.StoreDriver.
const (
	// StoreDriverSQLite persists records in a local SQLite database file.
	StoreDriverSQLite = "sqlite"

	// StoreDriverRedis persists records in a Redis instance, for fleets
	// that share one credential store across machines.
	StoreDriverRedis = "redis"
)

// Config holds all configuration options for the password-alert service.
// This struct is designed to be populated from CLI flags and the policy
// file, then passed through the application via dependency injection rather
// than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., StoreConfig, TokenConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit. The policy file may still group related keys; ApplyPolicy
// flattens them into this struct.
type Config struct {
	// BindAddress is the "host:port" the tab gateway listens on for
	// websocket connections from in-page scripts.
	BindAddress string

	// ReportURL is the base URL of the alert backend. Password alerts are
	// POSTed to "<ReportURL>/password/" and phishing-page alerts to
	// "<ReportURL>/page/". Required when EnterpriseMode is true.
	ReportURL string

	// EnterpriseMode enables managed/fleet behavior: password matches are
	// reported to ReportURL, and each password alert carries an OAuth
	// bearer token obtained from the token source. When false, detection
	// still runs locally but nothing leaves the machine.
	EnterpriseMode bool

	// MinPasswordLength is the minimum length a typed password must have
	// before it is staged for saving. Shorter inputs are treated as typing
	// noise and silently ignored.
	MinPasswordLength int

	// MaxChecksPerHour caps fingerprint checks per clock hour. Every check
	// consumes quota, including checks that end up denied.
	MaxChecksPerHour int

	// StoreDriver selects the persistent store backend.
	// Must be StoreDriverSQLite or StoreDriverRedis.
	StoreDriver string

	// DataDir is the directory for the SQLite database file.
	// Defaults to the XDG data directory when empty.
	DataDir string

	// RedisAddress is the Redis "host:port" used when StoreDriver is
	// StoreDriverRedis. Ignored for other drivers.
	RedisAddress string

	// RedisPassword authenticates to Redis. Never logged.
	RedisPassword string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format for
	// outbound alert traffic. Empty means direct egress. Corporate
	// networks that force all egress through a proxy set this.
	ProxyAddress string

	// AlertTimeout bounds a single alert delivery attempt end to end,
	// including the token fetch in enterprise mode.
	AlertTimeout time.Duration

	// AlertQueueSize is the alert dispatcher's channel buffer. When the
	// buffer is full, new alerts are dropped rather than blocking the
	// detection path.
	AlertQueueSize int

	// TokenURL is the OAuth token endpoint for the JWT-bearer grant.
	// Used only in enterprise mode when StaticToken is empty.
	TokenURL string

	// TokenIssuer is the issuer claim of the JWT-bearer assertion,
	// typically the service account identity granted by the fleet admin.
	TokenIssuer string

	// TokenAudience is the audience claim of the JWT-bearer assertion.
	// Most token endpoints require it to equal TokenURL.
	TokenAudience string

	// TokenKeyPath is the path to the PEM-encoded RSA private key that
	// signs the JWT-bearer assertion.
	TokenKeyPath string

	// StaticToken is a pre-issued bearer token. When set, it is used
	// directly and the JWT-bearer grant is skipped. Intended for testing
	// and for deployments with an external token rotation mechanism.
	StaticToken string

	// PolicyFilePath is the path to the policy file.
	// If empty, the tool searches for .password-alert.yml in the current
	// directory and then in the XDG config directory.
	PolicyFilePath string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, info and above are logged.
	Verbose bool

	// JSONLog switches log output from text to JSON, for deployments that
	// ship logs to an aggregator.
	JSONLog bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., the check budget,
// the bind address). This also serves as documentation of what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		BindAddress:       DefaultBindAddress,
		MinPasswordLength: DefaultMinPasswordLength,
		MaxChecksPerHour:  DefaultMaxChecksPerHour,
		StoreDriver:       DefaultStoreDriver,
		AlertTimeout:      DefaultAlertTimeout,
		AlertQueueSize:    DefaultAlertQueueSize,
		DataDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for password-alert.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/password-alert
// On macOS: ~/Library/Application Support/password-alert
// On Windows: %LOCALAPPDATA%\password-alert
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for password-alert.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/password-alert
// On macOS: ~/Library/Application Support/password-alert
// On Windows: %APPDATA%\password-alert
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing and policy merging, before the
// gateway starts serving.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// The gateway cannot start without somewhere to listen
	if c.BindAddress == "" {
		return ErrMissingBindAddress
	}

	// A zero or negative minimum would stage every keystroke
	if c.MinPasswordLength <= 0 {
		return ErrInvalidMinPasswordLength
	}

	// A zero or negative budget would deny every check
	if c.MaxChecksPerHour <= 0 {
		return ErrInvalidCheckBudget
	}

	switch c.StoreDriver {
	case StoreDriverSQLite:
		// DataDir may be empty here; the store falls back to the XDG
		// data directory on open.
	case StoreDriverRedis:
		if c.RedisAddress == "" {
			return ErrMissingRedisAddress
		}
	default:
		return ErrUnknownStoreDriver
	}

	// Enterprise mode reports matches upstream, so the backend must be
	// reachable and the URL well-formed
	if c.EnterpriseMode {
		if c.ReportURL == "" {
			return ErrMissingReportURL
		}
		u, err := url.Parse(c.ReportURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidReportURL
		}
	}

	// Alert delivery needs a positive deadline
	if c.AlertTimeout <= 0 {
		return ErrInvalidAlertTimeout
	}

	if c.AlertQueueSize <= 0 {
		return ErrInvalidAlertQueueSize
	}

	return nil
}
