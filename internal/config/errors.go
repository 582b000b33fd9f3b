package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrMissingBindAddress is returned when the gateway bind address is empty.
	// Without a bind address there is nowhere for in-page scripts to connect.
	ErrMissingBindAddress = errors.New("missing bind address: set bind in the policy file or via --bind")

	// ErrInvalidMinPasswordLength is returned when the minimum password
	// length is not positive. A non-positive minimum would stage every
	// keystroke as a credential candidate.
	ErrInvalidMinPasswordLength = errors.New("invalid minimum password length: must be positive")

	// ErrInvalidCheckBudget is returned when the hourly check budget is not
	// positive. A non-positive budget would deny every fingerprint check.
	ErrInvalidCheckBudget = errors.New("invalid check budget: max checks per hour must be positive")

	// ErrUnknownStoreDriver is returned when the store driver is neither
	// "sqlite" nor "redis".
	ErrUnknownStoreDriver = errors.New(`unknown store driver: must be "sqlite" or "redis"`)

	// ErrMissingRedisAddress is returned when the redis driver is selected
	// without a Redis address to connect to.
	ErrMissingRedisAddress = errors.New("missing redis address: required when the store driver is redis")

	// ErrMissingReportURL is returned when enterprise mode is enabled
	// without an alert backend URL. Enterprise mode exists to report
	// matches upstream, so the URL is mandatory.
	ErrMissingReportURL = errors.New("missing report URL: required in enterprise mode")

	// ErrInvalidReportURL is returned when the report URL does not parse
	// as an absolute URL with a scheme and host.
	ErrInvalidReportURL = errors.New("invalid report URL: must be an absolute http(s) URL")

	// ErrInvalidAlertTimeout is returned when the alert timeout is not
	// positive. Alert delivery needs a real deadline; use the default
	// rather than zero.
	ErrInvalidAlertTimeout = errors.New("invalid alert timeout: must be positive")

	// ErrInvalidAlertQueueSize is returned when the alert queue size is not
	// positive. A zero-size queue would drop every alert.
	ErrInvalidAlertQueueSize = errors.New("invalid alert queue size: must be positive")
)
