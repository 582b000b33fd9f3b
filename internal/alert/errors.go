package alert

import "errors"

// ErrMissingReportURL is returned when a client is created without a
// backend URL to deliver alerts to.
var ErrMissingReportURL = errors.New("alert: report URL is required")
