// Package token supplies OAuth bearer tokens for alert delivery.
//
// Managed fleets identify alerts with a token so the backend can tie a
// report to a registered install. Two sources exist: a static token for
// tests and externally rotated deployments, and the JWT-bearer grant
// for service accounts, which signs an RS256 assertion and exchanges it
// at the fleet's token endpoint.
package token
