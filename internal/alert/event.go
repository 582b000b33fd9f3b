package alert

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// PasswordEvent reports that a stored password was typed outside the
// trusted login flow. The email and timestamp are the matched record's
// fields as captured at match time; a store rewrite that lands while the
// event sits in the queue must not change what gets reported.
type PasswordEvent struct {
	// Email owns the matched record.
	Email string

	// SavedAt is when the matched record was saved. Sent as epoch
	// seconds.
	SavedAt time.Time

	// Referer and URL describe the page the password was typed on.
	Referer string
	URL     string

	// OTP marks a one-time-passcode entry following the match rather
	// than the match itself.
	OTP bool

	// LooksLikeGoogle marks pages the in-page script flagged as
	// resembling the trusted login surface.
	LooksLikeGoogle bool
}

func (ev PasswordEvent) kind() string { return "password" }

func (ev PasswordEvent) deliver(ctx context.Context, c *Client) error {
	values := url.Values{}
	values.Set("email", ev.Email)
	values.Set("password_date", strconv.FormatInt(ev.SavedAt.Unix(), 10))
	values.Set("referer", ev.Referer)
	values.Set("url", ev.URL)
	if ev.OTP {
		values.Set("otp", "true")
	}
	if ev.LooksLikeGoogle {
		values.Set("looksLikeGoogle", "true")
	}
	if tok := c.bearerToken(ctx); tok != "" {
		values.Set("oauth_token", tok)
	}
	return c.postForm(ctx, "/password/", values)
}

// PhishingEvent reports a page that resembles the trusted login surface.
type PhishingEvent struct {
	// Referer and URL describe the suspicious page.
	Referer string
	URL     string

	// Email is a best guess at the targeted account, taken from the most
	// recently saved record. Empty when nothing has been saved yet.
	Email string
}

func (ev PhishingEvent) kind() string { return "phishing" }

func (ev PhishingEvent) deliver(ctx context.Context, c *Client) error {
	values := url.Values{}
	values.Set("referer", ev.Referer)
	values.Set("url", ev.URL)
	values.Set("version", c.version)
	values.Set("email", ev.Email)
	return c.postForm(ctx, "/page/", values)
}
