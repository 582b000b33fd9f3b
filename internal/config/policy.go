package config

// Policy represents the structure of the .password-alert.yml policy file.
// Fleet administrators distribute this file to configure managed installs;
// single-user installs may omit it entirely and run on defaults.
type Policy struct {
	// ReportURL is the base URL of the alert backend.
	ReportURL string `yaml:"report_url,omitempty"`

	// Enterprise enables managed/fleet behavior (alerts, OAuth tokens).
	Enterprise bool `yaml:"enterprise,omitempty"`

	// Bind overrides the gateway listen address.
	Bind string `yaml:"bind,omitempty"`

	// MinPasswordLength overrides the minimum tracked password length.
	MinPasswordLength int `yaml:"min_password_length,omitempty"`

	// MaxChecksPerHour overrides the hourly fingerprint check budget.
	MaxChecksPerHour int `yaml:"max_checks_per_hour,omitempty"`

	// Proxy is an optional SOCKS5 proxy for outbound alert traffic.
	Proxy string `yaml:"proxy,omitempty"`

	// Store configures the persistent credential store backend.
	Store StorePolicy `yaml:"store,omitempty"`

	// Token configures the OAuth token source used in enterprise mode.
	Token TokenPolicy `yaml:"token,omitempty"`
}

// StorePolicy selects and configures the persistent store backend.
type StorePolicy struct {
	// Driver is "sqlite" (default) or "redis".
	Driver string `yaml:"driver,omitempty"`

	// DataDir is the directory for the SQLite database file.
	DataDir string `yaml:"data_dir,omitempty"`

	// RedisAddress is the Redis "host:port" for the redis driver.
	RedisAddress string `yaml:"redis_address,omitempty"`

	// RedisPassword authenticates to Redis.
	RedisPassword string `yaml:"redis_password,omitempty"`
}

// TokenPolicy configures how OAuth bearer tokens are obtained for alerts.
// Either a static pre-issued token or the parameters of a JWT-bearer grant.
type TokenPolicy struct {
	// URL is the OAuth token endpoint.
	URL string `yaml:"url,omitempty"`

	// Issuer is the issuer claim of the signed assertion, typically the
	// service account identity granted by the fleet admin.
	Issuer string `yaml:"issuer,omitempty"`

	// Audience is the audience claim of the signed assertion.
	Audience string `yaml:"audience,omitempty"`

	// KeyFile is the path to the PEM-encoded RSA private key that signs
	// the assertion.
	KeyFile string `yaml:"key_file,omitempty"`

	// Static is a pre-issued bearer token that bypasses the grant flow.
	Static string `yaml:"static,omitempty"`
}

// ApplyPolicy merges a loaded policy file into the configuration.
// Only keys the policy actually sets override the current values, so CLI
// flags applied afterwards still win, and absent keys keep their defaults.
func (c *Config) ApplyPolicy(p *Policy) {
	if p == nil {
		return
	}

	if p.ReportURL != "" {
		c.ReportURL = p.ReportURL
	}
	if p.Enterprise {
		c.EnterpriseMode = true
	}
	if p.Bind != "" {
		c.BindAddress = p.Bind
	}
	if p.MinPasswordLength != 0 {
		c.MinPasswordLength = p.MinPasswordLength
	}
	if p.MaxChecksPerHour != 0 {
		c.MaxChecksPerHour = p.MaxChecksPerHour
	}
	if p.Proxy != "" {
		c.ProxyAddress = p.Proxy
	}

	if p.Store.Driver != "" {
		c.StoreDriver = p.Store.Driver
	}
	if p.Store.DataDir != "" {
		c.DataDir = p.Store.DataDir
	}
	if p.Store.RedisAddress != "" {
		c.RedisAddress = p.Store.RedisAddress
	}
	if p.Store.RedisPassword != "" {
		c.RedisPassword = p.Store.RedisPassword
	}

	if p.Token.URL != "" {
		c.TokenURL = p.Token.URL
	}
	if p.Token.Issuer != "" {
		c.TokenIssuer = p.Token.Issuer
	}
	if p.Token.Audience != "" {
		c.TokenAudience = p.Token.Audience
	}
	if p.Token.KeyFile != "" {
		c.TokenKeyPath = p.Token.KeyFile
	}
	if p.Token.Static != "" {
		c.StaticToken = p.Token.Static
	}
}
