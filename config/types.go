package config

// Logging controls the structured logger and optional rotated log file.
type Logging struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Auth configures HMAC-signed admin tokens. An empty secret disables admin
// methods.
type Auth struct {
	HMACSecret    string `toml:"HMACSecret"`
	HMACSecretEnv string `toml:"HMACSecretEnv"`
	Issuer        string `toml:"Issuer"`
	Audience      string `toml:"Audience"`
}

// RateLimit bounds JSON-RPC requests per client address. Zero disables it.
// X-Forwarded-For and X-Real-IP are only read from TrustedProxies.
type RateLimit struct {
	RequestsPerMinute float64  `toml:"RequestsPerMinute"`
	Burst             int      `toml:"Burst"`
	TrustedProxies    []string `toml:"TrustedProxies"`
}

// Indexer selects the SQL backend for the event index.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Referral holds referral module settings.
type Referral struct {
	ServiceDomain string `toml:"ServiceDomain"`
	Paused        bool   `toml:"Paused"`
}
