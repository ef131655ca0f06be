package model

import "time"

// Config is the full runtime configuration, populated from defaults, the
// YAML config file and CASEBRIDGE_* environment variables.
type Config struct {
	HTTP       HTTPConfig        `yaml:"http"`
	Store      StoreConfig       `yaml:"store"`
	Mail       MailConfig        `yaml:"mail"`
	Downstream DownstreamConfig  `yaml:"downstream"`
	Scheduler  SchedulerConfig   `yaml:"scheduler"`
	RateLimit  RateLimitConfig   `yaml:"rate_limiting"`
	Output     OutputConfig      `yaml:"output"`
	Accounts   []ProviderAccount `yaml:"accounts"`
}

// HTTPConfig controls the outbound HTTP clients (provider APIs and
// enrichment calls).
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// Proxy URLs override the HTTP_PROXY/HTTPS_PROXY environment.
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	// NoProxy lists hosts reached directly, comma separated. A leading
	// dot matches subdomains.
	NoProxy string `yaml:"no_proxy,omitempty"`
}

// MailConfig locates the local spool the mailbox adapters read fetched
// messages from.
type MailConfig struct {
	SpoolDir string `yaml:"spool_dir"`
}

// StoreConfig locates the local case store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DownstreamConfig points at the case-management API expedientes are
// forwarded to.
type DownstreamConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TokenSlack is subtracted from the token expiry so a refresh happens
	// before the old token actually dies mid-run.
	TokenSlack time.Duration `yaml:"token_slack"`
}

// SchedulerConfig controls the interval loop.
type SchedulerConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
	// Workers bounds how many accounts run concurrently.
	Workers int `yaml:"workers"`
}

// RateLimitConfig paces calls against external APIs.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// OutputConfig controls CLI verbosity.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// ProviderAccount is one configured upstream source: which adapter handles
// it, its credentials and, for mailbox sources, the IMAP endpoint. Moving
// these out of code and into configuration is deliberate; credentials do
// not belong in adapters.
type ProviderAccount struct {
	Name           string        `yaml:"name"`
	Provider       string        `yaml:"provider"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	APIToken       string        `yaml:"api_token,omitempty"`
	Hostname       string        `yaml:"hostname,omitempty"`
	HostPort       int           `yaml:"host_port,omitempty"`
	Secure         bool          `yaml:"secure,omitempty"`
	Interval       time.Duration `yaml:"interval"`
	EnrichUser     string        `yaml:"enrich_user,omitempty"`
	EnrichPassword string        `yaml:"enrich_password,omitempty"`
	EnrichCompany  string        `yaml:"enrich_company,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "casebridge/0.1 (+https://github.com/zasylogic/casebridge)",
		},
		Store: StoreConfig{
			Path: "casebridge.db",
		},
		Mail: MailConfig{
			SpoolDir: "spool",
		},
		Downstream: DownstreamConfig{
			TokenSlack: 10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			CheckInterval: time.Minute,
			Workers:       4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
	}
}
