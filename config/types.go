package config

// RPC configures the JSON-RPC server.
type RPC struct {
	Address string `toml:"Address"`
	// AuthToken is a static bearer token accepted for mutating calls.
	AuthToken string `toml:"AuthToken,omitempty"`
	// JWTSecret enables HS256 bearer tokens signed with the shared secret.
	JWTSecret string `toml:"JWTSecret,omitempty"`
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer          string  `toml:"JWTIssuer,omitempty"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	// SeenStorePath holds the LevelDB used to drop duplicate submissions.
	// Empty means <DataDir>/seen.
	SeenStorePath    string `toml:"SeenStorePath,omitempty"`
	ReadTimeoutSecs  int    `toml:"ReadTimeoutSecs"`
	WriteTimeoutSecs int    `toml:"WriteTimeoutSecs"`
}

// Logging configures structured log output.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint,omitempty"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers,omitempty"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Indexer configures the relational event index.
type Indexer struct {
	// Driver is "sqlite", "postgres" or empty to disable indexing.
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN,omitempty"`
}

// Webhook configures signed delivery of committed claim events.
type Webhook struct {
	URL    string `toml:"URL,omitempty"`
	Secret string `toml:"Secret,omitempty"`
}
