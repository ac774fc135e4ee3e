package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

// ServerConfig holds settings for the HTTP server runtime.
type ServerConfig struct {
	ListenAddr      string        `env:"QUCHAT_LISTEN_ADDR,default=:8000"`
	ShutdownTimeout time.Duration `env:"QUCHAT_SHUTDOWN_TIMEOUT,default=10s"`
	HistoryPageSize int           `env:"QUCHAT_HISTORY_PAGE_SIZE,default=20"`
	Database        DatabaseConfig
	Token           TokenConfig
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL      string        `env:"QUCHAT_SERVER_URL,default=http://127.0.0.1:8000"`
	RequestTimeout time.Duration `env:"QUCHAT_REQUEST_TIMEOUT,default=10s"`
	DataDir        string        `env:"QUCHAT_DATA_DIR,default=.data"`
}

// DatabaseConfig captures storage configuration.
type DatabaseConfig struct {
	Path string `env:"QUCHAT_DB_PATH,default=quchat.db"`
}

// TokenConfig defines session token issuance parameters.
type TokenConfig struct {
	Secret string `env:"QUCHAT_TOKEN_SECRET,default=replace-me"`
}

// LoadServerConfig builds the server configuration from environment variables.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("load server config: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}
