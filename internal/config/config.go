package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Relay  RelayConfig
	Log    LogConfig
	CORS   CORSConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Auth:   AuthConfig{Token: strings.TrimSpace(os.Getenv("AUTH_TOKEN"))},
		Relay:  relay,
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		CORS:   CORSConfig{AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig holds the optional shared access secret. Empty disables auth.
type AuthConfig struct {
	Token string
}

// RelayConfig seeds the destination endpoints and bounds the outbound call.
type RelayConfig struct {
	MessageEndpoint string
	ActionEndpoint  string
	Timeout         time.Duration
}

func loadRelayConfig() (RelayConfig, error) {
	timeout := 10 * time.Second
	if raw := strings.TrimSpace(os.Getenv("RELAY_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return RelayConfig{}, fmt.Errorf("invalid RELAY_TIMEOUT value %q: %w", raw, err)
		}
		timeout = parsed
	}

	return RelayConfig{
		MessageEndpoint: strings.TrimSpace(os.Getenv("MESSAGE_WEBHOOK_URL")),
		ActionEndpoint:  strings.TrimSpace(os.Getenv("ACTION_WEBHOOK_URL")),
		Timeout:         timeout,
	}, nil
}

// LogConfig selects the slog level.
type LogConfig struct {
	Level string
}

// CORSConfig lists allowed browser origins; "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
