package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ephemchat/cmd/internal/infrastructure/presence"

	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"
)

const (
	TransportLocal      = "local"
	TransportAPIGateway = "apigateway"
)

type Config struct {
	Port         int
	JWTSecret    string
	JWKSURL      string
	RedisURL     string
	DatabasePath string

	SessionTTLSeconds    int
	RateLimitWindowMS    int
	RateLimitMaxMessages int
	OnlineTTL            time.Duration
	RefreshInterval      time.Duration
	CleanInterval        time.Duration

	Transport          string
	APIGatewayEndpoint string
	AWSRegion          string

	MachineID      int64
	LogLevel       string
	AllowedOrigins string
	BlockedWords   string
}

// Flags binds every setting to a flag with an environment variable fallback.
func Flags(cfg *Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Usage: "HTTP listen port", Value: 7070, EnvVars: []string{"PORT"}, Destination: &cfg.Port},
		&cli.StringFlag{Name: "jwt-secret", Usage: "HMAC secret for handshake tokens", EnvVars: []string{"JWT_SECRET"}, Destination: &cfg.JWTSecret},
		&cli.StringFlag{Name: "jwks-url", Usage: "JWKS endpoint, takes precedence over --jwt-secret", EnvVars: []string{"JWKS_URL"}, Destination: &cfg.JWKSURL},
		&cli.StringFlag{Name: "redis-url", Usage: "primary presence store, empty for in-memory only", Value: "redis://localhost:6379", EnvVars: []string{"REDIS_URL"}, Destination: &cfg.RedisURL},
		&cli.StringFlag{Name: "database-path", Usage: "SQLite file for messages and memberships", Value: "database.db", EnvVars: []string{"DATABASE_PATH"}, Destination: &cfg.DatabasePath},

		&cli.IntFlag{Name: "session-ttl", Usage: "session marker lifetime in seconds", Value: 86400, EnvVars: []string{"SESSION_TTL"}, Destination: &cfg.SessionTTLSeconds},
		&cli.IntFlag{Name: "rate-limit-window-ms", Usage: "message rate limit window", Value: 10000, EnvVars: []string{"RATE_LIMIT_WINDOW_MS"}, Destination: &cfg.RateLimitWindowMS},
		&cli.IntFlag{Name: "rate-limit-max-messages", Usage: "messages allowed per window", Value: 10, EnvVars: []string{"RATE_LIMIT_MAX_MESSAGES"}, Destination: &cfg.RateLimitMaxMessages},
		&cli.DurationFlag{Name: "online-ttl", Usage: "online flag lifetime", Value: 60 * time.Second, EnvVars: []string{"ONLINE_TTL"}, Destination: &cfg.OnlineTTL},
		&cli.DurationFlag{Name: "presence-refresh-interval", Usage: "how often live connections re-arm their online flag", Value: 30 * time.Second, EnvVars: []string{"PRESENCE_REFRESH_INTERVAL"}, Destination: &cfg.RefreshInterval},
		&cli.DurationFlag{Name: "clean-interval", Usage: "how often expired connections are swept", Value: time.Minute, EnvVars: []string{"CLEAN_INTERVAL"}, Destination: &cfg.CleanInterval},

		&cli.StringFlag{Name: "transport", Usage: "local or apigateway", Value: TransportLocal, EnvVars: []string{"TRANSPORT"}, Destination: &cfg.Transport},
		&cli.StringFlag{Name: "apigw-endpoint", Usage: "API Gateway management endpoint", EnvVars: []string{"APIGW_ENDPOINT"}, Destination: &cfg.APIGatewayEndpoint},
		&cli.StringFlag{Name: "aws-region", Usage: "AWS region", Value: "us-east-2", EnvVars: []string{"AWS_REGION"}, Destination: &cfg.AWSRegion},

		&cli.Int64Flag{Name: "machine-id", Usage: "snowflake node id (0-1023)", Value: 1, EnvVars: []string{"MACHINE_ID"}, Destination: &cfg.MachineID},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Destination: &cfg.LogLevel},
		&cli.StringFlag{Name: "allowed-origins", Usage: "comma separated websocket origins, * for any", Value: "*", EnvVars: []string{"ALLOWED_ORIGINS"}, Destination: &cfg.AllowedOrigins},
		&cli.StringFlag{Name: "blocked-words", Usage: "comma separated words masked on top of the default list", EnvVars: []string{"BLOCKED_WORDS"}, Destination: &cfg.BlockedWords},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" && c.JWKSURL == "" {
		errs = append(errs, errors.New("one of JWT_SECRET or JWKS_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.MachineID < 0 || c.MachineID > 1023 {
		errs = append(errs, fmt.Errorf("machine id %d out of range [0 - 1023]", c.MachineID))
	}
	if c.RateLimitWindowMS <= 0 || c.RateLimitMaxMessages <= 0 {
		errs = append(errs, errors.New("rate limit window and max messages must be positive"))
	}
	if c.RefreshInterval >= c.OnlineTTL {
		errs = append(errs, fmt.Errorf("presence refresh interval %s must be shorter than online ttl %s", c.RefreshInterval, c.OnlineTTL))
	}

	switch c.Transport {
	case TransportLocal:
	case TransportAPIGateway:
		if c.APIGatewayEndpoint == "" {
			errs = append(errs, errors.New("APIGW_ENDPOINT is required for the apigateway transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	return errors.Join(errs...)
}

func (c *Config) PresenceConfig() presence.Config {
	return presence.Config{
		SessionTTL:      time.Duration(c.SessionTTLSeconds) * time.Second,
		OnlineTTL:       c.OnlineTTL,
		RateLimitWindow: time.Duration(c.RateLimitWindowMS) * time.Millisecond,
		RateLimitMax:    int64(c.RateLimitMaxMessages),
	}
}

func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c *Config) ExtraBlockedWords() []string {
	return splitList(c.BlockedWords)
}

func (c *Config) Lvl() log.Lvl {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
