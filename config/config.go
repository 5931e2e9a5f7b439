package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}

	return asBool
}

// Config is the client configuration of the dashboard data layer.
type Config struct {
	APIURL         string        `validate:"required,url"`
	LogLevel       string        `validate:"required,oneof=debug info warn error"`
	LogFormat      string        `validate:"required,oneof=console json"`
	RequestTimeout time.Duration `validate:"gte=0"`
	MetricsEnabled bool

	// Agent settings used by the sync command.
	Token           string
	Username        string        `validate:"required_with=Password"`
	Password        string        `validate:"required_with=Username"`
	StatusAddr      string        `validate:"omitempty,hostname_port"`
	RefreshInterval time.Duration `validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env files when present, then the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	return FromMap(New())
}

// FromMap builds a validated Config from an environment map.
func FromMap(env map[string]string) (*Config, error) {
	c := Config{
		APIURL:         strings.TrimRight(GetString(env, "PORTFOLIO_API_URL", ""), "/"),
		LogLevel:       strings.ToLower(GetString(env, "LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(GetString(env, "LOG_FORMAT", "console")),
		RequestTimeout: time.Duration(GetInt(env, "REQUEST_TIMEOUT_SECONDS", 0)) * time.Second,
		MetricsEnabled: GetBool(env, "METRICS_ENABLED", false),

		Token:           GetString(env, "PORTFOLIO_TOKEN", ""),
		Username:        GetString(env, "PORTFOLIO_USERNAME", ""),
		Password:        GetString(env, "PORTFOLIO_PASSWORD", ""),
		StatusAddr:      GetString(env, "STATUS_ADDR", "127.0.0.1:8081"),
		RefreshInterval: time.Duration(GetInt(env, "REFRESH_INTERVAL_SECONDS", 300)) * time.Second,
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}
