package config

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	defaultDBPath        = "./precificador.db"
	defaultPort          = "8080"
	defaultMigrationsDir = "migrations"
	defaultReloadSeconds = 5
	defaultLogLevel      = "info"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port                string
	DBPath              string
	MigrationsDir       string
	PolicyPath          string
	ShippingTablePath   string
	APIKey              string
	PolicyReloadSeconds int
	LogLevel            string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: local dev variables; production injects real env.
	_ = loadDotEnv(".env")

	cfg := Config{
		Port:              os.Getenv("PORT"),
		DBPath:            os.Getenv("DB_PATH"),
		MigrationsDir:     os.Getenv("MIGRATIONS_DIR"),
		PolicyPath:        os.Getenv("POLICY_PATH"),
		ShippingTablePath: os.Getenv("SHIPPING_TABLE_PATH"),
		APIKey:            os.Getenv("API_KEY"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = defaultMigrationsDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.PolicyReloadSeconds = defaultReloadSeconds
	if raw := os.Getenv("POLICY_RELOAD_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			logger.Warn().Str("value", raw).Msg("POLICY_RELOAD_SECONDS is not a positive integer, using default")
		} else {
			cfg.PolicyReloadSeconds = seconds
		}
	}

	if cfg.APIKey == "" {
		logger.Warn().Msg("API_KEY is not set, mutating routes are unprotected")
	}

	return cfg
}

// loadDotEnv loads KEY=VALUE pairs from a dotenv file into the process
// environment. Deliberately small: comments, blank lines and "export "
// prefixes are handled, quoted values are unquoted, and variables already
// present in the environment win.
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, value)
	}
	return sc.Err()
}

func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}

	// Strip surrounding quotes.
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			value = value[1 : len(value)-1]
		}
	}

	return key, value, true
}
