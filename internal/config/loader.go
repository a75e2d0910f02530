package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultSQLiteDSN = "file:assetd.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Config captures environment driven configuration values for the asset service.
type Config struct {
	HTTPPort        int
	DBDriver        string
	DBDSN           string
	TokenSecret     string
	TokenTTL        time.Duration
	PolicyFile      string
	ConflictRetries int
}

// Load parses configuration values from the current process environment.
//
// An optional dotenv file (ASSETD_ENV_FILE, default .env) is read first;
// variables already set in the environment win over the file. Optional fields
// fall back to defaults while missing and malformed values are reported
// together.
func Load() (Config, error) {
	return load(true)
}

// LoadDatabase is Load for maintenance commands that never sign tokens; the
// token secret is optional.
func LoadDatabase() (Config, error) {
	return load(false)
}

func load(requireSecret bool) (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ASSETD_ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read env file %s: %w", envFile, err)
	}

	cfg := Config{
		HTTPPort:        8080,
		DBDriver:        DriverSQLite,
		TokenTTL:        12 * time.Hour,
		ConflictRetries: 2,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := strings.TrimSpace(os.Getenv("ASSETD_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ASSETD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.ToLower(strings.TrimSpace(os.Getenv("ASSETD_DB_DRIVER"))); driver != "" {
		switch driver {
		case DriverSQLite, DriverPostgres, DriverMemory:
			cfg.DBDriver = driver
		default:
			invalid = append(invalid, "ASSETD_DB_DRIVER")
		}
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("ASSETD_DB_DSN"))
	if cfg.DBDSN == "" {
		switch cfg.DBDriver {
		case DriverSQLite:
			cfg.DBDSN = defaultSQLiteDSN
		case DriverPostgres:
			missing = append(missing, "ASSETD_DB_DSN")
		}
	}

	if secret := strings.TrimSpace(os.Getenv("ASSETD_TOKEN_SECRET")); secret == "" {
		if requireSecret {
			missing = append(missing, "ASSETD_TOKEN_SECRET")
		}
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ASSETD_TOKEN_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ASSETD_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	cfg.PolicyFile = strings.TrimSpace(os.Getenv("ASSETD_POLICY_FILE"))

	if retriesValue := strings.TrimSpace(os.Getenv("ASSETD_CONFLICT_RETRIES")); retriesValue != "" {
		retries, err := strconv.Atoi(retriesValue)
		if err != nil || retries < 0 {
			invalid = append(invalid, "ASSETD_CONFLICT_RETRIES")
		} else {
			cfg.ConflictRetries = retries
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// policyDocument is the on-disk shape of the capability policy.
type policyDocument struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPolicy reads the capability policy named by cfg.PolicyFile. The built-in
// policy is returned when no file is configured.
func LoadPolicy(cfg Config) (application.Policy, error) {
	if cfg.PolicyFile == "" {
		return application.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document such as
//
//	roles:
//	  custodian: [canCheckout, canCheckin, canReserve]
//	  frontdesk: [canReserve]
func ParsePolicy(data []byte) (application.Policy, error) {
	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("decode policy: no roles defined")
	}
	return application.ParsePolicy(doc.Roles)
}
