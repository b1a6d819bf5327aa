package config

import (
	"fmt"
	"strings"

	"cveorigin/internal/szz"

	"github.com/spf13/viper"
)

// ValidateConfig validates configuration values and returns an error listing
// every invalid one. It should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	if viper.IsSet("blame_timeout") {
		if timeout := duration("blame_timeout"); timeout <= 0 {
			errors = append(errors, fmt.Sprintf("blame_timeout must be positive, got: %v", timeout))
		}
	}

	if viper.IsSet("workers") {
		workers := viper.GetInt("workers")
		if workers <= 0 {
			errors = append(errors, fmt.Sprintf("workers must be positive, got: %d", workers))
		}
	}

	// 0 disables the metrics server.
	if viper.IsSet("metrics_port") {
		port := viper.GetInt("metrics_port")
		if port < 0 || port > 65535 {
			errors = append(errors, fmt.Sprintf("metrics_port must be between 1 and 65535, got: %d", port))
		}
	}

	if _, err := szz.ParseMergePolicy(viper.GetString("merge_parent")); err != nil {
		errors = append(errors, err.Error())
	}

	switch t := strings.ToLower(viper.GetString("corpus.type")); t {
	case "", "json":
	case "postgres", "postgresql", "sqlite", "sqlite3":
		if viper.GetString("corpus.dsn") == "" {
			errors = append(errors, fmt.Sprintf("corpus.dsn is required for corpus type %s", t))
		}
	default:
		errors = append(errors, fmt.Sprintf("corpus.type must be json, postgres or sqlite, got: %s", t))
	}

	switch t := strings.ToLower(viper.GetString("store.type")); t {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql":
		if viper.GetString("store.url") == "" {
			errors = append(errors, "store.url is required for a postgres store")
		}
	default:
		errors = append(errors, fmt.Sprintf("store.type must be sqlite or postgres, got: %s", t))
	}

	if viper.IsSet("nvd.rate") && viper.GetFloat64("nvd.rate") < 0 {
		errors = append(errors, fmt.Sprintf("nvd.rate must not be negative, got: %v", viper.GetFloat64("nvd.rate")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errors, "\n  "))
	}
	return nil
}
