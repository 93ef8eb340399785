package backend

import (
	"fmt"
	"math"
	"strings"

	"timesplit/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:       backendType,
		BaseAmount: appConfig.DefaultBaseAmount,

		SQLiteDBName: appConfig.SQLiteDBName,

		AMQPURL:           appConfig.AMQPURL,
		AMQPExchange:      appConfig.AMQPExchange,
		AMQPRoutingPrefix: appConfig.AMQPRoutingPrefix,

		SummaryCacheTTL: appConfig.SummaryCacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %s)", c.Type, strings.Join(GetBackendTypeStrings(), ", "))
	}

	if math.IsNaN(c.BaseAmount) || math.IsInf(c.BaseAmount, 0) || c.BaseAmount < 0 {
		return fmt.Errorf("base amount must be a finite number >= 0, got %v", c.BaseAmount)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBName == "" {
			return fmt.Errorf("SQLite database name is required for sqlite backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	// AMQP is optional; only the exchange is needed once it is enabled
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
