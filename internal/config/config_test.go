package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		secret      string
		dbPassword  string
		expectError bool
	}{
		{"Production with default secret", "production", defaultJWTSecret, "strong-db-password", true},
		{"Production with short secret", "production", "short", "strong-db-password", true},
		{"Production with weak db password", "prod", "secure-secret-at-least-32-chars-long", "password", true},
		{"Production fully configured", "production", "secure-secret-at-least-32-chars-long", "strong-db-password", false},
		{"Development with default secret", "development", defaultJWTSecret, "password", false},
		{"Test with short secret", "test", "short", "", false},
		{"Missing secret", "development", "", "password", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:        tt.env,
				Port:       "3001",
				JWTSecret:  tt.secret,
				DBPassword: tt.dbPassword,
				DBSSLMode:  "require",
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateRequiresPort(t *testing.T) {
	c := &Config{JWTSecret: "secret"}
	assert.Error(t, c.Validate())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "9999")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-for-tests")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, 2*time.Hour, c.JWTTTL)
	assert.Equal(t, "env-secret-that-is-long-enough-for-tests", c.JWTSecret)
	assert.Equal(t, "deepthoughts-api", c.JWTIssuer)
	assert.Equal(t, 10, c.GraphQLMaxDepth)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, TracingExporterStdout, c.TracingExporter)
	assert.False(t, c.IsProduction())
}

func TestConfig_ValidateTracing(t *testing.T) {
	tests := []struct {
		name        string
		exporter    string
		ratio       float64
		expectError bool
	}{
		{"Stdout exporter", TracingExporterStdout, 1, false},
		{"OTLP exporter sampled", TracingExporterOTLP, 0.25, false},
		{"Unknown exporter", "jaeger", 1, true},
		{"Ratio above one", TracingExporterOTLP, 1.5, true},
		{"Negative ratio", TracingExporterStdout, -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Port:            "3001",
				JWTSecret:       "secret",
				TracingEnabled:  true,
				TracingExporter: tt.exporter,
				TracingSampler:  tt.ratio,
			}
			if tt.expectError {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}

	disabled := &Config{Port: "3001", JWTSecret: "secret", TracingExporter: "jaeger"}
	assert.NoError(t, disabled.Validate())
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
