// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://gallery@localhost:5432/gallery")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/etc/21st/jwt.pub")
	t.Setenv("CSS_COMPILE_URL", "http://compiler.internal/compile")
}

/*
TestLoad_Defaults fills everything that is not required.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.AnalyticsRefreshInterval)
	assert.Equal(t, int32(20), cfg.DBMaxConns)
	assert.Equal(t, "components-code", cfg.S3Bucket)
}

/*
TestLoad_Invalid rejects unknown environments and pool sizes.
*/
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing database", "DATABASE_URL", ""},
		{"unknown environment", "ENVIRONMENT", "qa"},
		{"min above max", "DB_MIN_CONNS", "50"},
		{"relative app url", "APP_URL", "21st.dev"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(test.key, test.value)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

/*
TestOriginAllowed matches the domain, its subdomains and extra origins.
*/
func TestOriginAllowed(t *testing.T) {
	cfg := &config.Config{
		AllowedOriginDomain: "21st.dev",
		ExtraOrigins:        []string{"http://localhost:3000"},
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://21st.dev", true},
		{"https://www.21st.dev", true},
		{"http://localhost:3000", true},
		{"https://evil21st.dev", false},
		{"https://21st.dev.evil.example", false},
		{"http://21st.dev", false},
	}

	for _, test := range tests {
		t.Run(test.origin, func(t *testing.T) {
			assert.Equal(t, test.want, cfg.OriginAllowed(test.origin))
		})
	}
}
