package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, "config/intake_form.yaml", cfg.Forms.SchemaPath)
	assert.Equal(t, "admin123", cfg.Bootstrap.AdminPassword)
	assert.Equal(t, 12*time.Hour, cfg.Session.MaxAge)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.local, http://b.local ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
}
