package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_APPLICATION_ID", "app-1")
	t.Setenv("DISCORD_PUBLIC_KEY", "a1b2c3")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
	t.Setenv("BASE_URL", "https://worker.example/")
	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("COOKIE_SECRET", "")
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("ROLE_CONNECTION_METADATA", "verified=1, level = 3,broken,=x")
	t.Setenv("DISCORD_HTTP_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://worker.example/oauth-callback", cfg.RedirectURI())
	require.True(t, cfg.SecureCookies())
	require.Equal(t, "secret", cfg.CookieSecret)
	require.Equal(t, map[string]string{"verified": "1", "level": "3"}, cfg.RoleConnectionMeta)
	require.Equal(t, 3*time.Second, cfg.ProviderTimeout)
}

func TestLoad_WorkerURLFallback(t *testing.T) {
	setRequired(t)
	t.Setenv("BASE_URL", "")
	t.Setenv("WORKER_URL", "http://localhost:8787")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8787/oauth-callback", cfg.RedirectURI())
	require.False(t, cfg.SecureCookies())

	t.Setenv("WORKER_URL", "")
	_, err = Load()
	require.ErrorContains(t, err, "BASE_URL")
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]struct {
		key, value, want string
	}{
		"missing app id":  {"DISCORD_APPLICATION_ID", "", "DISCORD_APPLICATION_ID"},
		"non hex key":     {"DISCORD_PUBLIC_KEY", "zz", "hex"},
		"missing secret":  {"DISCORD_CLIENT_SECRET", "", "DISCORD_CLIENT_SECRET"},
		"unknown store":   {"TOKEN_STORE", "memcached", "TOKEN_STORE"},
		"postgres no dsn": {"TOKEN_STORE", "postgres", "DATABASE_URL"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadRegistration(t *testing.T) {
	t.Setenv("DISCORD_APPLICATION_ID", "app-1")
	t.Setenv("DISCORD_TOKEN", "")
	_, err := LoadRegistration()
	require.ErrorContains(t, err, "DISCORD_TOKEN")

	t.Setenv("DISCORD_TOKEN", "bot")
	cfg, err := LoadRegistration()
	require.NoError(t, err)
	require.Equal(t, "bot", cfg.BotToken)
}
