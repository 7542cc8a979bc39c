package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8765", cfg.Addr())
	assert.Equal(t, 3*time.Second, cfg.ChatRateWindow)
	assert.Equal(t, 2*time.Second, cfg.RestartDelay)
	assert.Equal(t, 10*time.Second, cfg.AddrInUseDelay)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "erlobby/", cfg.S3Prefix)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHAT_RATE_WINDOW", "500ms")
	t.Setenv("DATA_DIR", "/var/lib/erlobby")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.ChatRateWindow)
	assert.Equal(t, "/var/lib/erlobby", cfg.DataDir)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "not a number", env: map[string]string{"PORT": "eighty"}, want: "parse env"},
		{name: "privileged port", env: map[string]string{"PORT": "80"}, want: "outside the recommended range"},
		{name: "zero window", env: map[string]string{"CHAT_RATE_WINDOW": "0s"}, want: "CHAT_RATE_WINDOW"},
		{name: "bucket without keys", env: map[string]string{"S3_BUCKET_NAME": "backups"}, want: "S3_ACCESS_KEY_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
