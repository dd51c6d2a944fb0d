package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(15000), cfg.Fees.AdmissionFee)
	assert.Equal(t, int64(75000), cfg.Fees.SemesterFee)
	assert.Equal(t, 8, cfg.Fees.DurationSemesters)
	assert.Equal(t, "superior.edu.pk", cfg.Institution.EmailDomain)
	assert.Equal(t, "simulated", cfg.Payment.Provider)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
jwt:
  secret: "from-file"
fees:
  transport_fee: 12000
`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, int64(12000), cfg.Fees.TransportFee)
	assert.Equal(t, 2525, cfg.Notification.SMTP.Port)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadConfig_InvalidEnvValue(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing jwt secret",
			body: "jwt:\n  secret: \"\"\n",
			want: "JWT secret is required",
		},
		{
			name: "unknown driver",
			body: "jwt:\n  secret: s\ndatabase:\n  driver: mysql\n",
			want: "unsupported database driver",
		},
		{
			name: "midtrans without key",
			body: "jwt:\n  secret: s\npayment:\n  provider: midtrans\n",
			want: "midtrans server key is required",
		},
		{
			name: "gcs without bucket",
			body: "jwt:\n  secret: s\nstorage:\n  provider: gcs\n",
			want: "gcs bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCORSOrigins(t *testing.T) {
	c := CORSConfig{AllowedOrigins: " http://a.test, ,http://b.test "}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
}
