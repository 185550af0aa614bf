package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.NotEmpty(t, c.DatabaseDSN)
	assert.NotEmpty(t, c.S3Bucket)
}

func TestParseFlags(t *testing.T) {
	old := os.Args
	defer func() { os.Args = old }()
	os.Args = []string{"server", "-a", ":9090", "-s", "topsecret", "-t", "5"}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, ":9090", c.EndpointAddr)
	assert.Equal(t, "topsecret", c.SecretKey)
	assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
}

func TestParseJson(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_addr":":7070","access_token_validity_duration":"1m"}`), 0o600))

	old := os.Args
	defer func() { os.Args = old }()
	os.Args = []string{"server", "-c", path}

	c := &Config{}
	c.LoadDefaults()
	parseJson(c)

	assert.Equal(t, ":7070", c.EndpointAddr)
	assert.Equal(t, time.Minute, c.AccessTokenValidityDuration)
	// untouched fields keep defaults
	assert.Equal(t, "secretKey", c.SecretKey)
}
