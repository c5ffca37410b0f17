package agrifun

import (
	"os"
	"testing"

	"github.com/agrifun/agrifun/assert"
)

// unsetenv clears a variable for the duration of the test. t.Setenv alone
// cannot express "not set", and an empty value is not the same thing to
// the env parser.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestConfigDefaults(t *testing.T) {
	unsetenv(t, "AGRIFUN_NAMESPACE")
	unsetenv(t, "AGRIFUN_LOG_LEVEL")
	unsetenv(t, "REDIS_ADDRESS")
	unsetenv(t, "STATSD_ADDRESS")

	cfg, err := loadWorldConfig()
	assert.NilError(t, err)
	assert.Equal(t, "agrifun", cfg.Namespace)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.RedisAddress)
	assert.Equal(t, "", cfg.StatsdAddress)
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("AGRIFUN_NAMESPACE", "farm-west")
	t.Setenv("AGRIFUN_LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, err := loadWorldConfig()
	assert.NilError(t, err)
	assert.Equal(t, "farm-west", cfg.Namespace)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
}

func TestConfigRejectsBadLogLevel(t *testing.T) {
	t.Setenv("AGRIFUN_LOG_LEVEL", "loud")

	_, err := loadWorldConfig()
	assert.ErrorContains(t, err, "loud")
}
