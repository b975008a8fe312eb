package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.Security.JWTRefreshTTL)
	assert.Equal(t, "remote", cfg.Generator.Provider)
	assert.Equal(t, 90*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "campaign:tasks", cfg.Queue.Stream)
	assert.Equal(t, 320, cfg.Thumbnails.Width)
}

func TestDecodeOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("generator.provider", "gemini")
	v.Set("kafka.brokers", "k1:9092,k2:9092")
	v.Set("queue.claiminterval", "1m")
	v.Set("allowcorsorigins", "https://a.example,https://b.example")

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Generator.Provider)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Queue.ClaimInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowCORSOrigins)
}

func TestDecodeRejectsUnknownProvider(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("generator.provider", "dalle")

	_, err := decode(v)
	assert.Error(t, err)
}

func TestDecodeRequiresSecretInProduction(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("environment", "production")

	_, err := decode(v)
	assert.Error(t, err)

	v.Set("security.jwtaccesssecret", "s3cret")
	_, err = decode(v)
	assert.NoError(t, err)
}
