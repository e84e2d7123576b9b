package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "local", cfg.StorageType)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxImageSize)
	assert.Equal(t, 90, cfg.ImageQuality)
	assert.Equal(t, 150, cfg.ThumbnailWidth)
	assert.Equal(t, 500, cfg.MediumWidth)
	assert.Equal(t, 1000, cfg.LargeWidth)
	assert.Equal(t, 0.08, cfg.TaxRate)
	assert.Equal(t, 100.0, cfg.FreeShippingMin)
	assert.Equal(t, 5.99, cfg.MidShippingCost)
	assert.Equal(t, 9.99, cfg.BaseShippingCost)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADDR", ":9090")
	t.Setenv("TAX_RATE", "0.19")
	t.Setenv("IMAGE_QUALITY", "75")
	t.Setenv("MAX_IMAGE_SIZE", "1048576")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 0.19, cfg.TaxRate)
	assert.Equal(t, 75, cfg.ImageQuality)
	assert.Equal(t, int64(1048576), cfg.MaxImageSize)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("TAX_RATE", "not-a-number")
	t.Setenv("IMAGE_QUALITY", "high")

	cfg := Load()

	assert.Equal(t, 0.08, cfg.TaxRate)
	assert.Equal(t, 90, cfg.ImageQuality)
}
