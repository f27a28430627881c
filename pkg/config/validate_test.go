package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigValidate_Defaults(t *testing.T) {
	cfg := &AppConfig{}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	assert.Equal(t, "media-harvester/1.0", cfg.DefaultUserAgent)
	assert.Equal(t, 4, cfg.MaxRequests)
	assert.Equal(t, "./harvested_media", cfg.OutputDir)
	assert.Equal(t, "./harvester_state", cfg.StateDir)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxRetryDelay)
	assert.Equal(t, 30*time.Second, cfg.SemaphoreAcquireTimeout)
	assert.Equal(t, "harvest_report.yaml", cfg.ReportFilename)
	assert.True(t, cfg.GetRespectRobots())

	// HTTP client defaults
	assert.Equal(t, 45*time.Second, cfg.HTTPClientSettings.Timeout)
	assert.Equal(t, 100, cfg.HTTPClientSettings.MaxIdleConns)

	// Detection defaults
	assert.Equal(t, 200.0, cfg.Detection.HeroMinWidth)
	assert.Equal(t, 200.0, cfg.Detection.HeroMinHeight)
	assert.Equal(t, 48.0, cfg.Detection.IconMaxWidth)
	assert.Equal(t, DefaultClassDenylist, cfg.Detection.ClassDenylist)
	assert.Equal(t, 10, cfg.Detection.MaxCarouselItems)
	assert.Equal(t, 5, cfg.Detection.ProfileWalkDepth)
	assert.Equal(t, 150.0, cfg.Detection.ProfileMaxDimension)
	assert.Equal(t, 48.0, cfg.Detection.GlyphMaxDimension)

	// Queue defaults
	assert.Equal(t, DefaultRetrySchedule, cfg.Queue.RetrySchedule)
	assert.Equal(t, 60*time.Second, cfg.Queue.AttemptTimeout)
	assert.Equal(t, 3, cfg.Queue.MaxRetryAttempts())
}

func TestAppConfigValidate_NegativeValues(t *testing.T) {
	cfg := &AppConfig{
		DefaultDelayPerHost:  -1 * time.Second,
		DelayBetweenPages:    -1 * time.Second,
		MaxRetries:           -2,
		GlobalHarvestTimeout: -1 * time.Minute,
		MaxMediaSizeBytes:    -100,
	}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	assert.Equal(t, time.Duration(0), cfg.DefaultDelayPerHost)
	assert.Equal(t, time.Duration(0), cfg.DelayBetweenPages)
	assert.Equal(t, time.Duration(0), cfg.GlobalHarvestTimeout)
	assert.Equal(t, int64(0), cfg.MaxMediaSizeBytes)
}

func TestAppConfigValidate_InitialDelayCapped(t *testing.T) {
	cfg := &AppConfig{
		MaxRetries:        2,
		InitialRetryDelay: 60 * time.Second,
		MaxRetryDelay:     10 * time.Second,
	}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	assert.Equal(t, 10*time.Second, cfg.InitialRetryDelay)
}

func TestDetectionConfigValidate_ThresholdInversion(t *testing.T) {
	cfg := &AppConfig{
		Detection: DetectionConfig{
			HeroMinWidth:  40,
			HeroMinHeight: 40,
			IconMaxWidth:  64,
			IconMaxHeight: 64,
		},
	}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	// Inverted thresholds fall back to defaults
	assert.Equal(t, 200.0, cfg.Detection.HeroMinWidth)
	assert.Equal(t, 48.0, cfg.Detection.IconMaxWidth)
}

func TestQueueConfigValidate_CustomSchedule(t *testing.T) {
	cfg := &AppConfig{
		Queue: QueueConfig{
			RetrySchedule:  []time.Duration{time.Second, -time.Second},
			AttemptTimeout: 5 * time.Second,
		},
	}
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	assert.Equal(t, []time.Duration{time.Second, 0}, cfg.Queue.RetrySchedule)
	assert.Equal(t, 5*time.Second, cfg.Queue.AttemptTimeout)
	assert.Equal(t, 2, cfg.Queue.MaxRetryAttempts())
}

func TestGetRespectRobots(t *testing.T) {
	cfg := &AppConfig{}
	assert.True(t, cfg.GetRespectRobots())

	off := false
	cfg.RespectRobots = &off
	assert.False(t, cfg.GetRespectRobots())
}
