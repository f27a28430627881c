package config

import (
	"fmt"
	"time"
)

// DefaultClassDenylist is applied when the config provides no denylist.
// Matched case-insensitively as substrings of candidate class names
var DefaultClassDenylist = []string{
	"ad", "ads", "advert", "sponsor", "banner", "promo",
	"icon", "avatar", "logo", "emoji", "badge", "thumb",
}

// DefaultRetrySchedule is the per-attempt backoff delay sequence applied when
// the config provides none. Three retries: 2s, 5s, 10s
var DefaultRetrySchedule = []time.Duration{
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = "media-harvester/1.0"
	}

	if c.DefaultDelayPerHost < 0 {
		warnings = append(warnings, "default_delay_per_host cannot be negative, setting to 0")
		c.DefaultDelayPerHost = 0
	}

	if c.DelayBetweenPages < 0 {
		warnings = append(warnings, "delay_between_pages cannot be negative, setting to 0")
		c.DelayBetweenPages = 0
	}

	// MaxRequests
	if c.MaxRequests <= 0 {
		warnings = append(warnings, "max_requests should be > 0, defaulting to 4")
		c.MaxRequests = 4
	}

	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './harvested_media'")
		c.OutputDir = "./harvested_media"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './harvester_state'")
		c.StateDir = "./harvester_state"
	}

	// Page-fetch retries
	if c.MaxRetries < 0 {
		warnings = append(warnings, "max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 3
	}
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 1 * time.Second
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 30 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	// SemaphoreAcquireTimeout
	if c.SemaphoreAcquireTimeout <= 0 {
		c.SemaphoreAcquireTimeout = 30 * time.Second
	}

	// GlobalHarvestTimeout
	if c.GlobalHarvestTimeout < 0 {
		warnings = append(warnings, "global_harvest_timeout cannot be negative, disabling timeout")
		c.GlobalHarvestTimeout = 0
	}

	// MaxMediaSizeBytes
	if c.MaxMediaSizeBytes < 0 {
		warnings = append(warnings, "max_media_size_bytes cannot be negative, setting to 0 (unlimited)")
		c.MaxMediaSizeBytes = 0
	}

	if c.DBGCInterval <= 0 {
		c.DBGCInterval = 5 * time.Minute
	}

	if c.ReportFilename == "" {
		c.ReportFilename = "harvest_report.yaml"
	}

	c.validateHTTPClientSettings()
	warnings = append(warnings, c.Detection.validate()...)
	warnings = append(warnings, c.Queue.validate()...)

	return warnings, nil // AppConfig validation never fails fatally
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// validate applies defaults to detection thresholds.
func (d *DetectionConfig) validate() (warnings []string) {
	if d.HeroMinWidth <= 0 {
		d.HeroMinWidth = 200
	}
	if d.HeroMinHeight <= 0 {
		d.HeroMinHeight = 200
	}
	if d.IconMaxWidth <= 0 {
		d.IconMaxWidth = 48
	}
	if d.IconMaxHeight <= 0 {
		d.IconMaxHeight = 48
	}
	if d.IconMaxWidth >= d.HeroMinWidth || d.IconMaxHeight >= d.HeroMinHeight {
		warnings = append(warnings, fmt.Sprintf(
			"icon threshold (%gx%g) must stay below hero minimum (%gx%g), resetting both to defaults",
			d.IconMaxWidth, d.IconMaxHeight, d.HeroMinWidth, d.HeroMinHeight))
		d.HeroMinWidth, d.HeroMinHeight = 200, 200
		d.IconMaxWidth, d.IconMaxHeight = 48, 48
	}
	if len(d.ClassDenylist) == 0 {
		d.ClassDenylist = DefaultClassDenylist
	}
	if d.MaxCarouselItems <= 0 {
		d.MaxCarouselItems = 10
	}
	if d.ProfileWalkDepth <= 0 {
		d.ProfileWalkDepth = 5
	}
	if d.ProfileMaxDimension <= 0 {
		d.ProfileMaxDimension = 150
	}
	if d.GlyphMaxDimension <= 0 {
		d.GlyphMaxDimension = 48
	}
	return warnings
}

// validate applies defaults to queue settings.
func (q *QueueConfig) validate() (warnings []string) {
	if len(q.RetrySchedule) == 0 {
		q.RetrySchedule = DefaultRetrySchedule
	}
	for i, d := range q.RetrySchedule {
		if d < 0 {
			warnings = append(warnings, fmt.Sprintf("retry_schedule[%d] cannot be negative, setting to 0", i))
			q.RetrySchedule[i] = 0
		}
	}
	if q.AttemptTimeout <= 0 {
		q.AttemptTimeout = 60 * time.Second
	}
	return warnings
}
