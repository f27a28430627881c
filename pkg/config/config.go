package config

import "time"

// DetectionConfig holds thresholds and heuristics for candidate filtering
type DetectionConfig struct {
	HeroMinWidth         float64  `yaml:"hero_min_width,omitempty"`  // Minimum width for a hero candidate
	HeroMinHeight        float64  `yaml:"hero_min_height,omitempty"` // Minimum height for a hero candidate
	IconMaxWidth         float64  `yaml:"icon_max_width,omitempty"`  // At or below this, an element is icon-sized
	IconMaxHeight        float64  `yaml:"icon_max_height,omitempty"`
	DisableSizeExclusion bool     `yaml:"disable_size_exclusion,omitempty"` // Icon-sized elements are excluded regardless
	ClassDenylist        []string `yaml:"class_denylist,omitempty"`         // Case-insensitive substring match on class names
	MaxCarouselItems     int      `yaml:"max_carousel_items,omitempty"`     // Cap on extracted carousel entries
	ProfileWalkDepth     int      `yaml:"profile_walk_depth,omitempty"`     // Bounded ancestor walk for profile-art detection
	ProfileMaxDimension  float64  `yaml:"profile_max_dimension,omitempty"`  // Near-square images under this are treated as avatars
	GlyphMaxDimension    float64  `yaml:"glyph_max_dimension,omitempty"`    // Elements under this are treated as UI glyphs
}

// QueueConfig holds download queue retry and timeout settings
type QueueConfig struct {
	// RetrySchedule is the explicit per-attempt backoff delay sequence.
	// Attempt N (0-based) that fails waits RetrySchedule[N] before retrying;
	// the schedule length bounds the retry count
	RetrySchedule  []time.Duration `yaml:"retry_schedule,omitempty"`
	AttemptTimeout time.Duration   `yaml:"attempt_timeout,omitempty"` // Wall-clock bound per transfer attempt
}

// AppConfig holds the global application configuration
type AppConfig struct {
	DefaultUserAgent        string           `yaml:"default_user_agent"`
	DefaultDelayPerHost     time.Duration    `yaml:"default_delay_per_host"`
	DelayBetweenPages       time.Duration    `yaml:"delay_between_pages,omitempty"`
	MaxRequests             int              `yaml:"max_requests"` // Global in-flight HTTP request cap
	OutputDir               string           `yaml:"output_dir"`
	StateDir                string           `yaml:"state_dir"`
	MaxRetries              int              `yaml:"max_retries,omitempty"` // Page-fetch retries (queue has its own schedule)
	InitialRetryDelay       time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay           time.Duration    `yaml:"max_retry_delay,omitempty"`
	SemaphoreAcquireTimeout time.Duration    `yaml:"semaphore_acquire_timeout,omitempty"`
	GlobalHarvestTimeout    time.Duration    `yaml:"global_harvest_timeout,omitempty"`
	MaxMediaSizeBytes       int64            `yaml:"max_media_size_bytes,omitempty"` // 0 = unlimited
	RespectRobots           *bool            `yaml:"respect_robots,omitempty"`       // nil/true = check robots.txt before transfers
	DBGCInterval            time.Duration    `yaml:"db_gc_interval,omitempty"`       // History database value-log GC cadence
	ReportFilename          string           `yaml:"report_filename,omitempty"`
	HTTPClientSettings      HTTPClientConfig `yaml:"http_client_settings,omitempty"`
	Detection               DetectionConfig  `yaml:"detection,omitempty"`
	Queue                   QueueConfig      `yaml:"queue,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // Pointer for tri-state: nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// GetRespectRobots resolves the tri-state robots flag (default true)
func (c *AppConfig) GetRespectRobots() bool {
	if c.RespectRobots != nil {
		return *c.RespectRobots
	}
	return true
}

// MaxRetryAttempts returns the number of retries the queue may make per item,
// which is exactly the length of the backoff schedule
func (q QueueConfig) MaxRetryAttempts() int {
	return len(q.RetrySchedule)
}
