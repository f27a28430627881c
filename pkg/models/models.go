package models

import "time"

// MediaKind distinguishes image candidates from video candidates
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Size holds the effective dimensions of a candidate element
// Width/Height prefer intrinsic media dimensions over the rendered box
type Size struct {
	Width  float64
	Height float64
	Area   float64
}

// NewSize builds a Size with Area precomputed
func NewSize(w, h float64) Size {
	return Size{Width: w, Height: h, Area: w * h}
}

// Visibility classifies how much of an element lies inside the viewport
type Visibility string

const (
	VisibilityFull    Visibility = "full"
	VisibilityPartial Visibility = "partial"
	VisibilityNone    Visibility = "none"
)

// MediaCandidate is a transient record produced by a detector
// URLs are always absolute http(s) and bounded in length
type MediaCandidate struct {
	URL          string
	Kind         MediaKind
	Size         Size
	Score        float64
	SourceTag    string // tag name of the element the candidate came from
	DiscoveredAt time.Time
}

// CarouselItem augments a MediaCandidate with its ordinal within a multi-item
// post. Position is 1-based and contiguous; TotalItems matches the extracted
// count. A single-item post carries Position=1, TotalItems=1 and gets no
// filename suffix
type CarouselItem struct {
	MediaCandidate
	Position   int
	TotalItems int
}

// QueueItem wraps a candidate awaiting download
// Mutated only by the owning queue's processing loop
type QueueItem struct {
	Media      CarouselItem
	SourceURL  string
	RetryCount int
	Status     DownloadStatus
}

// DownloadResult is the terminal record for one queue item
type DownloadResult struct {
	Media       CarouselItem
	SourceURL   string
	Status      DownloadStatus
	TransferID  string
	LocalPath   string
	Error       string
	ErrorType   string // category from utils.CategorizeError
	Attempts    int
	CompletedAt time.Time
}

// MediaDBEntry stores the outcome of a media transfer in the history database
type MediaDBEntry struct {
	Status      MediaStatus `json:"status"`
	LocalPath   string      `json:"local_path,omitempty"` // relative to output dir (on success)
	SourcePage  string      `json:"source_page,omitempty"`
	ErrorType   string      `json:"error_type,omitempty"` // error category (on failure)
	LastAttempt time.Time   `json:"last_attempt"`
}

// PageReport holds per-page detection metadata for the harvest report
type PageReport struct {
	PageURL     string    `yaml:"page_url"`
	PostType    string    `yaml:"post_type,omitempty"`
	Candidates  int       `yaml:"candidates"`
	Skipped     int       `yaml:"skipped,omitempty"` // already downloaded in a previous run
	Error       string    `yaml:"error,omitempty"`
	ErrorType   string    `yaml:"error_type,omitempty"`
	ProcessedAt time.Time `yaml:"processed_at"`
}

// HarvestReport is the YAML summary written after a harvest run
type HarvestReport struct {
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Pages      []PageReport   `yaml:"pages"`
	Downloads  []ResultReport `yaml:"downloads,omitempty"`
	Completed  int            `yaml:"completed"`
	Failed     int            `yaml:"failed"`
}

// ResultReport is the YAML projection of a DownloadResult
type ResultReport struct {
	URL       string `yaml:"url"`
	SourceURL string `yaml:"source_url"`
	Status    string `yaml:"status"`
	LocalPath string `yaml:"local_path,omitempty"`
	Position  int    `yaml:"position,omitempty"`
	Total     int    `yaml:"total,omitempty"`
	Error     string `yaml:"error,omitempty"`
	ErrorType string `yaml:"error_type,omitempty"`
	Attempts  int    `yaml:"attempts"`
}
