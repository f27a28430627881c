package models

// DownloadStatus represents a queue item's position in its state machine:
// Pending -> Downloading -> Completed | Failed (with bounded retries looping
// back through Downloading)
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
)

// String implements fmt.Stringer for logging
func (s DownloadStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsTerminal returns true once no further transition is possible
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MediaStatus represents the processing status of a media URL in the history database
type MediaStatus string

const (
	MediaStatusUnset    MediaStatus = ""          // Zero value = unset/unknown
	MediaStatusPending  MediaStatus = "pending"   // Media queued for download
	MediaStatusSuccess  MediaStatus = "success"   // Media downloaded successfully
	MediaStatusFailure  MediaStatus = "failure"   // Media download failed after retries
	MediaStatusNotFound MediaStatus = "not_found" // Media not in database
	MediaStatusDBError  MediaStatus = "db_error"  // Database error occurred
)

// String implements fmt.Stringer for logging
func (s MediaStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s MediaStatus) IsValid() bool {
	switch s {
	case MediaStatusPending, MediaStatusSuccess, MediaStatusFailure:
		return true
	}
	return false
}

// PostType classifies a specialized-site page by its primary content
type PostType string

const (
	PostTypeNone     PostType = "none"
	PostTypeImage    PostType = "single_image"
	PostTypeVideo    PostType = "single_video"
	PostTypeCarousel PostType = "carousel"
	PostTypeReel     PostType = "reel"
)
