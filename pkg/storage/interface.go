package storage

import (
	"context"
	"time"

	"media-harvester/pkg/models"
)

// MediaStore handles media download history
type MediaStore interface {
	// CheckMediaStatus retrieves the status and details of a media URL
	// Returns status (MediaStatusSuccess, MediaStatusFailure, MediaStatusPending,
	// MediaStatusNotFound, MediaStatusDBError), the MediaDBEntry if found and
	// parsed, and any error
	CheckMediaStatus(normalizedURL string) (status models.MediaStatus, entry *models.MediaDBEntry, err error)

	// UpdateMediaStatus updates the status and details for a media URL
	UpdateMediaStatus(normalizedURL string, entry *models.MediaDBEntry) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// GetEntryCount returns an approximate count of all keys in the store
	GetEntryCount() (int, error)

	// WriteHistoryLog writes all media keys (URLs) to the specified file path
	WriteHistoryLog(filePath string) error

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// HistoryStore combines all store interfaces for components that need full access
type HistoryStore interface {
	MediaStore
	StoreAdmin
}
