package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"media-harvester/pkg/log"
	"media-harvester/pkg/models"
	"media-harvester/pkg/utils"
)

const (
	mediaKeyPrefix = "media:"     // Prefix for media URL keys in DB
	historyDBDir   = "history_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the HistoryStore interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	ctx      context.Context // Parent context
	keyCount atomic.Int64    // Cached key count for O(1) GetEntryCount
}

// NewBadgerStore initializes and returns a new BadgerStore
// With resume=false any existing history for the scope is removed first
func NewBadgerStore(ctx context.Context, stateDir, scope string, resume bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		ctx: ctx,
	}

	// Create a unique directory path for this scope's DB within the base state directory
	dbDirName := utils.SanitizeFilename(scope) + "_" + historyDBDir
	dbPath := filepath.Join(stateDir, dbDirName)

	if !resume {
		logger.Warnf("Resume flag is false. REMOVING existing state directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			// Log error but attempt to continue; Badger might recover or create new files
			logger.Errorf("Failed to remove existing state directory %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing media history database at: %s (Resume: %v)", dbPath, resume)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dbPath, err)
	}

	// Configure Badger options
	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger). // Use custom logrus adapter
		WithNumVersionsToKeep(1)  // Only keep the latest state per media URL

	// Open the database
	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", dbPath, err)
	}

	// Initialize key count from existing data (matters for resume mode)
	if resume {
		count, err := store.countKeys()
		if err != nil {
			logger.Warnf("Failed to count existing keys on resume: %v", err)
		} else {
			store.keyCount.Store(int64(count))
			logger.Infof("Loaded existing key count on resume: %d", count)
		}
	}

	logger.Info("Media history database initialized successfully.")
	return store, nil
}

// countKeys performs a one-time full key scan (used only during initialization on resume).
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxConflictRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// CheckMediaStatus implements the MediaStore interface
func (s *BadgerStore) CheckMediaStatus(normalizedURL string) (models.MediaStatus, *models.MediaDBEntry, error) {
	status := models.MediaStatusNotFound
	var entry *models.MediaDBEntry = nil
	key := []byte(mediaKeyPrefix + normalizedURL)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			status = models.MediaStatusNotFound
			return nil // Key not found is not an error for this function's purpose
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting media key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			// Media entries should never be empty if written correctly
			if len(val) == 0 {
				s.log.Warnf("Media key '%s' found with empty value, invalid state. Treating as 'not_found'.", string(key))
				status = models.MediaStatusNotFound
				return nil
			}

			var decodedEntry models.MediaDBEntry
			if errJson := json.Unmarshal(val, &decodedEntry); errJson != nil {
				s.log.Warnf("Failed to unmarshal MediaDBEntry for key '%s': %v. Treating as 'not_found'.", string(key), errJson)
				status = models.MediaStatusNotFound
				return nil
			}

			entry = &decodedEntry
			status = decodedEntry.Status
			return nil
		})
	})

	if errView != nil {
		s.log.Errorf("DB View error in CheckMediaStatus for key '%s': %v", string(key), errView)
		status = models.MediaStatusDBError
		return status, nil, errView
	}

	return status, entry, nil
}

// UpdateMediaStatus implements the MediaStore interface
func (s *BadgerStore) UpdateMediaStatus(normalizedURL string, entry *models.MediaDBEntry) error {
	if s.db == nil {
		return errors.New("history DB not initialized")
	}
	key := []byte(mediaKeyPrefix + normalizedURL)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal MediaDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
		s.log.Error(wrappedErr)
		return wrappedErr
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		e := badger.NewEntry(key, entryBytes)
		return txn.SetEntry(e)
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in UpdateMediaStatus: %v", err)
		return fmt.Errorf("%w: failed setting media status for key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Successfully updated media status for key '%s' to '%s'", string(key), entry.Status)
	return nil
}

// GetEntryCount implements the StoreAdmin interface.
// Returns the cached key count (O(1)) maintained by atomic increments on writes.
func (s *BadgerStore) GetEntryCount() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			// Check if DB is valid before running GC
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			s.log.Info("Running BadgerDB value log garbage collection...")
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				// Run GC if log is at least 50% reclaimable space
				err = s.db.RunValueLogGC(0.5)
				if err == nil {
					s.log.Info("BadgerDB GC cycle completed.")
				} else {
					break // Exit loop if GC finished (ErrNoRewrite) or encountered an error
				}
			}

			// Log outcome
			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Info("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done(): // Check if stop signal received via context cancellation
			s.log.Infof("Stopping BadgerDB garbage collection goroutine due to context cancellation: %v", ctx.Err())
			return
		}
	}
}

// WriteHistoryLog implements the StoreAdmin interface.
func (s *BadgerStore) WriteHistoryLog(filePath string) error {
	s.log.Info("Writing list of known media URLs (from DB)...")
	file, err := os.Create(filePath)
	if err != nil {
		s.log.Errorf("Failed create history log '%s': %v", filePath, err)
		return fmt.Errorf("create history log '%s': %w", filePath, err)
	}
	defer file.Close() // Ensure file is closed

	writer := bufio.NewWriter(file)
	var dbErr error
	writtenCount := 0

	iterErr := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefixBytes := []byte(mediaKeyPrefix)

		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			// Check context cancellation within the loop
			select {
			case <-s.ctx.Done():
				s.log.Warnf("WriteHistoryLog scan interrupted by context cancellation: %v", s.ctx.Err())
				return s.ctx.Err() // Stop iteration
			default:
				// Continue processing item
			}

			item := it.Item()
			keyBytesWithPrefix := item.KeyCopy(nil)
			keyToWrite := string(bytes.TrimPrefix(keyBytesWithPrefix, prefixBytes))

			_, writeErr := writer.WriteString(keyToWrite + "\n")
			if writeErr != nil {
				if dbErr == nil { // Store first write error
					dbErr = writeErr
				}
				s.log.Errorf("Error writing URL '%s' to history log: %v", keyToWrite, writeErr)
				// Continue writing other URLs if possible
			}
			writtenCount++
			if writtenCount%5000 == 0 {
				s.log.Debugf("Flushing history writer after %d entries...", writtenCount)
				if flushErr := writer.Flush(); flushErr != nil {
					if dbErr == nil { // Store first flush error
						dbErr = flushErr
					}
					s.log.Errorf("Error flushing history writer: %v", flushErr)
				}
			}
		}
		return nil
	})

	// Handle errors after iteration
	if iterErr != nil && !errors.Is(iterErr, context.Canceled) && !errors.Is(iterErr, context.DeadlineExceeded) {
		s.log.Errorf("Error during history DB iteration for log: %v", iterErr)
		if dbErr == nil {
			dbErr = iterErr
		}
	}

	// Final flush
	if flushErr := writer.Flush(); flushErr != nil {
		s.log.Errorf("Failed final flush for history log '%s': %v", filePath, flushErr)
		if dbErr == nil {
			dbErr = flushErr
		}
	}

	// Sync to disk before closing
	if syncErr := file.Sync(); syncErr != nil {
		s.log.Errorf("Failed to sync history log '%s': %v", filePath, syncErr)
		if dbErr == nil {
			dbErr = syncErr
		}
	}

	if iterErr == nil && dbErr == nil {
		s.log.Infof("Finished writing %d URLs to history log: %s", writtenCount, filePath)
	} else {
		s.log.Warnf("Finished writing history log with errors. Wrote ~%d URLs to %s", writtenCount, filePath)
	}

	// Return context error if iteration was cancelled, otherwise return first IO/DB error
	if errors.Is(iterErr, context.Canceled) || errors.Is(iterErr, context.DeadlineExceeded) {
		return iterErr
	}
	return dbErr
}

// Close implements the StoreAdmin interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Info("Closing history DB...")
		err := s.db.Close()
		if err != nil {
			s.log.Errorf("Error closing history DB: %v", err)
			return err
		}
		s.log.Info("History DB closed.")
		return nil
	}
	s.log.Info("History DB already closed or was not initialized.")
	return nil
}
