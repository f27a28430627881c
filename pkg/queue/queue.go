package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"media-harvester/pkg/config"
	"media-harvester/pkg/extract"
	"media-harvester/pkg/models"
	"media-harvester/pkg/utils"
)

// Status is a point-in-time snapshot of queue progress
type Status struct {
	Pending    int
	Processing bool
	CurrentURL string
	Completed  int
	Failed     int
}

// DownloadQueue drains media candidates strictly sequentially: one transfer
// outstanding at a time, FIFO order, bounded per-item retries with an
// explicit per-attempt backoff schedule. One item exhausting its retries
// never aborts the batch
type DownloadQueue struct {
	cfg       config.QueueConfig
	transport Transport
	log       *logrus.Logger

	mu         sync.Mutex
	pending    []models.QueueItem
	results    []models.DownloadResult
	processing bool
	currentURL string
	completed  int
	failed     int
}

// New creates an idle queue bound to a transport
func New(cfg config.QueueConfig, transport Transport, log *logrus.Logger) *DownloadQueue {
	return &DownloadQueue{
		cfg:       cfg,
		transport: transport,
		log:       log,
	}
}

// Add appends items as Pending. It never starts processing
func (q *DownloadQueue) Add(items []models.CarouselItem, sourceURL string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		q.pending = append(q.pending, models.QueueItem{
			Media:     item,
			SourceURL: sourceURL,
			Status:    models.StatusPending,
		})
	}
	return len(q.pending)
}

// Process drains the pending list in FIFO order and returns the batch
// results. A second concurrent call fails immediately with ErrQueueBusy;
// the guard protects against re-entrancy, it is not a queueing mechanism
func (q *DownloadQueue) Process(ctx context.Context) ([]models.DownloadResult, error) {
	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		return nil, utils.ErrQueueBusy
	}
	q.processing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.processing = false
		q.currentURL = ""
		q.mu.Unlock()
	}()

	var batch []models.DownloadResult
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			break
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		item.Status = models.StatusDownloading
		q.currentURL = item.Media.URL
		q.mu.Unlock()

		result := q.processItem(ctx, item)

		q.mu.Lock()
		q.results = append(q.results, result)
		if result.Status == models.StatusCompleted {
			q.completed++
		} else {
			q.failed++
		}
		q.mu.Unlock()
		batch = append(batch, result)

		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
	}
	return batch, nil
}

// processItem runs one item through its attempt/retry state machine until a
// terminal status
func (q *DownloadQueue) processItem(ctx context.Context, item models.QueueItem) models.DownloadResult {
	filename := extract.CarouselFilename(
		extract.DeriveFilename(item.Media.URL, item.Media.Kind),
		item.Media.Position, item.Media.TotalItems)

	result := models.DownloadResult{
		Media:     item.Media,
		SourceURL: item.SourceURL,
	}

	var lastErr error
	for attempt := 0; attempt <= q.cfg.MaxRetryAttempts(); attempt++ {
		if attempt > 0 {
			delay := q.cfg.RetrySchedule[attempt-1]
			q.log.Warnf("Retrying %s in %s (attempt %d/%d): %v",
				item.Media.URL, delay, attempt+1, q.cfg.MaxRetryAttempts()+1, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				// Attempts already reflects the tries that ran
				return q.failResult(result, ctx.Err())
			}
			item.RetryCount = attempt
		}

		id, localPath, err := q.attempt(ctx, item.Media.URL, filename)
		result.Attempts = attempt + 1
		result.TransferID = id
		if err == nil {
			result.Status = models.StatusCompleted
			result.LocalPath = localPath
			result.CompletedAt = time.Now()
			q.log.Infof("Downloaded %s -> %s (%d attempt(s))",
				item.Media.URL, localPath, result.Attempts)
			return result
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	q.log.Errorf("Giving up on %s after %d attempt(s): %v",
		item.Media.URL, result.Attempts, lastErr)
	return q.failResult(result, lastErr)
}

func (q *DownloadQueue) failResult(result models.DownloadResult, err error) models.DownloadResult {
	result.Status = models.StatusFailed
	result.CompletedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
		result.ErrorType = utils.CategorizeError(err)
	}
	return result
}

// attempt issues one transfer request and waits for its terminal event.
// Events for other transfer ids are ignored; exceeding the attempt timeout
// is treated identically to a transfer error
func (q *DownloadQueue) attempt(ctx context.Context, url, filename string) (string, string, error) {
	events := make(chan TransferEvent, 16)
	unsubscribe := q.transport.Subscribe(func(ev TransferEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	id, err := q.transport.RequestTransfer(ctx, url, filename)
	if err != nil {
		return "", "", err
	}

	timer := time.NewTimer(q.cfg.AttemptTimeout)
	defer timer.Stop()
	for {
		select {
		case ev := <-events:
			if ev.ID != id {
				continue
			}
			if ev.State == TransferComplete {
				return id, ev.LocalPath, nil
			}
			if ev.Err != nil {
				return id, "", ev.Err
			}
			return id, "", utils.ErrDownloadFailed
		case <-timer.C:
			return id, "", utils.WrapErrorf(utils.ErrAttemptTimeout,
				"transfer %s exceeded %s", id, q.cfg.AttemptTimeout)
		case <-ctx.Done():
			return id, "", ctx.Err()
		}
	}
}

// Status reports queue depth and progress counters
func (q *DownloadQueue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Pending:    len(q.pending),
		Processing: q.processing,
		CurrentURL: q.currentURL,
		Completed:  q.completed,
		Failed:     q.failed,
	}
}

// Results returns a copy of the accumulated terminal results
func (q *DownloadQueue) Results() []models.DownloadResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.DownloadResult, len(q.results))
	copy(out, q.results)
	return out
}

// Clear resets pending items, results, and counters unconditionally. It does
// not abort an in-flight transfer; an active Process call still finishes its
// current item
func (q *DownloadQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.results = nil
	q.completed = 0
	q.failed = 0
}
