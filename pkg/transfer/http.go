package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"media-harvester/pkg/config"
	"media-harvester/pkg/extract"
	"media-harvester/pkg/fetch"
	"media-harvester/pkg/queue"
	"media-harvester/pkg/utils"
)

// HTTPTransport downloads media over HTTP and reports one terminal event per
// transfer. Requests pass the robots gate and per-host rate limit before any
// bytes move; filename collisions auto-rename rather than overwrite
type HTTPTransport struct {
	client      *http.Client
	rateLimiter *fetch.RateLimiter
	robots      *fetch.RobotsHandler
	sem         *semaphore.Weighted
	cfg         *config.AppConfig
	log         *logrus.Logger

	mu      sync.Mutex
	subs    map[int]func(queue.TransferEvent)
	nextSub int
}

var _ queue.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport wires a transport from the shared HTTP plumbing. robots
// may be nil when robots.txt checking is disabled
func NewHTTPTransport(
	client *http.Client,
	rateLimiter *fetch.RateLimiter,
	robots *fetch.RobotsHandler,
	sem *semaphore.Weighted,
	cfg *config.AppConfig,
	log *logrus.Logger,
) *HTTPTransport {
	return &HTTPTransport{
		client:      client,
		rateLimiter: rateLimiter,
		robots:      robots,
		sem:         sem,
		cfg:         cfg,
		log:         log,
		subs:        make(map[int]func(queue.TransferEvent)),
	}
}

// Subscribe implements queue.Transport
func (t *HTTPTransport) Subscribe(fn func(queue.TransferEvent)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.nextSub
	t.nextSub++
	t.subs[n] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, n)
	}
}

// RequestTransfer implements queue.Transport. Malformed URLs and robots
// denials are rejected synchronously and produce no event; everything after
// that surfaces through exactly one terminal event
func (t *HTTPTransport) RequestTransfer(ctx context.Context, rawURL, filename string) (string, error) {
	if !extract.IsValidCandidateURL(rawURL) {
		return "", utils.WrapErrorf(utils.ErrInvalidMediaURL, "%q", rawURL)
	}
	mediaURL, err := url.Parse(rawURL)
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrInvalidMediaURL, "%q: %v", rawURL, err)
	}

	if t.robots != nil && t.cfg.GetRespectRobots() {
		if !t.robots.TestAgent(mediaURL, t.cfg.DefaultUserAgent, ctx) {
			return "", utils.WrapErrorf(utils.ErrRobotsDisallowed, "%s", rawURL)
		}
	}

	id := uuid.NewString()
	go t.run(ctx, id, mediaURL, filename)
	return id, nil
}

// run performs the download and emits the terminal event
func (t *HTTPTransport) run(ctx context.Context, id string, mediaURL *url.URL, filename string) {
	localPath, err := t.download(ctx, mediaURL, filename)
	if err != nil {
		t.log.WithFields(logrus.Fields{"transfer_id": id, "url": mediaURL}).
			Warnf("Transfer failed: %v", err)
		t.emit(queue.TransferEvent{ID: id, State: queue.TransferError, Err: err})
		return
	}
	t.log.WithFields(logrus.Fields{"transfer_id": id, "path": localPath}).
		Debug("Transfer complete")
	t.emit(queue.TransferEvent{ID: id, State: queue.TransferComplete, LocalPath: localPath})
}

func (t *HTTPTransport) download(ctx context.Context, mediaURL *url.URL, filename string) (string, error) {
	host := mediaURL.Hostname()

	// Bound total concurrent HTTP work across the process
	acquireCtx, cancel := context.WithTimeout(ctx, t.cfg.SemaphoreAcquireTimeout)
	err := t.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrSemaphoreTimeout, "host %s: %v", host, err)
	}
	defer t.sem.Release(1)

	t.rateLimiter.ApplyDelay(ctx, host, t.cfg.DefaultDelayPerHost)
	defer t.rateLimiter.UpdateLastRequestTime(host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL.String(), nil)
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrRequestCreation, "%v", err)
	}
	req.Header.Set("User-Agent", t.cfg.DefaultUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrNetwork, "%v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, resp.StatusCode, resp.Status)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, resp.StatusCode, resp.Status)
	default:
		return "", fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, resp.StatusCode, resp.Status)
	}

	body := io.Reader(resp.Body)
	if t.cfg.MaxMediaSizeBytes > 0 {
		body = io.LimitReader(resp.Body, t.cfg.MaxMediaSizeBytes)
	}
	return t.writeFile(filename, body)
}

// writeFile streams the body to the output directory with exclusive create.
// On a name collision it retries as name_1.ext, name_2.ext, and so on
func (t *HTTPTransport) writeFile(filename string, body io.Reader) (string, error) {
	if err := os.MkdirAll(t.cfg.OutputDir, 0o755); err != nil {
		return "", utils.WrapErrorf(utils.ErrFilesystem, "creating output dir: %v", err)
	}

	safe := utils.SanitizeFilename(filename)
	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)

	for n := 0; ; n++ {
		name := safe
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		path := filepath.Join(t.cfg.OutputDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", utils.WrapErrorf(utils.ErrFilesystem, "creating %s: %v", path, err)
		}

		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			os.Remove(path)
			return "", utils.WrapErrorf(utils.ErrNetwork, "writing %s: %v", path, err)
		}
		if err := f.Close(); err != nil {
			return "", utils.WrapErrorf(utils.ErrFilesystem, "closing %s: %v", path, err)
		}
		return path, nil
	}
}

func (t *HTTPTransport) emit(ev queue.TransferEvent) {
	t.mu.Lock()
	fns := make([]func(queue.TransferEvent), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
