package harvest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"media-harvester/pkg/config"
	"media-harvester/pkg/detect"
	"media-harvester/pkg/fetch"
	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
	"media-harvester/pkg/parse"
	"media-harvester/pkg/queue"
	"media-harvester/pkg/storage"
	"media-harvester/pkg/utils"
)

// pageClassifier is satisfied by site-specialized detectors that can label a
// page before extraction
type pageClassifier interface {
	ClassifyPage(ctx pagectx.Context) models.PostType
}

// Harvester drives a full run: fetch each page, detect its hero media, queue
// the candidates, drain the queue, and record outcomes in the history store
// and the YAML report
type Harvester struct {
	cfg      *config.AppConfig
	fetcher  *fetch.Fetcher
	limiter  *fetch.RateLimiter
	robots   *fetch.RobotsHandler
	selector *detect.Selector
	queue    *queue.DownloadQueue
	store    storage.MediaStore
	log      *logrus.Logger
}

// New assembles a harvester from the shared components. robots may be nil
// when robots.txt checking is disabled
func New(
	cfg *config.AppConfig,
	fetcher *fetch.Fetcher,
	limiter *fetch.RateLimiter,
	robots *fetch.RobotsHandler,
	selector *detect.Selector,
	dq *queue.DownloadQueue,
	store storage.MediaStore,
	log *logrus.Logger,
) *Harvester {
	return &Harvester{
		cfg:      cfg,
		fetcher:  fetcher,
		limiter:  limiter,
		robots:   robots,
		selector: selector,
		queue:    dq,
		store:    store,
		log:      log,
	}
}

// Run processes the given page URLs in order, then drains the download queue
// once for the whole batch. Per-page failures are recorded in the report and
// never abort the run; only context cancellation does
func (h *Harvester) Run(ctx context.Context, pageURLs []string) (*models.HarvestReport, error) {
	report := &models.HarvestReport{StartedAt: time.Now()}

	for i, raw := range pageURLs {
		if i > 0 && h.cfg.DelayBetweenPages > 0 {
			select {
			case <-time.After(h.cfg.DelayBetweenPages):
			case <-ctx.Done():
				report.FinishedAt = time.Now()
				return report, ctx.Err()
			}
		}

		page := h.processPage(ctx, raw)
		report.Pages = append(report.Pages, page)

		if ctx.Err() != nil {
			report.FinishedAt = time.Now()
			return report, ctx.Err()
		}
	}

	results, procErr := h.queue.Process(ctx)
	for _, res := range results {
		h.recordResult(res)
		report.Downloads = append(report.Downloads, resultReport(res))
		if res.Status == models.StatusCompleted {
			report.Completed++
		} else {
			report.Failed++
		}
	}
	report.FinishedAt = time.Now()

	if err := h.writeReport(report); err != nil {
		h.log.Errorf("Failed to write harvest report: %v", err)
	}
	if procErr != nil && !errors.Is(procErr, context.Canceled) {
		h.log.Warnf("Queue processing ended early: %v", procErr)
	}
	return report, procErr
}

// processPage fetches and analyzes one page, queueing its fresh candidates
func (h *Harvester) processPage(ctx context.Context, raw string) models.PageReport {
	page := models.PageReport{PageURL: raw, ProcessedAt: time.Now()}
	pageLog := h.log.WithField("page", raw)

	normPage, loc, err := parse.ParseAndNormalize(raw)
	if err != nil {
		return pageFailure(page, utils.WrapErrorf(utils.ErrParsing, "page URL %q: %v", raw, err))
	}
	page.PageURL = normPage

	if h.robots != nil && h.cfg.GetRespectRobots() {
		if !h.robots.TestAgent(loc, h.cfg.DefaultUserAgent, ctx) {
			return pageFailure(page, utils.WrapErrorf(utils.ErrRobotsDisallowed, "%s", normPage))
		}
	}

	snap, err := h.fetchSnapshot(ctx, loc)
	if err != nil {
		return pageFailure(page, err)
	}

	if detect.IsLoginWall(snap) {
		pageLog.Warn("Page is gated behind a login wall, skipping")
		return pageFailure(page, utils.WrapErrorf(utils.ErrLoginRequired, "%s", normPage))
	}

	detector := h.selector.ForPage(loc)
	if pc, ok := detector.(pageClassifier); ok {
		page.PostType = string(pc.ClassifyPage(snap))
	}

	items, err := detector.Detect(snap)
	if err != nil {
		return pageFailure(page, err)
	}
	page.Candidates = len(items)
	if len(items) == 0 {
		pageLog.Info("No hero media found on page")
		return page
	}
	if page.PostType == "" {
		page.PostType = string(inferPostType(items))
	}

	fresh := h.filterDownloaded(items, normPage, pageLog)
	page.Skipped = len(items) - len(fresh)
	if len(fresh) > 0 {
		depth := h.queue.Add(fresh, normPage)
		pageLog.Infof("Queued %d candidate(s), queue depth %d", len(fresh), depth)
	}
	return page
}

// fetchSnapshot downloads the page HTML and wraps it in a layout snapshot
func (h *Harvester) fetchSnapshot(ctx context.Context, loc *url.URL) (pagectx.Context, error) {
	host := loc.Hostname()
	h.limiter.ApplyDelay(ctx, host, h.cfg.DefaultDelayPerHost)
	defer h.limiter.UpdateLastRequestTime(host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.String(), nil)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrRequestCreation, "%v", err)
	}
	req.Header.Set("User-Agent", h.cfg.DefaultUserAgent)

	resp, err := h.fetcher.FetchWithRetry(req, ctx)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "parsing %s: %v", loc, err)
	}
	return pagectx.NewSnapshot(doc, loc), nil
}

// filterDownloaded drops candidates already downloaded in a previous run and
// marks the remainder pending in the history store
func (h *Harvester) filterDownloaded(items []models.CarouselItem, sourcePage string, pageLog *logrus.Entry) []models.CarouselItem {
	fresh := make([]models.CarouselItem, 0, len(items))
	for _, item := range items {
		key := historyKey(item.URL)
		status, _, err := h.store.CheckMediaStatus(key)
		if err != nil {
			pageLog.Warnf("History lookup failed for %s: %v", item.URL, err)
		}
		if status == models.MediaStatusSuccess {
			pageLog.Debugf("Skipping already-downloaded %s", item.URL)
			continue
		}
		if err := h.store.UpdateMediaStatus(key, &models.MediaDBEntry{
			Status:      models.MediaStatusPending,
			SourcePage:  sourcePage,
			LastAttempt: time.Now(),
		}); err != nil {
			pageLog.Warnf("Failed to mark %s pending: %v", item.URL, err)
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// recordResult persists a terminal download outcome to the history store
func (h *Harvester) recordResult(res models.DownloadResult) {
	entry := &models.MediaDBEntry{
		SourcePage:  res.SourceURL,
		LastAttempt: res.CompletedAt,
	}
	if res.Status == models.StatusCompleted {
		entry.Status = models.MediaStatusSuccess
		entry.LocalPath = relativeToOutput(h.cfg.OutputDir, res.LocalPath)
	} else {
		entry.Status = models.MediaStatusFailure
		entry.ErrorType = res.ErrorType
	}
	if err := h.store.UpdateMediaStatus(historyKey(res.Media.URL), entry); err != nil {
		h.log.Warnf("Failed to record outcome for %s: %v", res.Media.URL, err)
	}
}

// writeReport serializes the report to YAML in the output directory
func (h *Harvester) writeReport(report *models.HarvestReport) error {
	if h.cfg.ReportFilename == "" {
		return nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return utils.WrapErrorf(utils.ErrParsing, "marshaling report: %v", err)
	}
	if err := os.MkdirAll(h.cfg.OutputDir, 0o755); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "creating output dir: %v", err)
	}
	path := filepath.Join(h.cfg.OutputDir, h.cfg.ReportFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "writing %s: %v", path, err)
	}
	h.log.Infof("Harvest report written to %s", path)
	return nil
}

// pageFailure stamps the error and its category onto a page report
func pageFailure(page models.PageReport, err error) models.PageReport {
	page.Error = err.Error()
	page.ErrorType = utils.CategorizeError(err)
	return page
}

// historyKey normalizes a media URL for history-store lookups so that
// tracking-parameter variants of the same asset share one record
func historyKey(raw string) string {
	if norm, _, err := parse.ParseAndNormalize(raw); err == nil {
		return norm
	}
	return raw
}

// inferPostType labels a generic-detector result by shape
func inferPostType(items []models.CarouselItem) models.PostType {
	switch {
	case len(items) == 0:
		return models.PostTypeNone
	case len(items) > 1:
		return models.PostTypeCarousel
	case items[0].Kind == models.KindVideo:
		return models.PostTypeVideo
	default:
		return models.PostTypeImage
	}
}

// relativeToOutput stores paths relative to the output dir when possible so
// the history survives the directory moving
func relativeToOutput(outputDir, path string) string {
	if rel, err := filepath.Rel(outputDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func resultReport(res models.DownloadResult) models.ResultReport {
	rr := models.ResultReport{
		URL:       res.Media.URL,
		SourceURL: res.SourceURL,
		Status:    res.Status.String(),
		LocalPath: res.LocalPath,
		Error:     res.Error,
		ErrorType: res.ErrorType,
		Attempts:  res.Attempts,
	}
	if res.Media.TotalItems > 1 {
		rr.Position = res.Media.Position
		rr.Total = res.Media.TotalItems
	}
	return rr
}
