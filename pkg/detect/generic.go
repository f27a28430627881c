package detect

import (
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"media-harvester/pkg/analyze"
	"media-harvester/pkg/config"
	"media-harvester/pkg/extract"
	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
	"media-harvester/pkg/score"
)

// GenericDetector finds the single most prominent media element on an
// arbitrary page. It runs three short-circuiting stages: videos, then
// images, then background-image elements. Video wins whenever one qualifies,
// a fixed priority that is never reconsidered against images
type GenericDetector struct {
	analyzer *analyze.Analyzer
	log      *logrus.Logger
}

var _ Detector = (*GenericDetector)(nil)

// NewGenericDetector creates a detector using the given thresholds
func NewGenericDetector(cfg config.DetectionConfig, log *logrus.Logger) *GenericDetector {
	return &GenericDetector{
		analyzer: analyze.New(cfg),
		log:      log,
	}
}

// Detect implements Detector
func (d *GenericDetector) Detect(ctx pagectx.Context) ([]models.CarouselItem, error) {
	if c, ok := d.bestOf(ctx, "video", models.KindVideo, extract.ResolveVideoURL); ok {
		d.log.Debugf("Hero video selected: %s (score %.0f)", c.URL, c.Score)
		return singleItem(c), nil
	}
	if c, ok := d.bestOf(ctx, "img", models.KindImage, extract.ResolveImageURL); ok {
		d.log.Debugf("Hero image selected: %s (score %.0f)", c.URL, c.Score)
		return singleItem(c), nil
	}
	if c, ok := d.bestBackground(ctx); ok {
		d.log.Debugf("Hero background selected: %s (score %.0f)", c.URL, c.Score)
		return singleItem(c), nil
	}
	return nil, nil
}

type resolveFunc func(sel *goquery.Selection, base *url.URL) (string, bool)

// bestOf scans elements matching tag, filters them through geometry and
// exclusion checks, and returns the highest-scoring one that resolves to a
// valid URL
func (d *GenericDetector) bestOf(ctx pagectx.Context, tag string, kind models.MediaKind, resolve resolveFunc) (models.MediaCandidate, bool) {
	var best models.MediaCandidate
	found := false

	ctx.Doc().Find(tag).Each(func(_ int, sel *goquery.Selection) {
		size, vis, ok := d.analyzer.Qualifies(ctx, sel)
		if !ok {
			return
		}
		u, ok := resolve(sel, ctx.Location())
		if !ok {
			return
		}
		s := score.Score(size, vis)
		if !found || s > best.Score {
			best = models.MediaCandidate{
				URL:          u,
				Kind:         kind,
				Size:         size,
				Score:        s,
				SourceTag:    tag,
				DiscoveredAt: time.Now(),
			}
			found = true
		}
	})
	return best, found
}

// bestBackground scans styled elements exposing a background-image and treats
// the referenced image as the candidate
func (d *GenericDetector) bestBackground(ctx pagectx.Context) (models.MediaCandidate, bool) {
	var best models.MediaCandidate
	found := false

	ctx.Doc().Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		bg := ctx.Style(sel).BackgroundImage
		if bg == "" || bg == "none" {
			return
		}
		size, vis, ok := d.analyzer.Qualifies(ctx, sel)
		if !ok {
			return
		}
		u, ok := extract.ResolveBackgroundURL(bg, ctx.Location())
		if !ok {
			return
		}
		s := score.Score(size, vis)
		if !found || s > best.Score {
			best = models.MediaCandidate{
				URL:          u,
				Kind:         models.KindImage,
				Size:         size,
				Score:        s,
				SourceTag:    "background",
				DiscoveredAt: time.Now(),
			}
			found = true
		}
	})
	return best, found
}

// singleItem wraps a lone candidate; no position suffix applies at size one
func singleItem(c models.MediaCandidate) []models.CarouselItem {
	return []models.CarouselItem{{MediaCandidate: c, Position: 1, TotalItems: 1}}
}
