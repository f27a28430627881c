package detect

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"media-harvester/pkg/analyze"
	"media-harvester/pkg/config"
	"media-harvester/pkg/extract"
	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
	"media-harvester/pkg/parse"
	"media-harvester/pkg/score"
)

// Alt-text keywords marking profile/avatar imagery
var profileAltKeywords = []string{"profile picture", "profile photo", "avatar", "'s profile"}

// Keyword vocabulary for UI glyphs, matched against alt text and class lists
var glyphKeywords = []string{
	"icon", "glyph", "sprite", "emoji", "arrow", "chevron",
	"close", "play button", "badge", "verified", "spinner",
}

// PostDetector extracts media from a post-style page on a known site. It
// classifies the page into a post type and applies the matching extraction
// strategy, filtering out profile art and UI glyphs
type PostDetector struct {
	profile  SiteProfile
	analyzer *analyze.Analyzer
	cfg      config.DetectionConfig
	log      *logrus.Logger
}

var _ Detector = (*PostDetector)(nil)

// NewPostDetector creates a detector bound to one site profile
func NewPostDetector(profile SiteProfile, cfg config.DetectionConfig, log *logrus.Logger) *PostDetector {
	return &PostDetector{
		profile:  profile,
		analyzer: analyze.New(cfg),
		cfg:      cfg,
		log:      log,
	}
}

// Detect implements Detector
func (d *PostDetector) Detect(ctx pagectx.Context) ([]models.CarouselItem, error) {
	container := d.container(ctx)
	postType := d.Classify(ctx, container)
	d.log.Debugf("Classified %s as %s post", ctx.Location(), postType)

	switch postType {
	case models.PostTypeReel:
		return d.extractSingleVideo(ctx, container)
	case models.PostTypeCarousel:
		return d.extractCarousel(ctx, container)
	case models.PostTypeVideo:
		return d.extractSingleVideo(ctx, container)
	case models.PostTypeImage:
		return d.extractSingleImage(ctx, container)
	default:
		return nil, nil
	}
}

// ClassifyPage classifies the page without extracting media
func (d *PostDetector) ClassifyPage(ctx pagectx.Context) models.PostType {
	return d.Classify(ctx, d.container(ctx))
}

// container returns the primary content container, falling back to the whole
// body when the profile selector matches nothing
func (d *PostDetector) container(ctx pagectx.Context) *goquery.Selection {
	sel := ctx.Doc().Find(d.profile.ContentSelector).First()
	if sel.Length() == 0 {
		return ctx.Doc().Find("body")
	}
	return sel
}

// Classify determines the post type from page signals: reel path markers,
// carousel navigation controls, then the presence of a lone video or image
func (d *PostDetector) Classify(ctx pagectx.Context, container *goquery.Selection) models.PostType {
	if loc := ctx.Location(); loc != nil {
		for _, marker := range d.profile.ReelPathMarkers {
			if strings.Contains(loc.Path, marker) {
				return models.PostTypeReel
			}
		}
	}
	if container.Find(d.profile.NextSelector).Length() > 0 ||
		container.Find(d.profile.PrevSelector).Length() > 0 ||
		container.Find(d.profile.IndicatorSelector).Length() > 0 {
		return models.PostTypeCarousel
	}
	if container.Find("video[playsinline]").Length() > 0 {
		return models.PostTypeReel
	}
	if container.Find("video").Length() > 0 {
		return models.PostTypeVideo
	}
	if container.Find("img").Length() > 0 {
		return models.PostTypeImage
	}
	return models.PostTypeNone
}

// extractCarousel collects all qualifying media in DOM order: images carrying
// a srcset plus videos, deduplicated by normalized URL and capped at the
// configured maximum
func (d *PostDetector) extractCarousel(ctx pagectx.Context, container *goquery.Selection) ([]models.CarouselItem, error) {
	var candidates []models.MediaCandidate
	seen := make(map[string]struct{})

	container.Find("img[srcset], video").Each(func(_ int, sel *goquery.Selection) {
		if len(candidates) >= d.cfg.MaxCarouselItems {
			return
		}
		c, ok := d.candidateFrom(ctx, sel)
		if !ok {
			return
		}
		key := dedupeKey(c.URL)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		candidates = append(candidates, c)
	})

	return numbered(candidates), nil
}

// extractSingleVideo expects one qualifying video in the container
func (d *PostDetector) extractSingleVideo(ctx pagectx.Context, container *goquery.Selection) ([]models.CarouselItem, error) {
	var items []models.CarouselItem
	container.Find("video").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		c, ok := d.candidateFrom(ctx, sel)
		if !ok {
			return true
		}
		items = singleItem(c)
		return false
	})
	return items, nil
}

// extractSingleImage takes the first container image passing the profile and
// glyph filters
func (d *PostDetector) extractSingleImage(ctx pagectx.Context, container *goquery.Selection) ([]models.CarouselItem, error) {
	var items []models.CarouselItem
	container.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		c, ok := d.candidateFrom(ctx, sel)
		if !ok {
			return true
		}
		items = singleItem(c)
		return false
	})
	return items, nil
}

// candidateFrom builds a scored candidate from an element, applying layout
// visibility plus the profile-art and UI-glyph exclusions
func (d *PostDetector) candidateFrom(ctx pagectx.Context, sel *goquery.Selection) (models.MediaCandidate, bool) {
	if !d.analyzer.IsVisible(ctx, sel) || d.analyzer.IsExcludedByClass(sel) {
		return models.MediaCandidate{}, false
	}

	isVideo := goquery.NodeName(sel) == "video"
	if !isVideo && (d.isProfileArt(ctx, sel) || d.isUIGlyph(ctx, sel)) {
		return models.MediaCandidate{}, false
	}

	var (
		u    string
		ok   bool
		kind models.MediaKind
	)
	if isVideo {
		u, ok = extract.ResolveVideoURL(sel, ctx.Location())
		kind = models.KindVideo
	} else {
		u, ok = extract.ResolveImageURL(sel, ctx.Location())
		kind = models.KindImage
	}
	if !ok {
		return models.MediaCandidate{}, false
	}

	size := d.analyzer.Measure(ctx, sel)
	vis := d.analyzer.Classify(ctx, sel)
	return models.MediaCandidate{
		URL:          u,
		Kind:         kind,
		Size:         size,
		Score:        score.Score(size, vis),
		SourceTag:    goquery.NodeName(sel),
		DiscoveredAt: time.Now(),
	}, true
}

// isProfileArt detects avatar imagery: alt-text keywords, a "profile"
// ancestor class or role within the walk depth, circular styling on the
// element or an ancestor, or near-square dimensions under the size bound
func (d *PostDetector) isProfileArt(ctx pagectx.Context, sel *goquery.Selection) bool {
	if alt, ok := sel.Attr("alt"); ok {
		lower := strings.ToLower(alt)
		for _, kw := range profileAltKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}

	if isCircular(ctx.Style(sel).BorderRadius) {
		return true
	}
	node := sel
	for depth := 0; depth < d.cfg.ProfileWalkDepth; depth++ {
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
		if attrContains(node, "class", "profile") || attrContains(node, "role", "profile") {
			return true
		}
		if isCircular(ctx.Style(node).BorderRadius) {
			return true
		}
	}

	size := d.analyzer.Measure(ctx, sel)
	if size.Width > 0 && size.Width <= d.cfg.ProfileMaxDimension &&
		size.Height > 0 && size.Height <= d.cfg.ProfileMaxDimension {
		ratio := size.Width / size.Height
		if math.Abs(ratio-1.0) <= 0.1 {
			return true
		}
	}
	return false
}

// isUIGlyph detects interface decorations: icon vocabulary in the alt text or
// class list, or bounding dimensions under the glyph bound
func (d *PostDetector) isUIGlyph(ctx pagectx.Context, sel *goquery.Selection) bool {
	alt, _ := sel.Attr("alt")
	class, _ := sel.Attr("class")
	haystack := strings.ToLower(alt + " " + class)
	for _, kw := range glyphKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}

	size := d.analyzer.Measure(ctx, sel)
	return size.Width > 0 && size.Width <= d.cfg.GlyphMaxDimension &&
		size.Height > 0 && size.Height <= d.cfg.GlyphMaxDimension
}

// numbered assigns contiguous 1..N positions; single items carry no suffix
// semantics downstream
func numbered(candidates []models.MediaCandidate) []models.CarouselItem {
	items := make([]models.CarouselItem, 0, len(candidates))
	for i, c := range candidates {
		items = append(items, models.CarouselItem{
			MediaCandidate: c,
			Position:       i + 1,
			TotalItems:     len(candidates),
		})
	}
	return items
}

// dedupeKey normalizes a URL for duplicate comparison, ignoring query noise
func dedupeKey(raw string) string {
	if norm, _, err := parse.ParseAndNormalize(raw); err == nil {
		return norm
	}
	return raw
}

// isCircular reports whether a border-radius value renders the box as a
// circle (percentage at or above 50, or the common 9999px pill)
func isCircular(radius string) bool {
	radius = strings.TrimSpace(radius)
	if radius == "" {
		return false
	}
	if strings.HasSuffix(radius, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(radius, "%"), 64)
		return err == nil && v >= 50
	}
	return strings.HasPrefix(radius, "9999")
}

// attrContains reports a case-insensitive substring match on an attribute
func attrContains(sel *goquery.Selection, attr, substr string) bool {
	v, ok := sel.Attr(attr)
	return ok && strings.Contains(strings.ToLower(v), substr)
}
