package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"media-harvester/pkg/config"
	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
)

// Analyzer answers geometry, visibility, and exclusion queries about page
// elements. All methods are pure reads over the injected page context
type Analyzer struct {
	cfg config.DetectionConfig
}

// New creates an Analyzer with the given detection thresholds
func New(cfg config.DetectionConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Measure returns the element's effective size, preferring intrinsic media
// dimensions over the rendered box. Intrinsic dimensions reflect true
// resolution independent of CSS layout
func (a *Analyzer) Measure(ctx pagectx.Context, sel *goquery.Selection) models.Size {
	if w, h, ok := ctx.IntrinsicSize(sel); ok {
		return models.NewSize(w, h)
	}
	if rect, ok := ctx.BoundingRect(sel); ok {
		return models.NewSize(rect.Width, rect.Height)
	}
	return models.Size{}
}

// Classify compares the element's bounding rectangle against the viewport:
// None when fully outside on any axis, Full when all four edges lie within
// viewport bounds, Partial otherwise
func (a *Analyzer) Classify(ctx pagectx.Context, sel *goquery.Selection) models.Visibility {
	rect, ok := ctx.BoundingRect(sel)
	if !ok {
		return models.VisibilityNone
	}
	vp := ctx.Viewport()

	if rect.Right() <= 0 || rect.Bottom() <= 0 || rect.X >= vp.Width || rect.Y >= vp.Height {
		return models.VisibilityNone
	}
	if rect.X >= 0 && rect.Y >= 0 && rect.Right() <= vp.Width && rect.Bottom() <= vp.Height {
		return models.VisibilityFull
	}
	return models.VisibilityPartial
}

// IsVisible reports whether the element participates in layout at all:
// display is not none, visibility is not hidden, opacity is non-zero, and no
// ancestor removes it from layout. An element failing any of these is never a
// candidate regardless of size
func (a *Analyzer) IsVisible(ctx pagectx.Context, sel *goquery.Selection) bool {
	if sel.Length() == 0 {
		return false
	}
	st := ctx.Style(sel)
	if st.Display == "none" || st.Visibility == "hidden" || st.Opacity == 0 {
		return false
	}
	return a.hasLayoutParent(ctx, sel)
}

// hasLayoutParent walks the ancestor chain; a display:none ancestor (or a
// detached element) means the element has no layout parent
func (a *Analyzer) hasLayoutParent(ctx pagectx.Context, sel *goquery.Selection) bool {
	parents := sel.Parents()
	if parents.Length() == 0 {
		return false
	}
	detached := false
	parents.EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if ctx.Style(p).Display == "none" {
			detached = true
			return false
		}
		return true
	})
	return !detached
}

// IsExcludedByClass performs a case-insensitive substring match of the
// element's class list against the configured denylist
func (a *Analyzer) IsExcludedByClass(sel *goquery.Selection) bool {
	classAttr, ok := sel.Attr("class")
	if !ok || classAttr == "" {
		return false
	}
	classAttr = strings.ToLower(classAttr)
	for _, term := range a.cfg.ClassDenylist {
		if strings.Contains(classAttr, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// TooSmall reports whether the size falls below the hero minimum
func (a *Analyzer) TooSmall(size models.Size) bool {
	return size.Width < a.cfg.HeroMinWidth || size.Height < a.cfg.HeroMinHeight
}

// IsIcon reports whether the size is at or below the icon maximum.
// Icon-sized elements are excluded outright, even when size exclusion is
// otherwise disabled
func (a *Analyzer) IsIcon(size models.Size) bool {
	return size.Width <= a.cfg.IconMaxWidth && size.Height <= a.cfg.IconMaxHeight
}

// Qualifies runs the full candidate filter: layout visibility, class
// denylist, and the two size thresholds. Returns the measured size and
// viewport classification for elements that pass
func (a *Analyzer) Qualifies(ctx pagectx.Context, sel *goquery.Selection) (models.Size, models.Visibility, bool) {
	if !a.IsVisible(ctx, sel) || a.IsExcludedByClass(sel) {
		return models.Size{}, models.VisibilityNone, false
	}
	size := a.Measure(ctx, sel)
	if a.IsIcon(size) {
		return size, models.VisibilityNone, false
	}
	if !a.cfg.DisableSizeExclusion && a.TooSmall(size) {
		return size, models.VisibilityNone, false
	}
	return size, a.Classify(ctx, sel), true
}
