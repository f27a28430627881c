package pagectx

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Rect is an axis-aligned box in viewport coordinates
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Style is the subset of computed style the detectors care about
type Style struct {
	Display         string
	Visibility      string
	Opacity         float64 // 1.0 when unspecified
	BackgroundImage string  // raw value, e.g. `url("x.jpg")`
	BorderRadius    string
}

// Context is a read-only view over a captured page: document tree, location,
// viewport geometry, per-element bounds, intrinsic media dimensions, and
// computed style. Detectors and analyzers receive it explicitly rather than
// reaching for ambient page state, which keeps them testable against
// synthetic trees
type Context interface {
	// Doc returns the parsed document tree
	Doc() *goquery.Document

	// Location returns the page URL the document was captured from
	Location() *url.URL

	// Viewport returns the viewport rectangle at capture time
	Viewport() Rect

	// BoundingRect returns the element's layout box in viewport coordinates.
	// ok is false when the capture carries no geometry for the element
	BoundingRect(sel *goquery.Selection) (rect Rect, ok bool)

	// IntrinsicSize returns the element's natural media dimensions
	// (decoded image size, video resolution), independent of CSS layout
	IntrinsicSize(sel *goquery.Selection) (w, h float64, ok bool)

	// Style returns the element's computed style subset
	Style(sel *goquery.Selection) Style
}
