package pagectx

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default viewport when the capture carries no annotation
const (
	defaultViewportWidth  = 1280.0
	defaultViewportHeight = 800.0
)

// Capture annotation attributes. A capturing host that renders the page can
// stamp layout onto the markup; plain fetched HTML simply lacks them and the
// snapshot falls back to intrinsic attributes
const (
	attrBounds        = "data-bounds"         // "x,y,w,h"
	attrViewport      = "data-viewport"       // "WxH" on the root element
	attrNaturalWidth  = "data-natural-width"  // decoded media width
	attrNaturalHeight = "data-natural-height" // decoded media height
)

// Snapshot implements Context over layout-annotated (or plain) HTML
type Snapshot struct {
	doc      *goquery.Document
	loc      *url.URL
	viewport Rect
}

var _ Context = (*Snapshot)(nil)

// NewSnapshot builds a Snapshot for a document captured at loc.
// The viewport is read from the root element's data-viewport attribute,
// falling back to 1280x800
func NewSnapshot(doc *goquery.Document, loc *url.URL) *Snapshot {
	vp := Rect{Width: defaultViewportWidth, Height: defaultViewportHeight}
	if raw, ok := doc.Find("html").First().Attr(attrViewport); ok {
		if w, h, ok := parseDimensions(raw); ok {
			vp = Rect{Width: w, Height: h}
		}
	}
	return &Snapshot{doc: doc, loc: loc, viewport: vp}
}

// Doc implements Context
func (s *Snapshot) Doc() *goquery.Document { return s.doc }

// Location implements Context
func (s *Snapshot) Location() *url.URL { return s.loc }

// Viewport implements Context
func (s *Snapshot) Viewport() Rect { return s.viewport }

// BoundingRect implements Context. It reads the data-bounds annotation;
// unannotated elements fall back to a box at the origin sized from intrinsic
// dimensions, so static captures still classify deterministically
func (s *Snapshot) BoundingRect(sel *goquery.Selection) (Rect, bool) {
	if raw, ok := sel.Attr(attrBounds); ok {
		parts := strings.Split(raw, ",")
		if len(parts) == 4 {
			vals := make([]float64, 4)
			valid := true
			for i, p := range parts {
				f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					valid = false
					break
				}
				vals[i] = f
			}
			if valid {
				return Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, true
			}
		}
	}

	if w, h, ok := s.IntrinsicSize(sel); ok {
		return Rect{Width: w, Height: h}, true
	}
	return Rect{}, false
}

// IntrinsicSize implements Context. Natural-dimension annotations win over
// the plain width/height attributes
func (s *Snapshot) IntrinsicSize(sel *goquery.Selection) (float64, float64, bool) {
	if w, wok := floatAttr(sel, attrNaturalWidth); wok {
		if h, hok := floatAttr(sel, attrNaturalHeight); hok {
			return w, h, true
		}
	}
	w, wok := floatAttr(sel, "width")
	h, hok := floatAttr(sel, "height")
	if wok && hok && w > 0 && h > 0 {
		return w, h, true
	}
	return 0, 0, false
}

// Style implements Context by parsing the element's inline style attribute.
// Opacity defaults to 1.0 when absent or unparsable
func (s *Snapshot) Style(sel *goquery.Selection) Style {
	st := Style{Opacity: 1.0}
	raw, ok := sel.Attr("style")
	if !ok {
		return st
	}
	for _, decl := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		switch name {
		case "display":
			st.Display = strings.ToLower(value)
		case "visibility":
			st.Visibility = strings.ToLower(value)
		case "opacity":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				st.Opacity = f
			}
		case "background-image":
			st.BackgroundImage = value
		case "border-radius":
			st.BorderRadius = strings.ToLower(value)
		}
	}
	return st
}

// floatAttr parses a numeric attribute, tolerating a trailing "px"
func floatAttr(sel *goquery.Selection, name string) (float64, bool) {
	raw, ok := sel.Attr(name)
	if !ok {
		return 0, false
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "px")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseDimensions parses "WxH" into a pair of floats
func parseDimensions(raw string) (float64, float64, bool) {
	w, h, found := strings.Cut(strings.TrimSpace(raw), "x")
	if !found {
		return 0, 0, false
	}
	fw, errW := strconv.ParseFloat(strings.TrimSpace(w), 64)
	fh, errH := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if errW != nil || errH != nil || fw <= 0 || fh <= 0 {
		return 0, 0, false
	}
	return fw, fh, true
}
