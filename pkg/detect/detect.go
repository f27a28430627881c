package detect

import (
	"strings"

	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
)

// Detector inspects a captured page and returns its hero media items in
// presentation order. An empty result means the page has no hero media; that
// is a valid terminal outcome, not an error
type Detector interface {
	Detect(ctx pagectx.Context) ([]models.CarouselItem, error)
}

// Body-text markers that indicate a login wall instead of content
var loginMarkers = []string{
	"log in to continue",
	"log in to see",
	"sign in to view",
	"you must log in",
}

// IsLoginWall reports whether the page is gating content behind
// authentication. Signals: a password form on a page with no content media,
// or an explicit login prompt in the page text
func IsLoginWall(ctx pagectx.Context) bool {
	doc := ctx.Doc()

	if doc.Find("form input[type='password']").Length() > 0 &&
		doc.Find("article img, article video, main img, main video").Length() == 0 {
		return true
	}

	text := strings.ToLower(doc.Find("body").Text())
	for _, marker := range loginMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
