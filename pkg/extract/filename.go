package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-harvester/pkg/models"
	"media-harvester/pkg/utils"
)

// Known media suffixes used when guessing an extension from a URL
var knownExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".bmp",
	".mp4", ".webm", ".mov", ".m4v", ".mkv",
}

// DeriveFilename produces a local filename for a media URL. The last path
// segment is used when it carries a dot; otherwise a name is synthesized as
// media_{timestamp}_{random}.{ext}, guessing the extension from known media
// suffixes anywhere in the URL and defaulting by media kind
func DeriveFilename(rawURL string, kind models.MediaKind) string {
	if u, err := url.Parse(rawURL); err == nil {
		segment := path.Base(u.Path)
		if segment != "." && segment != "/" && strings.Contains(segment, ".") {
			return utils.SanitizeFilename(segment)
		}
	}
	return fmt.Sprintf("media_%d_%s%s",
		time.Now().Unix(), uuid.NewString()[:8], guessExtension(rawURL, kind))
}

// guessExtension scans the URL for a known media suffix; absent one, images
// default to .jpg and videos to .mp4
func guessExtension(rawURL string, kind models.MediaKind) string {
	lower := strings.ToLower(rawURL)
	for _, ext := range knownExtensions {
		if strings.Contains(lower, ext) {
			return ext
		}
	}
	if kind == models.KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// CarouselFilename appends a _position suffix before the extension, but only
// for posts with more than one item
func CarouselFilename(filename string, position, totalItems int) string {
	if totalItems <= 1 {
		return filename
	}
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%d%s", stem, position, ext)
}
