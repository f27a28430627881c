package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate URLs beyond this length are rejected outright
const maxCandidateURLLength = 2048

// srcsetEntry is one parsed entry of a responsive-source list
type srcsetEntry struct {
	url   string
	width float64
}

// ResolveImageURL returns the best-resolution absolute URL for an image
// element. When a srcset is present, the entry with the largest declared
// width wins (ties broken by first occurrence); entries without a width
// descriptor count as width 0. Falls back to the src attribute
func ResolveImageURL(sel *goquery.Selection, base *url.URL) (string, bool) {
	if srcset, ok := sel.Attr("srcset"); ok {
		if raw := bestSrcsetURL(srcset); raw != "" {
			if abs, ok := ToAbsolute(raw, base); ok && IsValidCandidateURL(abs) {
				return abs, true
			}
		}
	}
	if src, ok := sel.Attr("src"); ok {
		if abs, ok := ToAbsolute(src, base); ok && IsValidCandidateURL(abs) {
			return abs, true
		}
	}
	return "", false
}

// ResolveVideoURL returns the absolute URL for a video element, preferring a
// direct src attribute over the first child <source>
func ResolveVideoURL(sel *goquery.Selection, base *url.URL) (string, bool) {
	if src, ok := sel.Attr("src"); ok && src != "" {
		if abs, ok := ToAbsolute(src, base); ok && IsValidCandidateURL(abs) {
			return abs, true
		}
	}
	if src, ok := sel.Find("source").First().Attr("src"); ok && src != "" {
		if abs, ok := ToAbsolute(src, base); ok && IsValidCandidateURL(abs) {
			return abs, true
		}
	}
	return "", false
}

// ResolveBackgroundURL extracts the URL from a background-image style value
// such as `url("https://x/y.jpg")`
func ResolveBackgroundURL(styleValue string, base *url.URL) (string, bool) {
	start := strings.Index(styleValue, "url(")
	if start < 0 {
		return "", false
	}
	rest := styleValue[start+len("url("):]
	end := strings.Index(rest, ")")
	if end < 0 {
		return "", false
	}
	raw := strings.TrimSpace(rest[:end])
	raw = strings.Trim(raw, `"'`)
	if raw == "" {
		return "", false
	}
	if abs, ok := ToAbsolute(raw, base); ok && IsValidCandidateURL(abs) {
		return abs, true
	}
	return "", false
}

// bestSrcsetURL parses a srcset value and returns the URL carrying the
// largest width descriptor. Malformed descriptors are tolerated as width 0
// rather than failing the whole list
func bestSrcsetURL(srcset string) string {
	best := srcsetEntry{width: -1}
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		entry := srcsetEntry{url: fields[0]}
		if len(fields) > 1 {
			desc := fields[1]
			if strings.HasSuffix(desc, "w") {
				if w, err := strconv.ParseFloat(strings.TrimSuffix(desc, "w"), 64); err == nil {
					entry.width = w
				}
			}
		}
		if entry.width > best.width {
			best = entry
		}
	}
	return best.url
}

// ToAbsolute resolves raw against the base document URL. Absolute URLs pass
// through unchanged, so the function is idempotent
func ToAbsolute(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	if base == nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// IsValidCandidateURL rejects empty strings, data: URIs, non-http(s) schemes,
// and URLs beyond the length bound
func IsValidCandidateURL(raw string) bool {
	if raw == "" || len(raw) > maxCandidateURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
