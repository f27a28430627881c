package detect

import "strings"

// SiteProfile defines the page signals and selectors for a site with
// post-style media semantics (content container, carousel controls, reels)
type SiteProfile struct {
	Name string

	// Hostname suffixes this profile applies to
	Hosts []string

	// CSS selector for the primary content container
	ContentSelector string

	// URL path substrings marking a short-form video page
	ReelPathMarkers []string

	// Selectors for carousel navigation controls and position indicators
	NextSelector      string
	PrevSelector      string
	IndicatorSelector string
}

// siteProfiles lists the known post-style sites. Order matters: the first
// matching profile wins
var siteProfiles = []SiteProfile{
	{
		Name:            "instagram",
		Hosts:           []string{"instagram.com"},
		ContentSelector: "article",
		ReelPathMarkers: []string{"/reel/", "/reels/"},
		NextSelector:    "button[aria-label*='Next']",
		PrevSelector:    "button[aria-label*='Go back']",
		IndicatorSelector: "div[role='tablist']",
	},
	{
		Name:            "threads",
		Hosts:           []string{"threads.net", "threads.com"},
		ContentSelector: "div[role='main']",
		ReelPathMarkers: []string{"/video/"},
		NextSelector:    "button[aria-label*='Next']",
		PrevSelector:    "button[aria-label*='Previous']",
		IndicatorSelector: "div[role='tablist']",
	},
}

// ProfileFor returns the site profile matching a hostname, if any
func ProfileFor(hostname string) (SiteProfile, bool) {
	hostname = strings.ToLower(hostname)
	for _, p := range siteProfiles {
		for _, h := range p.Hosts {
			if hostname == h || strings.HasSuffix(hostname, "."+h) {
				return p, true
			}
		}
	}
	return SiteProfile{}, false
}
