package detect

import (
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"media-harvester/pkg/config"
)

// Selector picks the right detector for a page: the site-specialized post
// detector when the hostname matches a known profile, the generic
// three-stage detector otherwise. Detectors are cached per hostname since
// they are stateless and the choice never changes within a run
type Selector struct {
	cfg config.DetectionConfig
	log *logrus.Logger

	mu    sync.RWMutex
	cache map[string]Detector
}

// NewSelector creates a detector selector with caching
func NewSelector(cfg config.DetectionConfig, log *logrus.Logger) *Selector {
	return &Selector{
		cfg:   cfg,
		log:   log,
		cache: make(map[string]Detector),
	}
}

// ForPage returns the detector to use for the given page URL
func (s *Selector) ForPage(loc *url.URL) Detector {
	hostname := ""
	if loc != nil {
		hostname = strings.ToLower(loc.Hostname())
	}

	s.mu.RLock()
	if d, ok := s.cache[hostname]; ok {
		s.mu.RUnlock()
		return d
	}
	s.mu.RUnlock()

	var d Detector
	if profile, ok := ProfileFor(hostname); ok {
		s.log.Infof("Using %s post detector for %s", profile.Name, hostname)
		d = NewPostDetector(profile, s.cfg, s.log)
	} else {
		s.log.Debugf("Using generic detector for %s", hostname)
		d = NewGenericDetector(s.cfg, s.log)
	}

	s.mu.Lock()
	s.cache[hostname] = d
	s.mu.Unlock()
	return d
}
