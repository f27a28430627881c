package analyze

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-harvester/pkg/config"
	"media-harvester/pkg/models"
	"media-harvester/pkg/pagectx"
)

func testConfig(t *testing.T) config.DetectionConfig {
	t.Helper()
	cfg := &config.AppConfig{}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg.Detection
}

func snapshotFor(t *testing.T, html string) *pagectx.Snapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	loc, _ := url.Parse("https://example.com/post/1")
	return pagectx.NewSnapshot(doc, loc)
}

func TestMeasure_IntrinsicPreferred(t *testing.T) {
	snap := snapshotFor(t, `<html><body>
		<img id="a" data-bounds="0,0,400,300" data-natural-width="2000" data-natural-height="1000">
	</body></html>`)
	a := New(testConfig(t))

	size := a.Measure(snap, snap.Doc().Find("#a"))
	assert.Equal(t, 2000.0, size.Width)
	assert.Equal(t, 1000.0, size.Height)
	assert.Equal(t, 2000000.0, size.Area)
}

func TestMeasure_BoundingBoxFallback(t *testing.T) {
	snap := snapshotFor(t, `<html><body><div id="a" data-bounds="0,0,400,300"></div></body></html>`)
	a := New(testConfig(t))

	size := a.Measure(snap, snap.Doc().Find("#a"))
	assert.Equal(t, models.NewSize(400, 300), size)
}

func TestClassify(t *testing.T) {
	snap := snapshotFor(t, `<html data-viewport="1280x800"><body>
		<img id="full" data-bounds="100,100,600,400">
		<img id="partial" data-bounds="1000,100,600,400">
		<img id="below" data-bounds="0,900,600,400">
		<img id="above" data-bounds="0,-500,600,400">
		<img id="nogeo">
	</body></html>`)
	a := New(testConfig(t))

	tests := []struct {
		id   string
		want models.Visibility
	}{
		{"full", models.VisibilityFull},
		{"partial", models.VisibilityPartial},
		{"below", models.VisibilityNone},
		{"above", models.VisibilityNone},
		{"nogeo", models.VisibilityNone},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			got := a.Classify(snap, snap.Doc().Find("#"+tc.id))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsVisible(t *testing.T) {
	snap := snapshotFor(t, `<html><body>
		<img id="plain" data-bounds="0,0,500,500">
		<img id="nodisplay" style="display:none">
		<img id="hidden" style="visibility:hidden">
		<img id="clear" style="opacity:0">
		<div style="display:none"><img id="orphaned"></div>
	</body></html>`)
	a := New(testConfig(t))

	assert.True(t, a.IsVisible(snap, snap.Doc().Find("#plain")))
	assert.False(t, a.IsVisible(snap, snap.Doc().Find("#nodisplay")))
	assert.False(t, a.IsVisible(snap, snap.Doc().Find("#hidden")))
	assert.False(t, a.IsVisible(snap, snap.Doc().Find("#clear")))
	assert.False(t, a.IsVisible(snap, snap.Doc().Find("#orphaned")))
	assert.False(t, a.IsVisible(snap, snap.Doc().Find("#missing")))
}

func TestIsExcludedByClass(t *testing.T) {
	snap := snapshotFor(t, `<html><body>
		<img id="a" class="hero-image">
		<img id="b" class="Sponsor-Banner">
		<img id="c" class="user-avatar small">
		<img id="d">
	</body></html>`)
	a := New(testConfig(t))

	assert.False(t, a.IsExcludedByClass(snap.Doc().Find("#a")))
	assert.True(t, a.IsExcludedByClass(snap.Doc().Find("#b")))
	assert.True(t, a.IsExcludedByClass(snap.Doc().Find("#c")))
	assert.False(t, a.IsExcludedByClass(snap.Doc().Find("#d")))
}

func TestSizeThresholds(t *testing.T) {
	a := New(testConfig(t))

	assert.True(t, a.IsIcon(models.NewSize(32, 32)))
	assert.True(t, a.IsIcon(models.NewSize(48, 48)))
	assert.False(t, a.IsIcon(models.NewSize(48, 100)))

	assert.True(t, a.TooSmall(models.NewSize(199, 500)))
	assert.True(t, a.TooSmall(models.NewSize(500, 199)))
	assert.False(t, a.TooSmall(models.NewSize(200, 200)))
}

func TestQualifies(t *testing.T) {
	snap := snapshotFor(t, `<html data-viewport="1280x800"><body>
		<img id="hero" data-bounds="100,100,640,480" data-natural-width="1920" data-natural-height="1080">
		<img id="tiny" data-bounds="0,0,32,32">
		<img id="small" data-bounds="0,0,120,120">
		<img id="ad" class="ad-slot" data-bounds="0,0,640,480">
	</body></html>`)

	cfg := testConfig(t)
	a := New(cfg)

	size, vis, ok := a.Qualifies(snap, snap.Doc().Find("#hero"))
	require.True(t, ok)
	assert.Equal(t, models.NewSize(1920, 1080), size)
	assert.Equal(t, models.VisibilityFull, vis)

	_, _, ok = a.Qualifies(snap, snap.Doc().Find("#tiny"))
	assert.False(t, ok)

	_, _, ok = a.Qualifies(snap, snap.Doc().Find("#small"))
	assert.False(t, ok)

	_, _, ok = a.Qualifies(snap, snap.Doc().Find("#ad"))
	assert.False(t, ok)
}

func TestQualifies_SizeExclusionDisabled(t *testing.T) {
	snap := snapshotFor(t, `<html><body>
		<img id="small" data-bounds="0,0,120,120">
		<img id="tiny" data-bounds="0,0,32,32">
	</body></html>`)

	cfg := testConfig(t)
	cfg.DisableSizeExclusion = true
	a := New(cfg)

	// Below the hero minimum passes when exclusion is off
	_, _, ok := a.Qualifies(snap, snap.Doc().Find("#small"))
	assert.True(t, ok)

	// Icon-sized elements are still rejected
	_, _, ok = a.Qualifies(snap, snap.Doc().Find("#tiny"))
	assert.False(t, ok)
}
