package pagectx

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot(t *testing.T, html string) *Snapshot {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	loc, _ := url.Parse("https://example.com/page")
	return NewSnapshot(doc, loc)
}

func TestViewport(t *testing.T) {
	snap := newSnapshot(t, `<html data-viewport="1920x1080"><body></body></html>`)
	assert.Equal(t, Rect{Width: 1920, Height: 1080}, snap.Viewport())
}

func TestViewport_Default(t *testing.T) {
	snap := newSnapshot(t, `<html><body></body></html>`)
	assert.Equal(t, Rect{Width: 1280, Height: 800}, snap.Viewport())

	snap = newSnapshot(t, `<html data-viewport="garbage"><body></body></html>`)
	assert.Equal(t, Rect{Width: 1280, Height: 800}, snap.Viewport())
}

func TestBoundingRect_Annotation(t *testing.T) {
	snap := newSnapshot(t, `<html><body><img id="a" data-bounds="10,20,300,400"></body></html>`)
	rect, ok := snap.BoundingRect(snap.Doc().Find("#a"))
	require.True(t, ok)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 300, Height: 400}, rect)
	assert.Equal(t, 310.0, rect.Right())
	assert.Equal(t, 420.0, rect.Bottom())
}

func TestBoundingRect_FallbackToIntrinsic(t *testing.T) {
	snap := newSnapshot(t, `<html><body><img id="a" width="640" height="480"></body></html>`)
	rect, ok := snap.BoundingRect(snap.Doc().Find("#a"))
	require.True(t, ok)
	assert.Equal(t, Rect{Width: 640, Height: 480}, rect)
}

func TestBoundingRect_NoGeometry(t *testing.T) {
	snap := newSnapshot(t, `<html><body><img id="a"></body></html>`)
	_, ok := snap.BoundingRect(snap.Doc().Find("#a"))
	assert.False(t, ok)
}

func TestIntrinsicSize_NaturalWins(t *testing.T) {
	snap := newSnapshot(t, `<html><body>
		<img id="a" width="100" height="100" data-natural-width="1080" data-natural-height="1350">
	</body></html>`)
	w, h, ok := snap.IntrinsicSize(snap.Doc().Find("#a"))
	require.True(t, ok)
	assert.Equal(t, 1080.0, w)
	assert.Equal(t, 1350.0, h)
}

func TestIntrinsicSize_AttributeFallback(t *testing.T) {
	snap := newSnapshot(t, `<html><body><video id="v" width="1920px" height="1080px"></video></body></html>`)
	w, h, ok := snap.IntrinsicSize(snap.Doc().Find("#v"))
	require.True(t, ok)
	assert.Equal(t, 1920.0, w)
	assert.Equal(t, 1080.0, h)
}

func TestStyle(t *testing.T) {
	snap := newSnapshot(t, `<html><body>
		<div id="a" style="display:NONE; visibility:hidden; opacity:0.5; background-image:url('bg.jpg'); border-radius:50%"></div>
		<div id="b"></div>
	</body></html>`)

	st := snap.Style(snap.Doc().Find("#a"))
	assert.Equal(t, "none", st.Display)
	assert.Equal(t, "hidden", st.Visibility)
	assert.Equal(t, 0.5, st.Opacity)
	assert.Equal(t, "url('bg.jpg')", st.BackgroundImage)
	assert.Equal(t, "50%", st.BorderRadius)

	st = snap.Style(snap.Doc().Find("#b"))
	assert.Equal(t, 1.0, st.Opacity)
	assert.Empty(t, st.Display)
}
