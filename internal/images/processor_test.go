package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = Options{
	Quality:         90,
	ThumbnailWidth:  150,
	ThumbnailHeight: 150,
	MediumWidth:     500,
	MediumHeight:    500,
	LargeWidth:      1000,
	LargeHeight:     1000,
}

// pngBytes renders a solid-color PNG of the given size.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func renditionByVariant(res *Result, variant string) *Rendition {
	for i := range res.Renditions {
		if res.Renditions[i].Variant == variant {
			return &res.Renditions[i]
		}
	}
	return nil
}

func TestProcessLargeSource(t *testing.T) {
	res, err := Process(pngBytes(t, 2000, 1200), testOpts)
	require.NoError(t, err)

	assert.Equal(t, 2000, res.Width)
	assert.Equal(t, 1200, res.Height)
	assert.True(t, strings.HasSuffix(res.FileName, ".jpg"))
	assert.True(t, strings.HasSuffix(res.WebpFileName, ".webp"))
	assert.Equal(t,
		strings.TrimSuffix(res.FileName, ".jpg"),
		strings.TrimSuffix(res.WebpFileName, ".webp"))

	require.Len(t, res.Renditions, 5)

	original := renditionByVariant(res, "original")
	require.NotNil(t, original)
	assert.Equal(t, 2000, original.Width)
	assert.Equal(t, 1200, original.Height)
	assert.Equal(t, "image/jpeg", original.ContentType)

	thumb := renditionByVariant(res, "thumbnail")
	require.NotNil(t, thumb)
	assert.LessOrEqual(t, thumb.Width, 150)
	assert.LessOrEqual(t, thumb.Height, 150)

	medium := renditionByVariant(res, "medium")
	require.NotNil(t, medium)
	assert.LessOrEqual(t, medium.Width, 500)
	assert.LessOrEqual(t, medium.Height, 500)

	large := renditionByVariant(res, "large")
	require.NotNil(t, large)
	assert.Equal(t, 1000, large.Width)
	// Aspect ratio preserved: 1000/2000 * 1200 = 600
	assert.Equal(t, 600, large.Height)

	webpR := renditionByVariant(res, "webp")
	require.NotNil(t, webpR)
	assert.Equal(t, "image/webp", webpR.ContentType)
	assert.Equal(t, large.Width, webpR.Width)
	assert.Equal(t, large.Height, webpR.Height)

	for _, r := range res.Renditions {
		assert.NotEmpty(t, r.Data, "rendition %s has no data", r.Variant)
	}
}

// A source smaller than every target box must never be upscaled.
func TestProcessNeverUpscales(t *testing.T) {
	res, err := Process(pngBytes(t, 100, 80), testOpts)
	require.NoError(t, err)

	for _, r := range res.Renditions {
		assert.Equal(t, 100, r.Width, "variant %s was upscaled", r.Variant)
		assert.Equal(t, 80, r.Height, "variant %s was upscaled", r.Variant)
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	_, err := Process([]byte("not an image at all"), testOpts)
	assert.Error(t, err)
}
