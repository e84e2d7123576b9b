// Package images turns one uploaded image into the five renditions the
// catalog serves: a re-encoded JPEG original, thumbnail/medium/large
// resizes, and a WebP encode of the large rendition.
package images

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	// WebP uploads decode through image.Decode.
	_ "golang.org/x/image/webp"
)

// AllowedMimeTypes lists the upload types the pipeline accepts.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Options carries the variant dimensions and encode quality.
type Options struct {
	Quality         int
	ThumbnailWidth  int
	ThumbnailHeight int
	MediumWidth     int
	MediumHeight    int
	LargeWidth      int
	LargeHeight     int
}

// Rendition is one encoded output of the pipeline.
type Rendition struct {
	Variant     string
	FileName    string
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Result holds everything a ProductImage row needs.
type Result struct {
	FileName     string // base name of the four JPEG renditions
	WebpFileName string
	Width        int // intrinsic dimensions of the source
	Height       int
	Renditions   []Rendition
}

// Process decodes data and derives all five renditions. Resizes fit
// inside the target box, preserve aspect ratio and never upscale beyond
// the source dimensions.
func Process(data []byte, opts Options) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	base := uuid.New().String()
	fileName := base + ".jpg"
	webpFileName := base + ".webp"

	large := fitInside(src, opts.LargeWidth, opts.LargeHeight)

	type spec struct {
		variant string
		img     image.Image
	}
	specs := []spec{
		{"original", src},
		{"thumbnail", fitInside(src, opts.ThumbnailWidth, opts.ThumbnailHeight)},
		{"medium", fitInside(src, opts.MediumWidth, opts.MediumHeight)},
		{"large", large},
	}

	res := &Result{
		FileName:     fileName,
		WebpFileName: webpFileName,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}

	for _, s := range specs {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, s.img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
			return nil, fmt.Errorf("encode %s jpeg: %w", s.variant, err)
		}
		b := s.img.Bounds()
		res.Renditions = append(res.Renditions, Rendition{
			Variant:     s.variant,
			FileName:    fileName,
			Data:        buf.Bytes(),
			Width:       b.Dx(),
			Height:      b.Dy(),
			ContentType: "image/jpeg",
		})
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, large, &webp.Options{Quality: float32(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	lb := large.Bounds()
	res.Renditions = append(res.Renditions, Rendition{
		Variant:     "webp",
		FileName:    webpFileName,
		Data:        buf.Bytes(),
		Width:       lb.Dx(),
		Height:      lb.Dy(),
		ContentType: "image/webp",
	})

	return res, nil
}

// fitInside scales img down to fit within w x h. Images already inside
// the box are returned at their own size.
func fitInside(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}
