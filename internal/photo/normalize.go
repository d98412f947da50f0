// Package photo normalizes captured frames before transmission: bounded
// width, JPEG re-encode, base64 data URI.
package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // source cameras may hand over PNG frames

	"golang.org/x/image/draw"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	appErrors "github.com/fabian123z3/sistemareconocimiento-sub000/pkg/errors"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// Normalizer re-encodes raw captures into payloads with predictable size.
type Normalizer struct {
	maxWidth int
	quality  int
}

// NewNormalizer builds a Normalizer; non-positive arguments fall back to
// the pipeline defaults.
func NewNormalizer(maxWidth, quality int) *Normalizer {
	if maxWidth <= 0 {
		maxWidth = models.MaxPhotoWidth
	}
	if quality <= 0 || quality > 100 {
		quality = models.PhotoJPEGQuality
	}
	return &Normalizer{maxWidth: maxWidth, quality: quality}
}

// Normalize decodes raw image bytes, scales them down to the width bound
// when needed (aspect ratio preserved), and returns a base64 JPEG data URI.
// Undecodable input maps to ErrCaptureFailure.
func (n *Normalizer) Normalize(raw []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCaptureFailure.Code, appErrors.ErrCaptureFailure.Status, "decode captured image")
	}

	bounds := src.Bounds()
	if bounds.Dx() > n.maxWidth {
		height := bounds.Dy() * n.maxWidth / bounds.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, n.maxWidth, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, src, &jpeg.Options{Quality: n.quality}); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCaptureFailure.Code, appErrors.ErrCaptureFailure.Status, "encode photo")
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI reverses Normalize for inspection in tests and debugging.
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) <= len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, fmt.Errorf("not a jpeg data uri")
	}
	return base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
}
