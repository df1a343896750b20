package imagekit

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

const (
	// CropSize is the edge length of an automatic face crop.
	CropSize           = 512
	CropJpegQuality    = 90
	MaxPayloadEdge     = 1536
	PayloadJpegQuality = 85
)

func decode(b models.Blob) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(b.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func encodeJPEG(img image.Image, quality int) (models.Blob, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return models.Blob{}, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return models.Blob{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// AutoCrop produces a square crop suitable as a face reference. Portrait
// images are anchored to the top third where faces usually sit.
func AutoCrop(dataURL string) (string, error) {
	b, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	img, err := decode(b)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	anchor := imaging.Center
	if bounds.Dy() > bounds.Dx() {
		anchor = imaging.Top
	}
	cropped := imaging.CropAnchor(img, side, side, anchor)
	if side > CropSize {
		cropped = imaging.Resize(cropped, CropSize, CropSize, imaging.Lanczos)
	}

	out, err := encodeJPEG(cropped, CropJpegQuality)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(out), nil
}

// Crop cuts rect out of the image. The rectangle is clipped to the bounds.
func Crop(dataURL string, rect image.Rectangle) (string, error) {
	b, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	img, err := decode(b)
	if err != nil {
		return "", err
	}

	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return "", fmt.Errorf("crop rectangle is outside the image")
	}

	out, err := encodeJPEG(imaging.Crop(img, rect), CropJpegQuality)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(out), nil
}

// CompressForPayload downsizes an image to fit within MaxPayloadEdge and
// re-encodes it as JPEG to keep request sizes bounded.
func CompressForPayload(b models.Blob) (models.Blob, error) {
	img, err := decode(b)
	if err != nil {
		return models.Blob{}, err
	}
	bounds := img.Bounds()
	if bounds.Dx() > MaxPayloadEdge || bounds.Dy() > MaxPayloadEdge {
		img = imaging.Fit(img, MaxPayloadEdge, MaxPayloadEdge, imaging.Lanczos)
	}
	return encodeJPEG(img, PayloadJpegQuality)
}

// Dimensions returns the pixel size without decoding the full image.
func Dimensions(b models.Blob) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b.Data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// CaptureTime reads the EXIF DateTime of an upload. Missing EXIF is not an error.
func CaptureTime(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	t, err := x.DateTime()
	if err != nil {
		return nil
	}
	return &t
}
