package imagekit

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// DecodeDataURL splits a base64 data URL into its MIME type and bytes.
// Bare base64 without the data: prefix is accepted and sniffed.
func DecodeDataURL(s string) (models.Blob, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Blob{}, fmt.Errorf("empty image data")
	}

	payload := s
	mimeType := ""
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return models.Blob{}, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(header, ";base64") {
			return models.Blob{}, fmt.Errorf("data URL is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.Blob{}, fmt.Errorf("failed to decode image data: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return models.Blob{MIMEType: mimeType, Data: data}, nil
}

// EncodeDataURL renders a blob as a base64 data URL.
func EncodeDataURL(b models.Blob) string {
	mimeType := b.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(b.Data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// FromBytes builds a data URL from raw file bytes, rejecting non-images.
func FromBytes(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("not an image: detected %s", mimeType)
	}
	return EncodeDataURL(models.Blob{MIMEType: mimeType, Data: data}), nil
}

// QueueItem turns raw upload bytes into a crop queue entry carrying the
// EXIF capture time when one is present.
func QueueItem(data []byte) (models.CropQueueItem, error) {
	raw, err := FromBytes(data)
	if err != nil {
		return models.CropQueueItem{}, err
	}
	return models.CropQueueItem{RawImage: raw, CapturedAt: CaptureTime(data)}, nil
}
