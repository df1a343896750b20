package archive

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/albumgen/internal/assets"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// Persisted sessions exist in several historical shapes. Every shape is
// decoded into the same record types below and normalized into the in-memory
// model here, so nothing past this file branches on schema shape.
//
//   - current:  reference_assets with is_primary
//   - flagged:  referenceAssets with isPrimary, millisecond timestamps
//   - deck:     referenceDeck, ordered, first element implicitly primary
//   - stub:     a single sourceImageStub thumbnail and no asset list
type assetShape int

const (
	shapeNone assetShape = iota
	shapeCurrent
	shapeFlagged
	shapeDeck
	shapeStub
)

func (s assetShape) String() string {
	switch s {
	case shapeCurrent:
		return "current"
	case shapeFlagged:
		return "flagged"
	case shapeDeck:
		return "deck"
	case shapeStub:
		return "stub"
	default:
		return "none"
	}
}

type assetRecord struct {
	ID            string     `json:"id,omitempty"`
	OriginalImage string     `json:"original_image,omitempty"`
	CroppedImage  string     `json:"cropped_image,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"`
	IsPrimary     *bool      `json:"is_primary,omitempty"`

	OriginalBase64 string `json:"originalBase64,omitempty"`
	CroppedBase64  string `json:"croppedBase64,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	LegacyPrimary  *bool  `json:"isPrimary,omitempty"`

	Crop     string `json:"crop,omitempty"`
	Original string `json:"original,omitempty"`
}

type imageRecord struct {
	ID         string     `json:"id"`
	ImageData  string     `json:"image_data,omitempty"`
	Prompt     string     `json:"prompt"`
	ScenarioID string     `json:"scenario_id,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`

	URL       string `json:"url,omitempty"`
	Scenario  string `json:"scenario,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type sessionRecord struct {
	ID              string        `json:"id"`
	CreatedAt       *time.Time    `json:"created_at,omitempty"`
	Images          []imageRecord `json:"images"`
	ReferenceAssets []assetRecord `json:"reference_assets,omitempty"`
	AnalysisSummary string        `json:"analysis_summary,omitempty"`

	Timestamp       int64         `json:"timestamp,omitempty"`
	LegacyAssets    []assetRecord `json:"referenceAssets,omitempty"`
	ReferenceDeck   []assetRecord `json:"referenceDeck,omitempty"`
	SourceImageStub string        `json:"sourceImageStub,omitempty"`
	LegacySummary   string        `json:"analysisSummary,omitempty"`
}

func (r sessionRecord) shape() assetShape {
	switch {
	case len(r.ReferenceAssets) > 0:
		return shapeCurrent
	case len(r.LegacyAssets) > 0:
		return shapeFlagged
	case len(r.ReferenceDeck) > 0:
		return shapeDeck
	case r.SourceImageStub != "":
		return shapeStub
	default:
		return shapeNone
	}
}

// EncodeHistory serializes sessions in the current shape.
func EncodeHistory(sessions []models.AlbumSession) ([]byte, error) {
	records := make([]sessionRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, encodeSession(s))
	}
	return json.Marshal(records)
}

// DecodeHistory accepts any mix of historical session shapes. Entries that
// cannot be decoded are skipped and logged.
func DecodeHistory(data []byte) ([]models.AlbumSession, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	sessions := make([]models.AlbumSession, 0, len(raw))
	for i, entry := range raw {
		session, err := DecodeSession(entry)
		if err != nil {
			slog.Warn("Skipping unreadable history entry", "index", i, "err", err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DecodeSession normalizes one persisted session of any shape.
func DecodeSession(data []byte) (models.AlbumSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.AlbumSession{}, fmt.Errorf("failed to decode session: %w", err)
	}
	if rec.ID == "" {
		return models.AlbumSession{}, fmt.Errorf("session has no id")
	}

	session := models.AlbumSession{
		ID:              rec.ID,
		CreatedAt:       recordTime(rec.CreatedAt, rec.Timestamp),
		Images:          decodeImages(rec.Images),
		AnalysisSummary: firstNonEmpty(rec.AnalysisSummary, rec.LegacySummary, models.UnknownSessionSummary),
	}

	shape := rec.shape()
	switch shape {
	case shapeCurrent:
		session.ReferenceAssets = decodeAssetRecords(rec.ReferenceAssets, true)
	case shapeFlagged:
		session.ReferenceAssets = decodeAssetRecords(rec.LegacyAssets, true)
	case shapeDeck:
		session.ReferenceAssets = decodeAssetRecords(rec.ReferenceDeck, false)
	case shapeStub:
		session.ReferenceAssets = []models.ReferenceAsset{{
			ID:            uuid.NewString(),
			OriginalImage: rec.SourceImageStub,
			CroppedImage:  rec.SourceImageStub,
			CreatedAt:     session.CreatedAt,
			IsPrimary:     true,
		}}
	default:
		session.ReferenceAssets = []models.ReferenceAsset{}
	}

	if shape != shapeCurrent {
		slog.Debug("Normalized legacy session", "session_id", session.ID, "shape", shape.String(), "assets", len(session.ReferenceAssets))
	}
	return session, nil
}

// EncodeAssets serializes the live asset list.
func EncodeAssets(list []models.ReferenceAsset) ([]byte, error) {
	return json.Marshal(encodeAssetRecords(list))
}

// DecodeAssets reads a live asset list of any shape and enforces the
// single-primary invariant.
func DecodeAssets(data []byte) ([]models.ReferenceAsset, error) {
	var records []assetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}
	return decodeAssetRecords(records, true), nil
}

// EncodeGallery serializes generated images.
func EncodeGallery(images []models.GeneratedImage) ([]byte, error) {
	return json.Marshal(encodeImages(images))
}

// DecodeGallery reads generated images of any shape.
func DecodeGallery(data []byte) ([]models.GeneratedImage, error) {
	var records []imageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode gallery: %w", err)
	}
	return decodeImages(records), nil
}

func encodeSession(s models.AlbumSession) sessionRecord {
	createdAt := s.CreatedAt
	return sessionRecord{
		ID:              s.ID,
		CreatedAt:       &createdAt,
		Images:          encodeImages(s.Images),
		ReferenceAssets: encodeAssetRecords(s.ReferenceAssets),
		AnalysisSummary: s.AnalysisSummary,
	}
}

func encodeAssetRecords(list []models.ReferenceAsset) []assetRecord {
	records := make([]assetRecord, 0, len(list))
	for _, a := range list {
		createdAt := a.CreatedAt
		primary := a.IsPrimary
		records = append(records, assetRecord{
			ID:            a.ID,
			OriginalImage: a.OriginalImage,
			CroppedImage:  a.CroppedImage,
			CreatedAt:     &createdAt,
			CapturedAt:    a.CapturedAt,
			IsPrimary:     &primary,
		})
	}
	return records
}

func decodeAssetRecords(records []assetRecord, useFlags bool) []models.ReferenceAsset {
	out := make([]models.ReferenceAsset, 0, len(records))
	for i, r := range records {
		original := firstNonEmpty(r.OriginalImage, r.OriginalBase64, r.Original)
		cropped := firstNonEmpty(r.CroppedImage, r.CroppedBase64, r.Crop)
		if original == "" && cropped == "" {
			slog.Warn("Skipping reference asset without image data", "index", i, "asset_id", r.ID)
			continue
		}

		a := models.ReferenceAsset{
			ID:            r.ID,
			OriginalImage: firstNonEmpty(original, cropped),
			CroppedImage:  firstNonEmpty(cropped, original),
			CreatedAt:     recordTime(r.CreatedAt, r.Timestamp),
			CapturedAt:    r.CapturedAt,
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if useFlags {
			a.IsPrimary = boolValue(r.IsPrimary) || boolValue(r.LegacyPrimary)
		}
		out = append(out, a)
	}
	assets.EnsurePrimary(out)
	return out
}

func encodeImages(images []models.GeneratedImage) []imageRecord {
	records := make([]imageRecord, 0, len(images))
	for _, img := range images {
		createdAt := img.CreatedAt
		records = append(records, imageRecord{
			ID:         img.ID,
			ImageData:  img.ImageData,
			Prompt:     img.Prompt,
			ScenarioID: img.ScenarioID,
			CreatedAt:  &createdAt,
		})
	}
	return records
}

func decodeImages(records []imageRecord) []models.GeneratedImage {
	out := make([]models.GeneratedImage, 0, len(records))
	for _, r := range records {
		data := firstNonEmpty(r.ImageData, r.URL)
		if data == "" {
			continue
		}
		out = append(out, models.GeneratedImage{
			ID:         firstNonEmpty(r.ID, uuid.NewString()),
			ImageData:  data,
			Prompt:     r.Prompt,
			ScenarioID: firstNonEmpty(r.ScenarioID, r.Scenario),
			CreatedAt:  recordTime(r.CreatedAt, r.Timestamp),
		})
	}
	return out
}

func recordTime(t *time.Time, millis int64) time.Time {
	if t != nil {
		return *t
	}
	if millis > 0 {
		return time.UnixMilli(millis)
	}
	return time.Time{}
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
