package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lehigh-university-libraries/albumgen/internal/analysis"
	"github.com/lehigh-university-libraries/albumgen/internal/archive"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/storage"
)

// persister writes best-effort snapshots of each logical key. Write errors
// are logged and never returned; the in-memory session stays authoritative.
type persister struct {
	store storage.Store
}

func (p *persister) write(ctx context.Context, key string, empty bool, encode func() ([]byte, error)) {
	if p.store == nil {
		return
	}
	if empty {
		if err := p.store.Remove(ctx, key); err != nil {
			slog.Error("Persistence write failed", "key", key, "err", err)
		}
		return
	}
	data, err := encode()
	if err != nil {
		slog.Error("Persistence write failed", "key", key, "err", err)
		return
	}
	if err := p.store.Set(ctx, key, data); err != nil {
		slog.Error("Persistence write failed", "key", key, "bytes", len(data), "err", err)
	}
}

func (p *persister) saveAssets(ctx context.Context, list []models.ReferenceAsset) {
	p.write(ctx, storage.KeyAssets, len(list) == 0, func() ([]byte, error) {
		return archive.EncodeAssets(list)
	})
}

func (p *persister) saveProfile(ctx context.Context, profile *models.AnalysisProfile) {
	p.write(ctx, storage.KeyAnalysis, profile == nil, func() ([]byte, error) {
		return json.Marshal(profile)
	})
}

func (p *persister) saveGallery(ctx context.Context, images []models.GeneratedImage) {
	p.write(ctx, storage.KeyGallery, len(images) == 0, func() ([]byte, error) {
		return archive.EncodeGallery(images)
	})
}

// History is always written, an empty history included.
func (p *persister) saveHistory(ctx context.Context, sessions []models.AlbumSession) {
	p.write(ctx, storage.KeyHistory, false, func() ([]byte, error) {
		return archive.EncodeHistory(sessions)
	})
}

func (p *persister) saveQueue(ctx context.Context, items []models.CropQueueItem) {
	p.write(ctx, storage.KeyCropQueue, len(items) == 0, func() ([]byte, error) {
		return json.Marshal(items)
	})
}

func (p *persister) clearAll(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.Clear(ctx); err != nil {
		slog.Error("Persistence write failed", "key", "*", "err", err)
	}
}

// loaded is whatever could be read back. Unreadable keys are logged and
// left empty so a partial write never blocks startup.
type loaded struct {
	assets  []models.ReferenceAsset
	profile *models.AnalysisProfile
	gallery []models.GeneratedImage
	history []models.AlbumSession
	queue   []models.CropQueueItem
}

func (p *persister) load(ctx context.Context) loaded {
	var l loaded
	if p.store == nil {
		return l
	}

	read := func(key string, decode func([]byte) error) {
		data, ok, err := p.store.Get(ctx, key)
		if err != nil {
			slog.Warn("Failed to read saved state", "key", key, "err", err)
			return
		}
		if !ok || len(data) == 0 {
			return
		}
		if err := decode(data); err != nil {
			slog.Warn("Ignoring unreadable saved state", "key", key, "err", err)
		}
	}

	read(storage.KeyAssets, func(data []byte) (err error) {
		l.assets, err = archive.DecodeAssets(data)
		return err
	})
	read(storage.KeyAnalysis, func(data []byte) (err error) {
		l.profile, err = decodeProfile(data)
		return err
	})
	read(storage.KeyGallery, func(data []byte) (err error) {
		l.gallery, err = archive.DecodeGallery(data)
		return err
	})
	read(storage.KeyHistory, func(data []byte) (err error) {
		l.history, err = archive.DecodeHistory(data)
		return err
	})
	read(storage.KeyCropQueue, func(data []byte) error {
		return json.Unmarshal(data, &l.queue)
	})
	return l
}

// decodeProfile accepts the stored profile shape and the camelCase shape
// written by the browser app.
func decodeProfile(data []byte) (*models.AnalysisProfile, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}
	for _, k := range []string{"photographicStyle", "detectedGender", "keyFeatures", "vibeAnalysis"} {
		if _, ok := keys[k]; ok {
			return analysis.ParseProfile(string(data))
		}
	}

	var profile models.AnalysisProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
