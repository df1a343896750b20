package archive

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// Snapshot is the live part of a session that gets archived and restored.
type Snapshot struct {
	Gallery []models.GeneratedImage
	Assets  []models.ReferenceAsset
	Summary string
}

// Archive is the history of past album sessions, most recent first.
// Archived sessions are never mutated; they are only deleted as a whole.
type Archive struct {
	sessions []models.AlbumSession

	newID func() string
	now   func() time.Time
}

func New() *Archive {
	return &Archive{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// ArchiveCurrent prepends a snapshot of the gallery to the history. An empty
// gallery is a no-op.
func (a *Archive) ArchiveCurrent(gallery []models.GeneratedImage, assets []models.ReferenceAsset, summary string) (models.AlbumSession, bool) {
	if len(gallery) == 0 {
		return models.AlbumSession{}, false
	}
	if summary == "" {
		summary = models.UnknownSessionSummary
	}

	session := models.AlbumSession{
		ID:              a.newID(),
		CreatedAt:       a.now(),
		Images:          copyImages(gallery),
		ReferenceAssets: copyAssets(assets),
		AnalysisSummary: summary,
	}
	a.sessions = append([]models.AlbumSession{session}, a.sessions...)

	slog.Info("Archived album session", "session_id", session.ID, "images", len(session.Images), "assets", len(session.ReferenceAssets))
	return session, true
}

// Restore archives the current gallery when it is non-empty and returns a
// copy of the requested session's snapshot for the caller to make live.
func (a *Archive) Restore(id string, current Snapshot) (Snapshot, error) {
	session, ok := a.Get(id)
	if !ok {
		return Snapshot{}, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}

	a.ArchiveCurrent(current.Gallery, current.Assets, current.Summary)

	return Snapshot{
		Gallery: copyImages(session.Images),
		Assets:  copyAssets(session.ReferenceAssets),
		Summary: session.AnalysisSummary,
	}, nil
}

// Delete removes one session. There is no undo.
func (a *Archive) Delete(id string) bool {
	for i, s := range a.sessions {
		if s.ID == id {
			a.sessions = append(a.sessions[:i:i], a.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the session with the given id.
func (a *Archive) Get(id string) (models.AlbumSession, bool) {
	for _, s := range a.sessions {
		if s.ID == id {
			return copySession(s), true
		}
	}
	return models.AlbumSession{}, false
}

// List returns copies of all sessions, most recent first.
func (a *Archive) List() []models.AlbumSession {
	out := make([]models.AlbumSession, len(a.sessions))
	for i, s := range a.sessions {
		out[i] = copySession(s)
	}
	return out
}

// Replace loads sessions from persistence.
func (a *Archive) Replace(sessions []models.AlbumSession) {
	a.sessions = make([]models.AlbumSession, len(sessions))
	for i, s := range sessions {
		a.sessions[i] = copySession(s)
	}
}

func (a *Archive) Clear() {
	a.sessions = nil
}

func (a *Archive) Len() int {
	return len(a.sessions)
}

func copySession(s models.AlbumSession) models.AlbumSession {
	s.Images = copyImages(s.Images)
	s.ReferenceAssets = copyAssets(s.ReferenceAssets)
	return s
}

func copyImages(in []models.GeneratedImage) []models.GeneratedImage {
	out := make([]models.GeneratedImage, len(in))
	copy(out, in)
	return out
}

func copyAssets(in []models.ReferenceAsset) []models.ReferenceAsset {
	out := make([]models.ReferenceAsset, len(in))
	copy(out, in)
	return out
}
