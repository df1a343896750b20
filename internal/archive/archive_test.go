package archive

import (
	"fmt"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive() *Archive {
	a := New()
	n := 0
	a.newID = func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		return base.Add(time.Duration(n) * time.Minute)
	}
	return a
}

func gallery(ids ...string) []models.GeneratedImage {
	out := make([]models.GeneratedImage, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.GeneratedImage{ID: id, ImageData: "data:image/png;base64," + id, Prompt: "p-" + id})
	}
	return out
}

func refs(ids ...string) []models.ReferenceAsset {
	out := make([]models.ReferenceAsset, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.ReferenceAsset{ID: id, OriginalImage: "o-" + id, CroppedImage: "c-" + id, IsPrimary: i == 0})
	}
	return out
}

func TestArchiveCurrent(t *testing.T) {
	t.Run("empty gallery is a no-op", func(t *testing.T) {
		a := newTestArchive()
		_, ok := a.ArchiveCurrent(nil, refs("a"), "Denim jacket")
		assert.False(t, ok)
		assert.Equal(t, 0, a.Len())
	})

	t.Run("prepends most recent first", func(t *testing.T) {
		a := newTestArchive()
		first, ok := a.ArchiveCurrent(gallery("g1"), refs("a"), "Denim jacket")
		require.True(t, ok)
		second, ok := a.ArchiveCurrent(gallery("g2", "g3"), refs("a", "b"), "Red scarf")
		require.True(t, ok)

		list := a.List()
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
		assert.Len(t, list[0].Images, 2)
		assert.Equal(t, "Red scarf", list[0].AnalysisSummary)
	})

	t.Run("missing summary becomes Unknown Session", func(t *testing.T) {
		a := newTestArchive()
		s, ok := a.ArchiveCurrent(gallery("g1"), nil, "")
		require.True(t, ok)
		assert.Equal(t, models.UnknownSessionSummary, s.AnalysisSummary)
	})

	t.Run("archived session does not alias caller slices", func(t *testing.T) {
		a := newTestArchive()
		g := gallery("g1")
		s, _ := a.ArchiveCurrent(g, refs("a"), "x")
		g[0].Prompt = "mutated"

		got, ok := a.Get(s.ID)
		require.True(t, ok)
		assert.Equal(t, "p-g1", got.Images[0].Prompt)
	})
}

func TestArchiveRestore(t *testing.T) {
	t.Run("archives non-empty current gallery first", func(t *testing.T) {
		a := newTestArchive()
		old, _ := a.ArchiveCurrent(gallery("old"), refs("x"), "Old look")

		snap, err := a.Restore(old.ID, Snapshot{Gallery: gallery("live"), Assets: refs("y"), Summary: "Live look"})
		require.NoError(t, err)

		assert.Equal(t, "old", snap.Gallery[0].ID)
		assert.Equal(t, "x", snap.Assets[0].ID)
		assert.Equal(t, "Old look", snap.Summary)

		list := a.List()
		require.Len(t, list, 2, "restored session stays in history and live gallery is archived")
		assert.Equal(t, "Live look", list[0].AnalysisSummary)
		assert.Equal(t, old.ID, list[1].ID)
	})

	t.Run("empty current gallery is not archived", func(t *testing.T) {
		a := newTestArchive()
		old, _ := a.ArchiveCurrent(gallery("old"), refs("x"), "Old look")

		_, err := a.Restore(old.ID, Snapshot{Assets: refs("y")})
		require.NoError(t, err)
		assert.Equal(t, 1, a.Len())
	})

	t.Run("unknown id", func(t *testing.T) {
		a := newTestArchive()
		_, err := a.Restore("missing", Snapshot{Gallery: gallery("live")})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Equal(t, 0, a.Len(), "failed restore must not archive")
	})
}

func TestArchiveDelete(t *testing.T) {
	a := newTestArchive()
	s1, _ := a.ArchiveCurrent(gallery("g1"), nil, "one")
	s2, _ := a.ArchiveCurrent(gallery("g2"), nil, "two")

	assert.True(t, a.Delete(s1.ID))
	assert.False(t, a.Delete(s1.ID))

	list := a.List()
	require.Len(t, list, 1)
	assert.Equal(t, s2.ID, list[0].ID)
}

func TestArchiveReplaceAndClear(t *testing.T) {
	a := newTestArchive()
	a.Replace([]models.AlbumSession{{ID: "a"}, {ID: "b"}})
	assert.Equal(t, 2, a.Len())

	_, ok := a.Get("b")
	assert.True(t, ok)

	a.Clear()
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.List())
}
