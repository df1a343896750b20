package assets

import (
	"fmt"
	"testing"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asset(id string) models.ReferenceAsset {
	return models.ReferenceAsset{ID: id, OriginalImage: "orig-" + id, CroppedImage: "crop-" + id}
}

func primaryCount(list []models.ReferenceAsset) int {
	n := 0
	for _, a := range list {
		if a.IsPrimary {
			n++
		}
	}
	return n
}

func TestStore_AddMarksFirstPrimary(t *testing.T) {
	s := NewStore(5)

	require.NoError(t, s.Add(asset("a")))
	require.NoError(t, s.Add(models.ReferenceAsset{ID: "b", IsPrimary: true}))

	all := s.All()
	require.Len(t, all, 2)
	assert.True(t, all[0].IsPrimary)
	assert.False(t, all[1].IsPrimary, "only the first asset of an empty store becomes primary")

	p, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, "a", p.ID)
}

func TestStore_Remove(t *testing.T) {
	t.Run("removing primary promotes new first element", func(t *testing.T) {
		s := NewStore(5)
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, s.Add(asset(id)))
		}

		assert.True(t, s.Remove("a"))

		p, ok := s.Primary()
		require.True(t, ok)
		assert.Equal(t, "b", p.ID)
		assert.Equal(t, 1, primaryCount(s.All()))
	})

	t.Run("removing non-primary keeps primary", func(t *testing.T) {
		s := NewStore(5)
		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, s.Add(asset(id)))
		}

		assert.True(t, s.Remove("b"))

		p, _ := s.Primary()
		assert.Equal(t, "a", p.ID)
		assert.Equal(t, []string{"a", "c"}, ids(s.All()))
	})

	t.Run("removing last asset leaves no primary", func(t *testing.T) {
		s := NewStore(5)
		require.NoError(t, s.Add(asset("a")))

		assert.True(t, s.Remove("a"))

		_, ok := s.Primary()
		assert.False(t, ok)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("unknown id", func(t *testing.T) {
		s := NewStore(5)
		require.NoError(t, s.Add(asset("a")))
		assert.False(t, s.Remove("zzz"))
		assert.Equal(t, 1, s.Len())
	})
}

func TestStore_CapacityIsNoOp(t *testing.T) {
	s := NewStore(2)
	require.NoError(t, s.Add(asset("a")))
	require.NoError(t, s.Add(asset("b")))

	err := s.Add(asset("c"))

	assert.ErrorIs(t, err, models.ErrCapacityReached)
	assert.Equal(t, []string{"a", "b"}, ids(s.All()))
}

func TestStore_PrimaryInvariantUnderMutation(t *testing.T) {
	s := NewStore(5)
	ops := []struct {
		add    string
		remove string
	}{
		{add: "a"}, {add: "b"}, {remove: "a"}, {add: "c"}, {remove: "c"},
		{add: "d"}, {remove: "b"}, {add: "e"}, {remove: "d"}, {remove: "e"}, {add: "f"},
	}

	for i, op := range ops {
		if op.add != "" {
			require.NoError(t, s.Add(asset(op.add)))
		} else {
			s.Remove(op.remove)
		}
		all := s.All()
		if len(all) == 0 {
			assert.Equal(t, 0, primaryCount(all), "step %d", i)
			continue
		}
		assert.Equal(t, 1, primaryCount(all), "step %d", i)
	}
}

func TestStore_Anchors(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Add(asset(fmt.Sprintf("a%d", i))))
	}
	s.Remove("a0")

	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(s.Anchors(3)))
	assert.Equal(t, []string{"a1"}, ids(s.Anchors(1)))
	assert.Empty(t, s.Anchors(0))
}

func TestStore_ReplaceNormalizesPrimary(t *testing.T) {
	s := NewStore(5)

	s.Replace([]models.ReferenceAsset{{ID: "x"}, {ID: "y", IsPrimary: true}, {ID: "z", IsPrimary: true}})

	p, ok := s.Primary()
	require.True(t, ok)
	assert.Equal(t, "y", p.ID)
	assert.Equal(t, 1, primaryCount(s.All()))

	s.Replace([]models.ReferenceAsset{{ID: "m"}, {ID: "n"}})
	p, _ = s.Primary()
	assert.Equal(t, "m", p.ID)
}

func ids(list []models.ReferenceAsset) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
