package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/albumgen/internal/generation"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	seen    [][]models.ReferenceAsset
	analyze func(ctx context.Context, assets []models.ReferenceAsset) (*models.AnalysisProfile, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, assets []models.ReferenceAsset) (*models.AnalysisProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, assets)
	f.mu.Unlock()
	if f.analyze != nil {
		return f.analyze(ctx, assets)
	}
	return &models.AnalysisProfile{Description: "oval face", Outfit: "Denim jacket", KeyFeatures: []string{"freckles"}}, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, _ string, _ []models.Blob) (models.Blob, error) {
	if err := ctx.Err(); err != nil {
		return models.Blob{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[f.calls] {
		return models.Blob{}, errors.New("upstream 500")
	}
	return models.Blob{MIMEType: "image/png", Data: []byte(fmt.Sprintf("img-%d", f.calls))}, nil
}

type fakeCreds struct {
	err error
}

func (f fakeCreds) Check(context.Context) error {
	return f.err
}

type failingStore struct {
	*storage.Memory
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

type harness struct {
	engine   *Engine
	store    storage.Store
	analyzer *fakeAnalyzer
	gen      *fakeGenerator
	creds    *fakeCreds
	images   []models.GeneratedImage
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemory()
	}
	h := &harness{
		store:    store,
		analyzer: &fakeAnalyzer{},
		gen:      &fakeGenerator{},
		creds:    &fakeCreds{},
	}
	h.engine = New(Deps{
		Store:       store,
		Analyzer:    h.analyzer,
		Pipeline:    generation.NewPipeline(h.gen, 3, 7),
		Credentials: h.creds,
		OnImage: func(img models.GeneratedImage) {
			h.images = append(h.images, img)
		},
	}, Options{MaxAssets: 5, DefaultImageCount: 3})
	return h
}

func upload(n int) []models.CropQueueItem {
	items := make([]models.CropQueueItem, 0, n)
	for i := 0; i < n; i++ {
		raw := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("raw-%d", i)))
		items = append(items, models.CropQueueItem{RawImage: raw})
	}
	return items
}

func crop(i int) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("crop-%d", i)))
}

func TestEngine_FullScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	e := h.engine

	queued, err := e.Enqueue(ctx, upload(2))
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Equal(t, models.StateCropping, e.Snapshot().State)

	out, err := e.ConfirmCrop(ctx, crop(0))
	require.NoError(t, err)
	assert.False(t, out.Drained)
	out, err = e.ConfirmCrop(ctx, crop(1))
	require.NoError(t, err)
	assert.True(t, out.Drained)
	assert.False(t, out.AutoAnalyzed, "second drain into a non-empty store does not auto-analyze")

	snap := e.Snapshot()
	assert.Equal(t, models.StateIdle, snap.State)
	require.Len(t, snap.Assets, 2)
	assert.True(t, snap.Assets[0].IsPrimary)
	assert.False(t, snap.Assets[1].IsPrimary)
	assert.Zero(t, h.analyzer.calls)

	require.NoError(t, e.Analyze(ctx))
	assert.Equal(t, models.StateReadyToGenerate, e.Snapshot().State)

	res, err := e.Generate(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, res.Images, 3)
	snap = e.Snapshot()
	assert.Equal(t, models.StateComplete, snap.State)
	require.Len(t, snap.Gallery, 3)
	assert.Equal(t, 0, snap.HistoryCount)
	for i, img := range res.Images {
		assert.Equal(t, img.ID, snap.Gallery[i].ID, "gallery order matches pose order")
	}
	firstRun := snap.Gallery

	_, err = e.Generate(ctx, 3)
	require.NoError(t, err)
	snap = e.Snapshot()
	assert.Equal(t, 1, snap.HistoryCount, "prior gallery archived exactly once")
	assert.Len(t, snap.Gallery, 3)

	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, firstRun, history[0].Images)
	assert.Equal(t, "Denim jacket", history[0].AnalysisSummary)
	assert.Len(t, history[0].ReferenceAssets, 2)
	assert.Len(t, h.images, 6, "observer sees every committed image")
}

func TestEngine_BootstrapAutoAnalysis(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.engine.Enqueue(ctx, upload(1))
	require.NoError(t, err)

	out, err := h.engine.ConfirmCrop(ctx, crop(0))
	require.NoError(t, err)
	assert.True(t, out.Drained)
	assert.True(t, out.AutoAnalyzed)
	assert.Equal(t, 1, h.analyzer.calls)
	assert.Equal(t, models.StateReadyToGenerate, h.engine.Snapshot().State)

	// a later single upload into a non-empty store returns to Idle
	_, err = h.engine.Enqueue(ctx, upload(1))
	require.NoError(t, err)
	out, err = h.engine.ConfirmCrop(ctx, crop(1))
	require.NoError(t, err)
	assert.False(t, out.AutoAnalyzed)
	assert.Equal(t, 1, h.analyzer.calls)
	assert.Equal(t, models.StateIdle, h.engine.Snapshot().State)
	assert.NotNil(t, h.engine.Snapshot().Profile, "stale profile is kept")
}

func TestEngine_CancelDrainsToIdle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.engine.Enqueue(ctx, upload(3))
	require.NoError(t, err)

	drained, err := h.engine.CancelCrop(ctx)
	require.NoError(t, err)
	assert.False(t, drained)
	_, err = h.engine.ConfirmCrop(ctx, crop(1))
	require.NoError(t, err)
	drained, err = h.engine.CancelCrop(ctx)
	require.NoError(t, err)
	assert.True(t, drained)

	snap := h.engine.Snapshot()
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Len(t, snap.Assets, 1)
	assert.Zero(t, h.analyzer.calls)

	_, err = h.engine.CancelCrop(ctx)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = h.engine.ConfirmCrop(ctx, crop(2))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestEngine_CapacityIsReportedNotFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, err := h.engine.Enqueue(ctx, upload(6))
	require.NoError(t, err)
	var last ConfirmOutcome
	for i := 0; i < 6; i++ {
		last, err = h.engine.ConfirmCrop(ctx, crop(i))
		require.NoError(t, err)
	}
	assert.True(t, last.CapacityReached)
	assert.False(t, last.Added)
	assert.Len(t, h.engine.Snapshot().Assets, 5)
}

func readyEngine(t *testing.T, h *harness, n int) {
	t.Helper()
	ctx := context.Background()
	_, err := h.engine.Enqueue(ctx, upload(n))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := h.engine.ConfirmCrop(ctx, crop(i))
		require.NoError(t, err)
	}
	if h.engine.Snapshot().State != models.StateReadyToGenerate {
		require.NoError(t, h.engine.Analyze(ctx))
	}
}

func TestEngine_PartialGenerationFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 1)
	h.gen.failOn = map[int]bool{3: true}

	res, err := h.engine.Generate(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, res.Images, 4)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)

	snap := h.engine.Snapshot()
	assert.Equal(t, models.StateComplete, snap.State)
	assert.Len(t, snap.Gallery, 4)
	assert.Equal(t, 5, snap.Requested)
	assert.Equal(t, 4, snap.Completed)
	assert.Empty(t, snap.Error)
}

func TestEngine_GenerationCountIsCapped(t *testing.T) {
	h := newHarness(t, nil)
	readyEngine(t, h, 1)

	res, err := h.engine.Generate(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, res.Images, generation.CatalogSize())

	assert.Equal(t, 1, h.engine.SetImageCount(0))
	res, err = h.engine.Generate(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, res.Images, 1, "non-positive count uses the session image count")
}

func TestEngine_GenerationSetupFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("no profile", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.engine.Generate(ctx, 3)
		assert.ErrorIs(t, err, models.ErrEmptyInput)
		snap := h.engine.Snapshot()
		assert.Equal(t, models.StateError, snap.State)
		assert.Equal(t, GenerationFailedMessage, snap.Error)
		assert.Zero(t, h.gen.calls)
	})

	t.Run("missing credential", func(t *testing.T) {
		h := newHarness(t, nil)
		readyEngine(t, h, 1)
		h.creds.err = models.ErrCredentialMissing

		_, err := h.engine.Generate(ctx, 3)
		assert.ErrorIs(t, err, models.ErrCredentialMissing)
		snap := h.engine.Snapshot()
		assert.Equal(t, models.StateError, snap.State)
		assert.Equal(t, models.CredentialRemediationHint, snap.Hint)
		assert.Zero(t, h.gen.calls)

		h.creds.err = nil
		_, err = h.engine.Generate(ctx, 2)
		require.NoError(t, err, "retry from Error is an explicit user action")
		assert.Equal(t, models.StateComplete, h.engine.Snapshot().State)
	})
}

func TestEngine_AnalysisFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.ErrorIs(t, h.engine.Analyze(ctx), models.ErrEmptyInput)
		assert.Equal(t, models.StateIdle, h.engine.Snapshot().State)
		assert.Zero(t, h.analyzer.calls)
	})

	t.Run("external failure moves to Error", func(t *testing.T) {
		h := newHarness(t, nil)
		h.analyzer.analyze = func(context.Context, []models.ReferenceAsset) (*models.AnalysisProfile, error) {
			return nil, models.NewAnalysisError(errors.New("bad json"))
		}
		_, err := h.engine.Enqueue(ctx, upload(1))
		require.NoError(t, err)

		_, err = h.engine.ConfirmCrop(ctx, crop(0))
		assert.ErrorIs(t, err, models.ErrAnalysisFailure)

		snap := h.engine.Snapshot()
		assert.Equal(t, models.StateError, snap.State)
		assert.Equal(t, AnalysisFailedMessage, snap.Error)
		assert.Equal(t, models.AnalysisRemediationHint, snap.Hint)
		assert.Nil(t, snap.Profile)
		assert.Len(t, snap.Assets, 1, "the confirmed asset is kept")

		h.analyzer.analyze = nil
		require.NoError(t, h.engine.Analyze(ctx))
		snap = h.engine.Snapshot()
		assert.Equal(t, models.StateReadyToGenerate, snap.State)
		assert.Empty(t, snap.Error)
		assert.Equal(t, 2, h.analyzer.calls, "each analyze is a fresh call")
	})

	t.Run("missing credential makes no call", func(t *testing.T) {
		h := newHarness(t, nil)
		h.creds.err = models.ErrCredentialMissing
		_, err := h.engine.Enqueue(ctx, upload(1))
		require.NoError(t, err)

		_, err = h.engine.ConfirmCrop(ctx, crop(0))
		assert.ErrorIs(t, err, models.ErrCredentialMissing)
		assert.Zero(t, h.analyzer.calls)
		assert.Equal(t, models.StateError, h.engine.Snapshot().State)
	})
}

func TestEngine_AnalyzeArchivesGallery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 2)

	_, err := h.engine.Generate(ctx, 2)
	require.NoError(t, err)
	require.Len(t, h.engine.Snapshot().Gallery, 2)

	require.NoError(t, h.engine.Analyze(ctx))
	snap := h.engine.Snapshot()
	assert.Empty(t, snap.Gallery)
	assert.Equal(t, 1, snap.HistoryCount)
	assert.Equal(t, models.StateReadyToGenerate, snap.State)
}

func TestEngine_BusyWhileAnalyzing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	h.analyzer.analyze = func(context.Context, []models.ReferenceAsset) (*models.AnalysisProfile, error) {
		close(started)
		<-release
		return &models.AnalysisProfile{Description: "d"}, nil
	}

	done := make(chan error, 1)
	go func() { done <- h.engine.Analyze(ctx) }()
	<-started

	assert.Equal(t, models.StateAnalyzing, h.engine.Snapshot().State)
	_, err := h.engine.Generate(ctx, 1)
	assert.ErrorIs(t, err, models.ErrBusy)
	assert.ErrorIs(t, h.engine.Reset(ctx, false), models.ErrBusy)
	_, err = h.engine.Enqueue(ctx, upload(1))
	assert.ErrorIs(t, err, models.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, models.StateReadyToGenerate, h.engine.Snapshot().State)
}

func TestEngine_PersistenceAndLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := newHarness(t, store)
	readyEngine(t, h, 2)
	_, err := h.engine.Generate(ctx, 2)
	require.NoError(t, err)
	_, err = h.engine.Generate(ctx, 3)
	require.NoError(t, err)
	_, err = h.engine.Enqueue(ctx, upload(1))
	require.NoError(t, err)

	reloaded := newHarness(t, store)
	require.NoError(t, reloaded.engine.Load(ctx))

	before := h.engine.Snapshot()
	after := reloaded.engine.Snapshot()
	assert.Equal(t, models.StateCropping, after.State, "pending crops resume cropping")
	assert.Equal(t, 1, after.Queued)
	assert.Len(t, after.Gallery, 3)
	assert.Equal(t, 1, after.HistoryCount)
	require.Len(t, after.Assets, 2)
	assert.Equal(t, before.Assets[0].ID, after.Assets[0].ID)
	assert.True(t, after.Assets[0].IsPrimary)
	require.NotNil(t, after.Profile)
	assert.Equal(t, "Denim jacket", after.Profile.Outfit)

	_, err = reloaded.engine.CancelCrop(ctx)
	require.NoError(t, err)
	fresh := newHarness(t, store)
	require.NoError(t, fresh.engine.Load(ctx))
	assert.Equal(t, models.StateComplete, fresh.engine.Snapshot().State)
}

func TestEngine_LoadTolerance(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, storage.KeyAssets, []byte(`[{"id":"a","originalBase64":"o","croppedBase64":"c","isPrimary":false},{"id":"b","originalBase64":"o","croppedBase64":"c","isPrimary":false}]`)))
	require.NoError(t, store.Set(ctx, storage.KeyAnalysis, []byte(`{"description":"d","outfit":"Green hoodie","photographicStyle":"selfie","keyFeatures":["dimples"]}`)))
	require.NoError(t, store.Set(ctx, storage.KeyGallery, []byte(`not json`)))

	h := newHarness(t, store)
	require.NoError(t, h.engine.Load(ctx))

	snap := h.engine.Snapshot()
	assert.Equal(t, models.StateReadyToGenerate, snap.State)
	require.Len(t, snap.Assets, 2)
	assert.True(t, snap.Assets[0].IsPrimary, "first asset promoted when no primary saved")
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "selfie", snap.Profile.PhotographicStyle)
	assert.Equal(t, []string{"dimples"}, snap.Profile.KeyFeatures)
	assert.Empty(t, snap.Gallery)
}

func TestEngine_RestoreLegacyStubSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	history := `[{"id":"legacy-1","timestamp":1700000000000,"images":[{"id":"i1","url":"data:image/png;base64,AA==","prompt":"p","scenario":"walking_past","timestamp":1700000000000}],"sourceImageStub":"data:image/jpeg;base64,U1RVQg==","analysisSummary":"Leather jacket"}]`
	require.NoError(t, store.Set(ctx, storage.KeyHistory, []byte(history)))

	h := newHarness(t, store)
	require.NoError(t, h.engine.Load(ctx))
	require.NoError(t, h.engine.Restore(ctx, "legacy-1"))

	snap := h.engine.Snapshot()
	assert.Equal(t, models.StateComplete, snap.State)
	require.Len(t, snap.Assets, 1)
	assert.True(t, snap.Assets[0].IsPrimary)
	assert.Equal(t, "data:image/jpeg;base64,U1RVQg==", snap.Assets[0].OriginalImage)
	require.Len(t, snap.Gallery, 1)
	require.NotNil(t, snap.Profile)
	assert.True(t, snap.Profile.Degraded)
	assert.Equal(t, "Leather jacket", snap.Profile.Outfit)

	// generating from a restored session archives the restored gallery
	res, err := h.engine.Generate(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, res.Images, 2)
	assert.Equal(t, 2, h.engine.Snapshot().HistoryCount)
}

func TestEngine_RestoreArchivesLiveGallery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 1)

	_, err := h.engine.Generate(ctx, 1)
	require.NoError(t, err)
	_, err = h.engine.Generate(ctx, 2)
	require.NoError(t, err)
	old := h.engine.History()[0]

	require.NoError(t, h.engine.Restore(ctx, old.ID))
	snap := h.engine.Snapshot()
	assert.Equal(t, old.Images, snap.Gallery)
	assert.Equal(t, 2, snap.HistoryCount)

	assert.ErrorIs(t, h.engine.Restore(ctx, "missing"), models.ErrNotFound)
}

func TestEngine_ArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	_, ok, err := h.engine.Archive(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "archiving an empty gallery creates nothing")
	assert.Equal(t, 0, h.engine.Snapshot().HistoryCount)

	readyEngine(t, h, 1)
	_, err = h.engine.Generate(ctx, 1)
	require.NoError(t, err)

	session, ok, err := h.engine.Archive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	snap := h.engine.Snapshot()
	assert.Equal(t, models.StateIdle, snap.State)
	assert.Empty(t, snap.Gallery)

	got, found := h.engine.Session(session.ID)
	require.True(t, found)
	img, found := h.engine.Image(got.Images[0].ID)
	require.True(t, found)
	assert.Equal(t, got.Images[0], img)

	require.NoError(t, h.engine.DeleteSession(ctx, session.ID))
	assert.ErrorIs(t, h.engine.DeleteSession(ctx, session.ID), models.ErrNotFound)
	assert.Empty(t, h.engine.History())
}

func TestEngine_RemoveAsset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 3)

	first := h.engine.Snapshot().Assets[0]
	require.NoError(t, h.engine.RemoveAsset(ctx, first.ID))

	snap := h.engine.Snapshot()
	require.Len(t, snap.Assets, 2)
	assert.True(t, snap.Assets[0].IsPrimary)
	assert.NotNil(t, snap.Profile)

	assert.ErrorIs(t, h.engine.RemoveAsset(ctx, "missing"), models.ErrNotFound)
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps history", func(t *testing.T) {
		store := storage.NewMemory()
		h := newHarness(t, store)
		readyEngine(t, h, 1)
		_, err := h.engine.Generate(ctx, 2)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, storage.KeyAPIKey, []byte("k")))

		require.NoError(t, h.engine.Reset(ctx, false))
		snap := h.engine.Snapshot()
		assert.Equal(t, models.StateIdle, snap.State)
		assert.Empty(t, snap.Assets)
		assert.Nil(t, snap.Profile)
		assert.Empty(t, snap.Gallery)
		assert.Equal(t, 1, snap.HistoryCount, "gallery archived on reset")

		assert.ElementsMatch(t, []string{storage.KeyHistory, storage.KeyAPIKey}, store.Keys())
	})

	t.Run("factory wipes everything", func(t *testing.T) {
		store := storage.NewMemory()
		h := newHarness(t, store)
		readyEngine(t, h, 1)
		_, err := h.engine.Generate(ctx, 2)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, storage.KeyAPIKey, []byte("k")))

		require.NoError(t, h.engine.Reset(ctx, true))
		assert.Equal(t, 0, h.engine.Snapshot().HistoryCount)
		assert.Empty(t, store.Keys())
	})
}

func TestEngine_PersistenceFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, failingStore{storage.NewMemory()})

	readyEngine(t, h, 1)
	res, err := h.engine.Generate(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, res.Images, 2)
	assert.Equal(t, models.StateComplete, h.engine.Snapshot().State)
}

func TestEngine_StorageUsage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	readyEngine(t, h, 1)
	_, err := h.engine.Generate(ctx, 1)
	require.NoError(t, err)

	album, total, err := h.engine.StorageUsage(ctx)
	require.NoError(t, err)
	assert.Positive(t, album)
	assert.GreaterOrEqual(t, total, album)
}

func TestEngine_EnqueueEmpty(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.engine.Enqueue(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)
	assert.Equal(t, models.StateIdle, h.engine.Snapshot().State)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	h := newHarness(t, nil)
	readyEngine(t, h, 1)

	snap := h.engine.Snapshot()
	snap.Assets[0].ID = "mutated"
	snap.Profile.Outfit = "mutated"

	again := h.engine.Snapshot()
	assert.NotEqual(t, "mutated", again.Assets[0].ID)
	assert.NotEqual(t, "mutated", again.Profile.Outfit)
}

func TestEngine_SeparateAnalysisCredentials(t *testing.T) {
	ctx := context.Background()
	analyzer := &fakeAnalyzer{}
	gen := &fakeGenerator{}
	e := New(Deps{
		Store:               storage.NewMemory(),
		Analyzer:            analyzer,
		Pipeline:            generation.NewPipeline(gen, 3, 1),
		Credentials:         fakeCreds{err: models.ErrCredentialMissing},
		AnalysisCredentials: fakeCreds{},
	}, Options{MaxAssets: 5})

	_, err := e.Enqueue(ctx, upload(1))
	require.NoError(t, err)
	_, err = e.ConfirmCrop(ctx, crop(0))
	require.NoError(t, err, "a local analyzer does not need the image API key")
	assert.Equal(t, models.StateReadyToGenerate, e.Snapshot().State)

	_, err = e.Generate(ctx, 1)
	assert.ErrorIs(t, err, models.ErrCredentialMissing)
	assert.Zero(t, gen.calls)
}

func TestEngine_CancelledCallerStillFinishesRun(t *testing.T) {
	h := newHarness(t, nil)
	e := h.engine
	readyEngine(t, h, 1)
	calls := h.gen.calls

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, e.Analyze(ctx))
	assert.Equal(t, models.StateReadyToGenerate, e.Snapshot().State)

	res, err := e.Generate(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, res.Images, 4)
	assert.Equal(t, calls+4, h.gen.calls)
	assert.Equal(t, models.StateComplete, e.Snapshot().State)
}
