package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/albumgen/internal/analysis"
	"github.com/lehigh-university-libraries/albumgen/internal/archive"
	"github.com/lehigh-university-libraries/albumgen/internal/assets"
	"github.com/lehigh-university-libraries/albumgen/internal/generation"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/storage"
)

const (
	AnalysisFailedMessage   = "Scan interrupted. Please check your API Connection in Settings."
	GenerationFailedMessage = "Generation sequence interrupted. Check connectivity."
)

// Analyzer derives a profile from reference assets.
type Analyzer interface {
	Analyze(ctx context.Context, assets []models.ReferenceAsset) (*models.AnalysisProfile, error)
}

// CredentialChecker reports models.ErrCredentialMissing before any external call.
type CredentialChecker interface {
	Check(ctx context.Context) error
}

type Deps struct {
	Store       storage.Store
	Analyzer    Analyzer
	Pipeline    *generation.Pipeline
	Credentials CredentialChecker

	// AnalysisCredentials gates analysis calls when the analyzer does not
	// use the shared API key. Nil means Credentials.
	AnalysisCredentials CredentialChecker

	// OnImage is called after each generated image is committed to the gallery.
	OnImage func(models.GeneratedImage)
}

type Options struct {
	MaxAssets         int
	DefaultImageCount int
}

// Engine owns all mutable session state: the crop queue, asset store,
// profile, active gallery and history. Operations that mutate state are
// serialized; a second one started while another is running fails with
// models.ErrBusy. Readers use Snapshot and History.
type Engine struct {
	opMu sync.Mutex
	mu   sync.RWMutex

	machine *Machine
	queue   *assets.Queue
	store   *assets.Store
	archive *archive.Archive
	profile *models.AnalysisProfile
	gallery []models.GeneratedImage

	imageCount int
	progress   string
	errMsg     string
	hint       string
	completed  int
	requested  int

	analyzer      Analyzer
	pipeline      *generation.Pipeline
	creds         CredentialChecker
	analysisCreds CredentialChecker
	persist       *persister
	onImage       func(models.GeneratedImage)
}

func New(deps Deps, opts Options) *Engine {
	count := opts.DefaultImageCount
	if count <= 0 {
		count = 3
	}
	analysisCreds := deps.AnalysisCredentials
	if analysisCreds == nil {
		analysisCreds = deps.Credentials
	}
	return &Engine{
		machine:       NewMachine(),
		queue:         assets.NewQueue(),
		store:         assets.NewStore(opts.MaxAssets),
		archive:       archive.New(),
		imageCount:    generation.ClampCount(count),
		analyzer:      deps.Analyzer,
		pipeline:      deps.Pipeline,
		creds:         deps.Credentials,
		analysisCreds: analysisCreds,
		persist:       &persister{store: deps.Store},
		onImage:       deps.OnImage,
	}
}

func (e *Engine) begin() error {
	if !e.opMu.TryLock() {
		return models.ErrBusy
	}
	return nil
}

func (e *Engine) end() {
	e.opMu.Unlock()
}

// fire applies ev under the state lock.
func (e *Engine) fire(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.machine.State()
	to, err := e.machine.Fire(ev)
	if err != nil {
		return err
	}
	slog.Debug("State transition", "event", ev, "from", from, "to", to)
	return nil
}

func checkCredentials(ctx context.Context, c CredentialChecker) error {
	if c == nil {
		return nil
	}
	return c.Check(ctx)
}

// Load restores saved state and derives the resting state from it.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	l := e.persist.load(ctx)

	e.mu.Lock()
	e.store.Replace(l.assets)
	e.profile = l.profile
	e.gallery = l.gallery
	e.archive.Replace(l.history)
	e.queue.Clear()
	e.queue.Enqueue(l.queue...)
	e.machine.state = DeriveState(e.queue.Len(), e.profile, len(e.gallery))
	state := e.machine.state
	e.mu.Unlock()

	slog.Info("Loaded session", "state", state, "assets", len(l.assets), "queued", len(l.queue), "images", len(l.gallery), "history", len(l.history))
	return nil
}

// Enqueue adds raw uploads to the crop queue. Items from one upload are added together.
func (e *Engine) Enqueue(ctx context.Context, items []models.CropQueueItem) (int, error) {
	if len(items) == 0 {
		return 0, models.ErrEmptyInput
	}
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	if err := e.fire(EventUpload); err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.queue.Enqueue(items...)
	e.errMsg, e.hint = "", ""
	queued := e.queue.Items()
	e.mu.Unlock()

	e.persist.saveQueue(ctx, queued)
	slog.Info("Queued uploads for cropping", "added", len(items), "queued", len(queued))
	return len(queued), nil
}

// Current returns the crop queue head.
func (e *Engine) Current() (models.CropQueueItem, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue.Current()
}

// ConfirmOutcome describes a crop confirmation.
type ConfirmOutcome struct {
	Asset           models.ReferenceAsset `json:"asset"`
	Added           bool                  `json:"added"`
	CapacityReached bool                  `json:"capacity_reached,omitempty"`
	Drained         bool                  `json:"drained"`
	AutoAnalyzed    bool                  `json:"auto_analyzed,omitempty"`
}

// ConfirmCrop turns the queue head into a reference asset. When this drains
// the queue and the asset was the first one in an empty store, analysis runs
// immediately; any analysis error is returned alongside the outcome.
func (e *Engine) ConfirmCrop(ctx context.Context, cropped string) (ConfirmOutcome, error) {
	if cropped == "" {
		return ConfirmOutcome{}, models.ErrEmptyInput
	}
	if err := e.begin(); err != nil {
		return ConfirmOutcome{}, err
	}
	defer e.end()

	e.mu.Lock()
	if e.machine.State() != models.StateCropping {
		state := e.machine.State()
		e.mu.Unlock()
		return ConfirmOutcome{}, fmt.Errorf("confirm crop in %s: %w", state, models.ErrInvalidTransition)
	}
	wasEmpty := e.store.Len() == 0
	res, err := e.queue.Confirm(cropped)
	if err != nil {
		e.mu.Unlock()
		return ConfirmOutcome{}, err
	}
	outcome := ConfirmOutcome{Drained: res.Drained}
	if err := e.store.Add(res.Asset); err != nil {
		outcome.CapacityReached = errors.Is(err, models.ErrCapacityReached)
	} else {
		outcome.Added = true
	}
	all := e.store.All()
	if outcome.Added {
		outcome.Asset = all[len(all)-1]
	} else {
		outcome.Asset = res.Asset
	}
	queued := e.queue.Items()
	e.mu.Unlock()

	e.persist.saveAssets(ctx, all)
	e.persist.saveQueue(ctx, queued)
	slog.Info("Crop confirmed", "asset_id", outcome.Asset.ID, "added", outcome.Added, "assets", len(all), "queued", len(queued))

	if !res.Drained {
		return outcome, nil
	}
	if wasEmpty && outcome.Added {
		if err := e.fire(EventDrainFirstAsset); err != nil {
			return outcome, err
		}
		outcome.AutoAnalyzed = true
		return outcome, e.runAnalysis(ctx)
	}
	return outcome, e.fire(EventDrain)
}

// CancelCrop drops the queue head without creating an asset.
func (e *Engine) CancelCrop(ctx context.Context) (bool, error) {
	if err := e.begin(); err != nil {
		return false, err
	}
	defer e.end()

	e.mu.Lock()
	if e.machine.State() != models.StateCropping {
		state := e.machine.State()
		e.mu.Unlock()
		return false, fmt.Errorf("cancel crop in %s: %w", state, models.ErrInvalidTransition)
	}
	drained, err := e.queue.Cancel()
	queued := e.queue.Items()
	e.mu.Unlock()
	if err != nil {
		return false, err
	}

	e.persist.saveQueue(ctx, queued)
	slog.Info("Crop skipped", "queued", len(queued))
	if drained {
		return true, e.fire(EventDrain)
	}
	return false, nil
}

// RemoveAsset deletes one reference asset. The profile is left in place even
// though it may now be stale; re-analysis is an explicit action.
func (e *Engine) RemoveAsset(ctx context.Context, id string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	e.mu.Lock()
	removed := e.store.Remove(id)
	all := e.store.All()
	e.mu.Unlock()
	if !removed {
		return fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
	}

	e.persist.saveAssets(ctx, all)
	slog.Info("Removed reference asset", "asset_id", id, "assets", len(all))
	return nil
}

// Analyze runs a fresh identity analysis over all assets.
func (e *Engine) Analyze(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	e.mu.RLock()
	empty := e.store.Len() == 0
	e.mu.RUnlock()
	if empty {
		return models.ErrEmptyInput
	}

	if err := e.fire(EventAnalyze); err != nil {
		return err
	}
	return e.runAnalysis(ctx)
}

// runAnalysis expects the machine to be in Analyzing and the op lock held.
// An issued analysis always runs to success or failure, so the caller's
// cancellation is dropped here.
func (e *Engine) runAnalysis(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	e.archiveGallery(ctx)

	e.mu.Lock()
	list := e.store.All()
	e.progress = analysis.ProgressMessage(len(list))
	e.errMsg, e.hint = "", ""
	e.mu.Unlock()

	if err := checkCredentials(ctx, e.analysisCreds); err != nil {
		e.fail(EventAnalysisFailed, AnalysisFailedMessage, models.CredentialRemediationHint)
		return err
	}

	profile, err := e.analyzer.Analyze(ctx, list)
	if err != nil {
		hint := models.AnalysisRemediationHint
		if errors.Is(err, models.ErrCredentialMissing) {
			hint = models.CredentialRemediationHint
		}
		slog.Error("Identity analysis failed", "assets", len(list), "err", err)
		e.fail(EventAnalysisFailed, AnalysisFailedMessage, hint)
		return err
	}

	e.mu.Lock()
	e.profile = profile
	e.progress = ""
	e.mu.Unlock()

	e.persist.saveProfile(ctx, profile)
	slog.Info("Identity analysis complete", "assets", len(list), "summary", profile.Summary())
	return e.fire(EventAnalysisSucceeded)
}

func (e *Engine) fail(ev Event, msg, hint string) {
	e.mu.Lock()
	e.progress = ""
	e.errMsg = msg
	e.hint = hint
	e.mu.Unlock()
	if err := e.fire(ev); err != nil {
		slog.Error("Unexpected state transition failure", "event", ev, "err", err)
	}
}

// Generate runs one album generation of count images (the session's image
// count when count <= 0). Poses that fail are skipped; the run still ends
// in Complete. Only a run that cannot start ends in Error. The run is not
// cut short when ctx is cancelled.
func (e *Engine) Generate(ctx context.Context, count int) (generation.Result, error) {
	ctx = context.WithoutCancel(ctx)
	if err := e.begin(); err != nil {
		return generation.Result{}, err
	}
	defer e.end()

	if err := e.fire(EventGenerate); err != nil {
		return generation.Result{}, err
	}

	e.mu.Lock()
	if count <= 0 {
		count = e.imageCount
	}
	count = generation.ClampCount(count)
	profile := e.profile
	anchors := e.store.Anchors(e.pipeline.MaxReferences())
	e.errMsg, e.hint = "", ""
	e.mu.Unlock()

	if profile == nil || len(anchors) == 0 {
		e.fail(EventGenerationSetupFailed, GenerationFailedMessage, "")
		return generation.Result{}, models.ErrEmptyInput
	}

	e.archiveGallery(ctx)

	if err := checkCredentials(ctx, e.creds); err != nil {
		e.fail(EventGenerationSetupFailed, GenerationFailedMessage, models.CredentialRemediationHint)
		return generation.Result{}, err
	}

	poses := e.pipeline.Plan(count)
	e.mu.Lock()
	e.progress = generation.ProgressMessage
	e.requested = len(poses)
	e.completed = 0
	e.mu.Unlock()

	result, err := e.pipeline.Run(ctx, generation.Request{Profile: profile, Assets: anchors, Poses: poses}, func(img models.GeneratedImage) {
		e.mu.Lock()
		e.gallery = append(e.gallery, img)
		e.completed++
		gallery := copyImages(e.gallery)
		e.mu.Unlock()

		e.persist.saveGallery(ctx, gallery)
		if e.onImage != nil {
			e.onImage(img)
		}
	})
	if err != nil {
		slog.Error("Generation run could not start", "err", err)
		e.fail(EventGenerationSetupFailed, GenerationFailedMessage, "")
		return result, err
	}

	e.mu.Lock()
	e.progress = ""
	e.mu.Unlock()
	return result, e.fire(EventGenerationFinished)
}

// SetImageCount sets the default number of images per run, clamped to the
// pose catalog. It returns the stored value.
func (e *Engine) SetImageCount(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.imageCount = generation.ClampCount(n)
	return e.imageCount
}

// archiveGallery moves a non-empty gallery into history. The op lock must be held.
func (e *Engine) archiveGallery(ctx context.Context) (models.AlbumSession, bool) {
	e.mu.Lock()
	session, ok := e.archive.ArchiveCurrent(e.gallery, e.store.All(), e.profile.Summary())
	if ok {
		e.gallery = nil
		e.completed = 0
		e.requested = 0
	}
	history := e.archive.List()
	e.mu.Unlock()

	if ok {
		e.persist.saveGallery(ctx, nil)
		e.persist.saveHistory(ctx, history)
	}
	return session, ok
}

// Archive moves the active gallery into history. An empty gallery is a no-op.
func (e *Engine) Archive(ctx context.Context) (models.AlbumSession, bool, error) {
	if err := e.begin(); err != nil {
		return models.AlbumSession{}, false, err
	}
	defer e.end()

	session, ok := e.archiveGallery(ctx)
	if !ok {
		return session, false, nil
	}

	e.mu.Lock()
	if e.machine.Can(EventArchive) {
		_, _ = e.machine.Fire(EventArchive)
	}
	e.mu.Unlock()
	return session, true, nil
}

// Restore makes an archived session live again, archiving the current
// gallery first when it has images. The profile comes back in degraded form
// carrying only the session summary.
func (e *Engine) Restore(ctx context.Context, id string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	e.mu.Lock()
	if !e.machine.Can(EventRestore) {
		state := e.machine.State()
		e.mu.Unlock()
		return fmt.Errorf("restore in %s: %w", state, models.ErrInvalidTransition)
	}
	snap, err := e.archive.Restore(id, archive.Snapshot{
		Gallery: e.gallery,
		Assets:  e.store.All(),
		Summary: e.profile.Summary(),
	})
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.gallery = snap.Gallery
	e.store.Replace(snap.Assets)
	e.profile = degradedProfile(snap.Summary)
	e.completed = len(e.gallery)
	e.requested = len(e.gallery)
	e.errMsg, e.hint, e.progress = "", "", ""
	_, _ = e.machine.Fire(EventRestore)

	gallery := copyImages(e.gallery)
	list := e.store.All()
	profile := e.profile
	history := e.archive.List()
	e.mu.Unlock()

	e.persist.saveGallery(ctx, gallery)
	e.persist.saveAssets(ctx, list)
	e.persist.saveProfile(ctx, profile)
	e.persist.saveHistory(ctx, history)
	slog.Info("Restored album session", "session_id", id, "images", len(gallery), "assets", len(list))
	return nil
}

func degradedProfile(summary string) *models.AnalysisProfile {
	if summary == models.UnknownSessionSummary {
		summary = ""
	}
	return &models.AnalysisProfile{Outfit: summary, KeyFeatures: []string{}, Degraded: true}
}

// DeleteSession removes one archived session.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	e.mu.Lock()
	deleted := e.archive.Delete(id)
	history := e.archive.List()
	e.mu.Unlock()
	if !deleted {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}

	e.persist.saveHistory(ctx, history)
	slog.Info("Deleted album session", "session_id", id, "history", len(history))
	return nil
}

// Reset returns to Idle. A normal reset archives a non-empty gallery and
// keeps history; a factory reset wipes every saved key including history
// and the saved credential.
func (e *Engine) Reset(ctx context.Context, factory bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if factory {
		e.mu.Lock()
		e.archive.Clear()
		e.mu.Unlock()
		e.persist.clearAll(ctx)
	} else {
		e.archiveGallery(ctx)
	}

	e.mu.Lock()
	e.queue.Clear()
	e.store.Clear()
	e.profile = nil
	e.gallery = nil
	e.completed, e.requested = 0, 0
	e.progress, e.errMsg, e.hint = "", "", ""
	_, _ = e.machine.Fire(EventReset)
	e.mu.Unlock()

	if !factory {
		e.persist.saveGallery(ctx, nil)
		e.persist.saveProfile(ctx, nil)
		e.persist.saveAssets(ctx, nil)
		e.persist.saveQueue(ctx, nil)
	}
	slog.Info("Session reset", "factory", factory)
	return nil
}

// Snapshot is a read-only copy of the session for observers.
type Snapshot struct {
	State        models.AppState         `json:"state"`
	Progress     string                  `json:"progress,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Hint         string                  `json:"hint,omitempty"`
	Queued       int                     `json:"queued"`
	Assets       []models.ReferenceAsset `json:"assets"`
	Profile      *models.AnalysisProfile `json:"profile,omitempty"`
	Gallery      []models.GeneratedImage `json:"gallery"`
	HistoryCount int                     `json:"history_count"`
	ImageCount   int                     `json:"image_count"`
	Completed    int                     `json:"completed"`
	Requested    int                     `json:"requested"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var profile *models.AnalysisProfile
	if e.profile != nil {
		p := *e.profile
		p.KeyFeatures = append([]string(nil), e.profile.KeyFeatures...)
		profile = &p
	}
	return Snapshot{
		State:        e.machine.State(),
		Progress:     e.progress,
		Error:        e.errMsg,
		Hint:         e.hint,
		Queued:       e.queue.Len(),
		Assets:       e.store.All(),
		Profile:      profile,
		Gallery:      copyImages(e.gallery),
		HistoryCount: e.archive.Len(),
		ImageCount:   e.imageCount,
		Completed:    e.completed,
		Requested:    e.requested,
	}
}

// History returns archived sessions, most recent first.
func (e *Engine) History() []models.AlbumSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.archive.List()
}

// Session returns one archived session.
func (e *Engine) Session(id string) (models.AlbumSession, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.archive.Get(id)
}

// Image finds a generated image in the active gallery or, failing that, in history.
func (e *Engine) Image(id string) (models.GeneratedImage, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, img := range e.gallery {
		if img.ID == id {
			return img, true
		}
	}
	for _, s := range e.archive.List() {
		for _, img := range s.Images {
			if img.ID == id {
				return img, true
			}
		}
	}
	return models.GeneratedImage{}, false
}

// StorageUsage reports the persisted album size and the total store size in bytes.
func (e *Engine) StorageUsage(ctx context.Context) (album int64, total int64, err error) {
	if e.persist.store == nil {
		return 0, 0, nil
	}
	data, _, err := e.persist.store.Get(ctx, storage.KeyGallery)
	if err != nil {
		return 0, 0, err
	}
	total, err = e.persist.store.Usage(ctx)
	if err != nil {
		return 0, 0, err
	}
	return int64(len(data)), total, nil
}

func copyImages(in []models.GeneratedImage) []models.GeneratedImage {
	out := make([]models.GeneratedImage, len(in))
	copy(out, in)
	return out
}
