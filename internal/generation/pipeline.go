package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// ProgressMessage is shown while a generation run is in flight.
const ProgressMessage = "Synthesizing Friend POV..."

// DefaultMaxReferences caps the reference images sent per generation call.
const DefaultMaxReferences = 3

// ImageGenerator produces one image from a prompt and reference images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, refs []models.Blob) (models.Blob, error)
}

// Pipeline runs poses through the image generator one at a time.
type Pipeline struct {
	gen     ImageGenerator
	maxRefs int
	rng     *rand.Rand

	newID func() string
	now   func() time.Time
}

func NewPipeline(gen ImageGenerator, maxRefs int, seed int64) *Pipeline {
	if maxRefs <= 0 {
		maxRefs = DefaultMaxReferences
	}
	return &Pipeline{
		gen:     gen,
		maxRefs: maxRefs,
		rng:     NewRand(seed),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// MaxReferences is the configured anchor cap.
func (p *Pipeline) MaxReferences() int {
	return p.maxRefs
}

// Plan selects the poses for a run of count images.
func (p *Pipeline) Plan(count int) []Pose {
	return Select(count, p.rng)
}

// Request is one generation run. Assets are expected primary first.
type Request struct {
	Profile *models.AnalysisProfile
	Assets  []models.ReferenceAsset
	Poses   []Pose
}

// Result summarizes a run. A run with failed poses is still a complete run.
type Result struct {
	Requested int
	Images    []models.GeneratedImage
	Failures  []*models.GenerationItemError
}

// Run generates one image per pose in order, calling onImage after each
// success. A failed pose is logged and skipped. Run only returns an error
// when the run cannot start. Every pose is attempted; callers that must not
// lose a run to cancellation pass a context that is never cancelled.
func (p *Pipeline) Run(ctx context.Context, req Request, onImage func(models.GeneratedImage)) (Result, error) {
	if req.Profile == nil || len(req.Assets) == 0 {
		return Result{}, models.ErrEmptyInput
	}

	refs := p.references(req.Assets)
	if len(refs) == 0 {
		return Result{}, fmt.Errorf("no usable reference images: %w", models.ErrEmptyInput)
	}

	result := Result{Requested: len(req.Poses)}
	slog.Info("Starting generation run", "poses", len(req.Poses), "references", len(refs))

	for i, pose := range req.Poses {
		blob, err := p.gen.GenerateImage(ctx, BuildPrompt(req.Profile, pose), refs)
		if err != nil {
			itemErr := &models.GenerationItemError{Index: i, PoseID: pose.ID, Err: err}
			slog.Warn("Skipping failed pose", "pose", pose.ID, "index", i, "err", err)
			result.Failures = append(result.Failures, itemErr)
			continue
		}

		img := models.GeneratedImage{
			ID:         p.newID(),
			ImageData:  imagekit.EncodeDataURL(blob),
			Prompt:     pose.Prompt,
			ScenarioID: pose.ID,
			CreatedAt:  p.now(),
		}
		result.Images = append(result.Images, img)
		if onImage != nil {
			onImage(img)
		}
		slog.Debug("Generated image", "pose", pose.ID, "completed", len(result.Images), "requested", result.Requested)
	}

	slog.Info("Generation run finished", "images", len(result.Images), "failed", len(result.Failures), "requested", result.Requested)
	return result, nil
}

func (p *Pipeline) references(assets []models.ReferenceAsset) []models.Blob {
	refs := make([]models.Blob, 0, p.maxRefs)
	for _, a := range assets {
		if len(refs) >= p.maxRefs {
			break
		}
		b, err := imagekit.DecodeDataURL(a.OriginalImage)
		if err != nil {
			slog.Warn("Skipping unreadable reference image", "asset_id", a.ID, "err", err)
			continue
		}
		refs = append(refs, b)
	}
	return refs
}
