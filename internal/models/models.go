package models

import "time"

// ReferenceAsset is one confirmed reference image: the full upload plus the
// face-focused crop used for analysis. Images are stored as data URLs.
type ReferenceAsset struct {
	ID            string     `json:"id"`
	OriginalImage string     `json:"original_image"`
	CroppedImage  string     `json:"cropped_image"`
	CreatedAt     time.Time  `json:"created_at"`
	CapturedAt    *time.Time `json:"captured_at,omitempty"` // EXIF DateTime of the upload, when present
	IsPrimary     bool       `json:"is_primary"`
}

// CropQueueItem is a raw upload waiting for crop confirmation
type CropQueueItem struct {
	RawImage   string     `json:"raw_image"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// AnalysisProfile is the identity/style description derived from the assets
type AnalysisProfile struct {
	Description         string   `json:"description"`
	Outfit              string   `json:"outfit"`
	Environment         string   `json:"environment"`
	PhotographicStyle   string   `json:"photographic_style"`
	DetectedGender      string   `json:"detected_gender"`
	KeyFeatures         []string `json:"key_features"`
	VibeSummary         string   `json:"vibe_summary,omitempty"`
	ConsistencyNotes    string   `json:"consistency_notes,omitempty"`
	CompositeConfidence *float64 `json:"composite_confidence,omitempty"`

	// Degraded is set when the profile was rebuilt from an archived session
	// summary and only Outfit is meaningful.
	Degraded bool `json:"degraded,omitempty"`
}

// UnknownSessionSummary labels archived sessions created without a profile.
const UnknownSessionSummary = "Unknown Session"

// Summary returns the short string stored with archived sessions.
func (p *AnalysisProfile) Summary() string {
	if p == nil || p.Outfit == "" {
		return UnknownSessionSummary
	}
	return p.Outfit
}

// GeneratedImage is one synthesized output
type GeneratedImage struct {
	ID         string    `json:"id"`
	ImageData  string    `json:"image_data"`
	Prompt     string    `json:"prompt"`
	ScenarioID string    `json:"scenario_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// AlbumSession is an immutable archived generation run
type AlbumSession struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	Images          []GeneratedImage `json:"images"`
	ReferenceAssets []ReferenceAsset `json:"reference_assets"`
	AnalysisSummary string           `json:"analysis_summary"`
}

// Blob is a decoded image payload exchanged with the external collaborators.
type Blob struct {
	MIMEType string
	Data     []byte
}

// AppState is the coordinating state of a session
type AppState string

const (
	StateIdle            AppState = "IDLE"
	StateCropping        AppState = "CROPPING"
	StateAnalyzing       AppState = "ANALYZING"
	StateReadyToGenerate AppState = "READY_TO_GENERATE"
	StateGenerating      AppState = "GENERATING"
	StateComplete        AppState = "COMPLETE"
	StateError           AppState = "ERROR"
)
